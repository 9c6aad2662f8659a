// Package transport implements the client side of a channel connection with
// multiplexing and heartbeat.
//
// Many concurrent method calls share one connection. Each call gets a unique sequence
// ID, and a background goroutine (recvLoop) reads results and routes them to the
// waiting caller through the pending map.
//
//	goroutine-1 ──Send(seq=1)──┐
//	goroutine-2 ──Send(seq=2)──┼──→ single conn ──→ Host
//	goroutine-3 ──Send(seq=3)──┘
//
//	recvLoop:  ←── result(seq=2) → pending[2] ← result → goroutine-2 wakes up
package transport

import (
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v3"
	zlog "github.com/rs/zerolog/log"

	"host-bridge/codec"
	"host-bridge/message"
	"host-bridge/protocol"
)

// DefaultHeartbeat is the heartbeat interval used when none is given.
const DefaultHeartbeat = 30 * time.Second

// ErrClosed is returned by Send once the transport has shut down.
var ErrClosed = errors.New("transport closed")

// ClientTransport manages a single multiplexed connection.
type ClientTransport struct {
	conn    net.Conn
	codec   codec.CodecType
	seq     uint32                                          // Protected by sending
	pending *xsync.MapOf[uint32, chan *message.MethodResult] // Each in-flight call waits on its own channel
	sending sync.Mutex                                      // Serialises whole frames on conn

	done      chan struct{}
	closeOnce sync.Once
}

// NewClientTransport wraps conn and starts the recv and heartbeat goroutines.
// A heartbeat of zero means DefaultHeartbeat.
func NewClientTransport(conn net.Conn, codecType codec.CodecType, heartbeat time.Duration) *ClientTransport {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	t := &ClientTransport{
		conn:    conn,
		codec:   codecType,
		pending: xsync.NewMapOf[uint32, chan *message.MethodResult](),
		done:    make(chan struct{}),
	}
	go t.recvLoop()
	go t.heartbeatLoop(heartbeat)
	return t
}

// Send encodes call and writes it as one frame. It returns the sequence number and a
// channel that receives exactly one result.
func (t *ClientTransport) Send(call *message.MethodCall) (uint32, <-chan *message.MethodResult, error) {
	if t.Closed() {
		return 0, nil, ErrClosed
	}

	cdc := codec.GetCodec(t.codec)
	body, err := cdc.Encode(call)
	if err != nil {
		return 0, nil, errors.Wrap(err, "encode method call")
	}

	t.sending.Lock()
	defer t.sending.Unlock()

	t.seq++
	seq := t.seq

	header := protocol.Header{
		CodecType: byte(t.codec),
		MsgType:   protocol.MsgTypeRequest,
		Seq:       seq,
	}

	// Register before writing so recvLoop can never see a result without a waiter.
	respChan := make(chan *message.MethodResult, 1)
	t.pending.Store(seq, respChan)

	if err := protocol.Encode(t.conn, &header, body); err != nil {
		t.pending.Delete(seq)
		t.Close()
		return 0, nil, errors.Wrap(err, "send method call")
	}
	// Close may have drained pending between Store and here.
	if t.Closed() {
		if _, ok := t.pending.LoadAndDelete(seq); ok {
			return 0, nil, ErrClosed
		}
	}

	return seq, respChan, nil
}

// Forget drops the waiter for seq, used when the caller gives up on a call.
// A result arriving later is discarded.
func (t *ClientTransport) Forget(seq uint32) {
	t.pending.Delete(seq)
}

// recvLoop is the single reader of conn. Frame boundaries are only recoverable by
// reading sequentially.
func (t *ClientTransport) recvLoop() {
	for {
		header, body, err := protocol.Decode(t.conn)
		if err != nil {
			t.failPending(err)
			t.Close()
			return
		}
		if header.MsgType != protocol.MsgTypeResponse {
			continue
		}

		res := &message.MethodResult{}
		cdc := codec.GetCodec(codec.CodecType(header.CodecType))
		if err := cdc.Decode(body, res); err != nil {
			res = message.Error(message.CodeBadRequest, errors.Wrap(err, "decode method result").Error(), nil)
		}

		if channel, ok := t.pending.LoadAndDelete(header.Seq); ok {
			channel <- res
		}
	}
}

// failPending answers every in-flight call with UNAVAILABLE.
func (t *ClientTransport) failPending(err error) {
	if !t.Closed() {
		zlog.Debug().Err(err).Str("remote", t.conn.RemoteAddr().String()).Msg("connection lost")
	}
	t.pending.Range(func(seq uint32, channel chan *message.MethodResult) bool {
		if _, ok := t.pending.LoadAndDelete(seq); ok {
			channel <- message.Error(message.CodeUnavailable, err.Error(), nil)
		}
		return true
	})
}

// heartbeatLoop writes an empty heartbeat frame every interval until the transport closes.
func (t *ClientTransport) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
		}
		header := &protocol.Header{
			CodecType: byte(t.codec),
			MsgType:   protocol.MsgTypeHeartbeat,
		}
		t.sending.Lock()
		err := protocol.Encode(t.conn, header, nil)
		t.sending.Unlock()
		if err != nil {
			t.Close()
			return
		}
	}
}

// Close shuts the connection. Pending calls receive UNAVAILABLE.
func (t *ClientTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
		t.failPending(ErrClosed)
	})
	return err
}

// Done is closed once the transport has shut down.
func (t *ClientTransport) Done() <-chan struct{} {
	return t.done
}

// Closed reports whether the transport has shut down.
func (t *ClientTransport) Closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Conn returns the underlying connection.
func (t *ClientTransport) Conn() net.Conn {
	return t.conn
}
