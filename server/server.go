// Package server hosts method channel handlers behind a framed connection listener.
//
// Request processing pipeline:
//
//	Accept conn → handleConn (single goroutine reads frames)
//	  → for each request: go handleRequest (parallel processing)
//	    → Codec.Decode → Middleware Chain → dispatch (channel handler) → Codec.Encode → write result
package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"host-bridge/codec"
	"host-bridge/message"
	"host-bridge/middleware"
	"host-bridge/protocol"
	"host-bridge/registry"
)

// ErrShutdownTimeout is returned by Shutdown when in-flight calls outlive the timeout.
var ErrShutdownTimeout = errors.New("timeout waiting for ongoing requests to finish")

// Server answers method calls for every channel attached to it.
type Server struct {
	channels      *channelTable
	listener      net.Listener
	wg            sync.WaitGroup
	shutdown      atomic.Bool
	middlewares   []middleware.Middleware
	handler       middleware.HandlerFunc // middleware(middleware(...(dispatch)))
	registry      registry.Registry
	advertiseAddr string // Address registered for discovery, routable unlike ":7420"
	registryTTL   int64
	idleTimeout   time.Duration

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithIdleTimeout closes connections that stay silent for longer than d.
// Clients keep connections open with heartbeats.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.idleTimeout = d }
}

// WithRegistryTTL sets the lease TTL, in seconds, used when registering channels.
func WithRegistryTTL(ttl int64) Option {
	return func(s *Server) { s.registryTTL = ttl }
}

// NewServer creates a server with no channels attached.
func NewServer(opts ...Option) *Server {
	s := &Server{
		channels:    newChannelTable(),
		registryTTL: 10,
		conns:       make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetMethodCallHandler attaches h to channel, replacing any previous handler.
// A nil h detaches the channel; later calls on it answer NotImplemented.
// Safe to call while serving.
func (svr *Server) SetMethodCallHandler(channel string, h middleware.HandlerFunc) {
	reg, addr := svr.discovery()
	if h == nil {
		svr.channels.remove(channel)
		if reg != nil && addr != "" {
			if err := reg.Deregister(context.Background(), channel, addr); err != nil {
				zlog.Warn().Err(err).Str("channel", channel).Msg("deregister detached channel")
			}
		}
		zlog.Debug().Str("channel", channel).Msg("channel detached")
		return
	}
	fresh := svr.channels.set(channel, h)
	if fresh && reg != nil && addr != "" {
		svr.registerChannel(context.Background(), reg, addr, channel)
	}
	zlog.Debug().Str("channel", channel).Msg("channel attached")
}

// Channels returns the sorted names of attached channels.
func (svr *Server) Channels() []string {
	return svr.channels.names()
}

// Use registers a middleware. Middlewares are applied in the order they are added
// and must be registered before Serve.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// Serve listens on address, registers every attached channel under advertiseAddr in
// reg (nil skips discovery), and accepts connections until Shutdown.
func (svr *Server) Serve(network, address string, advertiseAddr string, reg registry.Registry) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return errors.Wrapf(err, "listen %s %s", network, address)
	}

	if advertiseAddr == "" {
		advertiseAddr = listener.Addr().String()
	}
	svr.mu.Lock()
	svr.advertiseAddr = advertiseAddr
	svr.registry = reg
	svr.mu.Unlock()
	if reg != nil {
		for _, channel := range svr.channels.names() {
			svr.registerChannel(context.Background(), reg, advertiseAddr, channel)
		}
	}

	return svr.ServeListener(listener)
}

func (svr *Server) discovery() (registry.Registry, string) {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	return svr.registry, svr.advertiseAddr
}

func (svr *Server) registerChannel(ctx context.Context, reg registry.Registry, addr, channel string) {
	err := reg.Register(ctx, channel, registry.ServiceInstance{
		Addr:   addr,
		Weight: 1,
	}, svr.registryTTL)
	if err != nil {
		zlog.Error().Err(err).Str("channel", channel).Msg("register channel")
	}
}

// ServeListener accepts connections on l until Shutdown.
func (svr *Server) ServeListener(l net.Listener) error {
	svr.mu.Lock()
	svr.listener = l
	// Built once here: Chain(A, B)(dispatch) runs A.before → B.before → dispatch → B.after → A.after
	svr.handler = middleware.Chain(svr.middlewares...)(svr.dispatch)
	svr.mu.Unlock()

	zlog.Info().Str("addr", l.Addr().String()).Strs("channels", svr.channels.names()).Msg("serving method channels")

	for {
		conn, err := l.Accept()
		if err != nil {
			if svr.shutdown.Load() {
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		go svr.handleConn(conn)
	}
}

// Addr returns the listener address, or nil before Serve.
func (svr *Server) Addr() net.Addr {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.listener == nil {
		return nil
	}
	return svr.listener.Addr()
}

// handleConn runs the single reader of conn and hands each request to its own
// goroutine. writeMu keeps their response frames from interleaving.
func (svr *Server) handleConn(conn net.Conn) {
	svr.trackConn(conn, true)
	defer svr.trackConn(conn, false)
	defer conn.Close()

	writeMu := &sync.Mutex{}
	for {
		if svr.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(svr.idleTimeout))
		}
		header, body, err := protocol.Decode(conn)
		if err != nil {
			if !svr.shutdown.Load() {
				zlog.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("connection closed")
			}
			return
		}

		if header.MsgType != protocol.MsgTypeRequest {
			continue
		}

		// requests arriving after Shutdown began are dropped; the connection
		// stays open so in-flight replies on it still go out
		if !svr.startRequest() {
			continue
		}
		go svr.handleRequest(header, body, conn, writeMu)
	}
}

// startRequest counts a request in flight unless Shutdown has begun. The flag and
// the Add share mu with Shutdown so no Add can follow its Wait.
func (svr *Server) startRequest() bool {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.shutdown.Load() {
		return false
	}
	svr.wg.Add(1)
	return true
}

func (svr *Server) trackConn(conn net.Conn, add bool) {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if add {
		svr.conns[conn] = struct{}{}
	} else {
		delete(svr.conns, conn)
	}
}

// handleRequest decodes, dispatches and answers one call. The seq of the reply
// matches the request so the client can route it.
func (svr *Server) handleRequest(header *protocol.Header, body []byte, conn net.Conn, writeMu *sync.Mutex) {
	defer svr.wg.Done()

	c := codec.GetCodec(codec.CodecType(header.CodecType))
	call := &message.MethodCall{}
	var res *message.MethodResult
	if err := c.Decode(body, call); err != nil {
		res = message.Error(message.CodeBadRequest, errors.Wrap(err, "decode method call").Error(), nil)
	} else {
		res = svr.handler(context.Background(), call)
	}

	payload, err := c.Encode(res)
	if err != nil {
		zlog.Error().Err(err).Str("method", call.Method).Msg("encode method result")
		payload, _ = c.Encode(message.Error(message.CodeInternal, "encode method result", nil))
	}

	replyHeader := protocol.Header{
		CodecType: header.CodecType,
		MsgType:   protocol.MsgTypeResponse,
		Seq:       header.Seq,
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	if err := protocol.Encode(conn, &replyHeader, payload); err != nil {
		zlog.Debug().Err(err).Uint32("seq", header.Seq).Msg("write method result")
	}
}

// dispatch routes the call to the channel's handler. A channel with no handler
// answers NotImplemented, the same as an unknown method.
func (svr *Server) dispatch(ctx context.Context, call *message.MethodCall) *message.MethodResult {
	h, ok := svr.channels.get(call.Channel)
	if !ok {
		return message.NotImplemented()
	}
	res := h(ctx, call)
	if res == nil {
		return message.Error(message.CodeInternal, "handler returned no result", nil)
	}
	return res
}

// Shutdown deregisters every channel, stops accepting, closes idle reads and waits
// for in-flight calls until timeout.
func (svr *Server) Shutdown(timeout time.Duration) error {
	// Deregister first so clients stop routing here.
	if reg, addr := svr.discovery(); reg != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		for _, channel := range svr.channels.names() {
			if err := reg.Deregister(ctx, channel, addr); err != nil {
				zlog.Warn().Err(err).Str("channel", channel).Msg("deregister channel")
			}
		}
		cancel()
	}

	// Set the flag before closing so the Accept error reads as intentional.
	svr.mu.Lock()
	svr.shutdown.Store(true)
	if svr.listener != nil {
		svr.listener.Close()
	}
	svr.mu.Unlock()

	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = ErrShutdownTimeout
	}

	svr.mu.Lock()
	for conn := range svr.conns {
		conn.Close()
	}
	svr.mu.Unlock()
	return err
}
