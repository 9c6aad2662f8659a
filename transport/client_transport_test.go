package transport

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"host-bridge/codec"
	"host-bridge/message"
	"host-bridge/protocol"
	"host-bridge/server"
)

const testChannel = "com.example.app/sdk"

func echoArgs(ctx context.Context, call *message.MethodCall) *message.MethodResult {
	var n int
	if err := json.Unmarshal(call.Arguments, &n); err != nil {
		return message.Error("BAD_ARGS", err.Error(), nil)
	}
	return message.Success(n * 2)
}

func dialServer(t *testing.T) net.Conn {
	t.Helper()
	svr := server.NewServer()
	svr.SetMethodCallHandler(testChannel, echoArgs)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go svr.ServeListener(l)
	t.Cleanup(func() { _ = svr.Shutdown(time.Second) })

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	return conn
}

func call(n int) *message.MethodCall {
	args, _ := json.Marshal(n)
	return &message.MethodCall{Channel: testChannel, Method: "double", Arguments: args}
}

func TestClientTransportSerial(t *testing.T) {
	ct := NewClientTransport(dialServer(t), codec.CodecTypeJSON, 0)
	defer ct.Close()

	for _, n := range []int{1, 10, 100} {
		_, ch, err := ct.Send(call(n))
		require.NoError(t, err)

		res := <-ch
		require.Equal(t, message.StatusSuccess, res.Status, res.ErrorMessage)

		var got int
		require.NoError(t, json.Unmarshal(res.Value, &got))
		assert.Equal(t, 2*n, got)
	}
}

func TestClientTransportConcurrent(t *testing.T) {
	ct := NewClientTransport(dialServer(t), codec.CodecTypeBinary, 0)
	defer ct.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, ch, err := ct.Send(call(n))
			if err != nil {
				t.Errorf("send failed: %v", err)
				return
			}

			res := <-ch
			var got int
			if err := json.Unmarshal(res.Value, &got); err != nil {
				t.Errorf("unmarshal failed: %v", err)
				return
			}
			if got != n*2 {
				t.Errorf("expect %d, got %d", n*2, got)
			}
		}(i)
	}
	wg.Wait()
}

func TestClientTransportPendingFailOnDisconnect(t *testing.T) {
	clientSide, hostSide := net.Pipe()
	ct := NewClientTransport(clientSide, codec.CodecTypeJSON, 0)

	// host reads the request and hangs up without answering
	go func() {
		_, _, _ = protocol.Decode(hostSide)
		hostSide.Close()
	}()

	_, ch, err := ct.Send(call(1))
	require.NoError(t, err)

	select {
	case res := <-ch:
		assert.Equal(t, message.CodeUnavailable, res.ErrorCode)
	case <-time.After(time.Second):
		t.Fatal("pending call not failed after disconnect")
	}

	select {
	case <-ct.Done():
	case <-time.After(time.Second):
		t.Fatal("transport not closed after disconnect")
	}
	_, _, err = ct.Send(call(2))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClientTransportHeartbeat(t *testing.T) {
	clientSide, hostSide := net.Pipe()
	ct := NewClientTransport(clientSide, codec.CodecTypeJSON, 20*time.Millisecond)
	defer ct.Close()

	_ = hostSide.SetReadDeadline(time.Now().Add(time.Second))
	header, body, err := protocol.Decode(hostSide)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgTypeHeartbeat, header.MsgType)
	assert.Empty(t, body)
}

func TestClientTransportForget(t *testing.T) {
	clientSide, hostSide := net.Pipe()
	ct := NewClientTransport(clientSide, codec.CodecTypeJSON, 0)
	defer ct.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		header, _, err := protocol.Decode(hostSide)
		if err != nil {
			return
		}
		body, _ := codec.GetCodec(codec.CodecTypeJSON).Encode(message.Success(1))
		_ = protocol.Encode(hostSide, &protocol.Header{MsgType: protocol.MsgTypeResponse, Seq: header.Seq}, body)
	}()

	seq, ch, err := ct.Send(call(1))
	require.NoError(t, err)
	ct.Forget(seq)
	<-done

	select {
	case <-ch:
		t.Fatal("forgotten call must not receive a result")
	case <-time.After(50 * time.Millisecond):
	}
}
