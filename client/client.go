// Package client invokes methods on remote channels.
//
// Call path: Registry.Discover → Balancer.Pick → transport pool → middleware → Send → result.
package client

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"host-bridge/codec"
	"host-bridge/loadbalance"
	"host-bridge/message"
	"host-bridge/middleware"
	"host-bridge/registry"
	"host-bridge/transport"
)

// ErrNotImplemented is returned when the host has no handler for the method or channel.
var ErrNotImplemented = errors.New("method not implemented")

// MethodError is an Error result returned by the host.
type MethodError struct {
	Code    string
	Message string
	Details []byte
}

func (e *MethodError) Error() string {
	return "method error " + e.Code + ": " + e.Message
}

// pool holds poolSize multiplexed transports to one address, used round robin.
type pool struct {
	mu   sync.Mutex
	ts   []*transport.ClientTransport
	next atomic.Uint64
}

type Client struct {
	registry    registry.Registry
	balancer    loadbalance.Balancer
	codecType   codec.CodecType
	poolSize    int
	heartbeat   time.Duration
	dialTimeout time.Duration
	middlewares []middleware.Middleware

	mu    sync.Mutex
	pools map[string]*pool
}

// NewClient creates a client that finds hosts through reg and spreads calls with bal.
func NewClient(reg registry.Registry, bal loadbalance.Balancer, codecType byte, poolSize int) *Client {
	return &Client{
		registry:    reg,
		balancer:    bal,
		codecType:   codec.CodecType(codecType),
		poolSize:    max(poolSize, 1),
		dialTimeout: 5 * time.Second,
		pools:       make(map[string]*pool),
	}
}

// Use registers a middleware around the network call. Must be called before Invoke.
func (c *Client) Use(mw middleware.Middleware) {
	c.middlewares = append(c.middlewares, mw)
}

// SetHeartbeat sets the heartbeat interval of transports dialed afterwards.
func (c *Client) SetHeartbeat(d time.Duration) {
	c.heartbeat = d
}

func (c *Client) getPool(addr string) *pool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pools[addr]
	if !ok {
		p = &pool{ts: make([]*transport.ClientTransport, c.poolSize)}
		c.pools[addr] = p
	}
	return p
}

// getTransport returns the next transport for addr, redialing a slot whose
// connection has broken.
func (c *Client) getTransport(ctx context.Context, addr string) (*transport.ClientTransport, error) {
	p := c.getPool(addr)
	idx := (p.next.Add(1) - 1) % uint64(len(p.ts))

	p.mu.Lock()
	defer p.mu.Unlock()
	if t := p.ts[idx]; t != nil && !t.Closed() {
		return t, nil
	}

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	t := transport.NewClientTransport(conn, c.codecType, c.heartbeat)
	p.ts[idx] = t
	return t, nil
}

// Invoke calls method on channel with args encoded as JSON (nil sends no arguments)
// and decodes a successful value into reply (nil discards it).
//
// A NotImplemented result returns an error matching ErrNotImplemented, an Error
// result returns a *MethodError.
func (c *Client) Invoke(ctx context.Context, channel, method string, args any, reply any) error {
	call := &message.MethodCall{Channel: channel, Method: method}
	if args != nil {
		payload, err := json.Marshal(args)
		if err != nil {
			return errors.Wrap(err, "encode arguments")
		}
		call.Arguments = payload
	}

	handler := middleware.Chain(c.middlewares...)(c.send)
	res := handler(ctx, call)

	switch res.Status {
	case message.StatusSuccess:
		if reply == nil {
			return nil
		}
		if err := json.Unmarshal(res.Value, reply); err != nil {
			return errors.Wrapf(err, "decode %s result", method)
		}
		return nil
	case message.StatusNotImplemented:
		return errors.Wrapf(ErrNotImplemented, "%s on channel %s", method, channel)
	default:
		return &MethodError{Code: res.ErrorCode, Message: res.ErrorMessage, Details: res.ErrorDetails}
	}
}

// send is the innermost handler: it performs one network round trip.
// Failures before a result arrives are reported as UNAVAILABLE or TIMEOUT results
// so that middleware can react to them.
func (c *Client) send(ctx context.Context, call *message.MethodCall) *message.MethodResult {
	instances, err := c.registry.Discover(ctx, call.Channel)
	if err != nil {
		return message.Error(message.CodeUnavailable, err.Error(), nil)
	}

	var instance *registry.ServiceInstance
	if kb, ok := c.balancer.(loadbalance.KeyedBalancer); ok {
		instance, err = kb.PickKey(instances, call.Channel)
	} else {
		instance, err = c.balancer.Pick(instances)
	}
	if err != nil {
		return message.Error(message.CodeUnavailable, errors.Wrapf(err, "channel %s", call.Channel).Error(), nil)
	}

	t, err := c.getTransport(ctx, instance.Addr)
	if err != nil {
		return message.Error(message.CodeUnavailable, err.Error(), nil)
	}

	seq, ch, err := t.Send(call)
	if err != nil {
		return message.Error(message.CodeUnavailable, err.Error(), nil)
	}

	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		t.Forget(seq)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return message.Error(message.CodeTimeout, ctx.Err().Error(), nil)
		}
		return message.Error(message.CodeUnavailable, ctx.Err().Error(), nil)
	}
}

// Close closes every pooled transport.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs error
	for addr, p := range c.pools {
		p.mu.Lock()
		for _, t := range p.ts {
			if t != nil {
				if err := t.Close(); err != nil {
					errs = errors.CombineErrors(errs, err)
				}
			}
		}
		p.mu.Unlock()
		delete(c.pools, addr)
	}
	return errs
}

// Channel binds the client to one channel name.
func (c *Client) Channel(name string) *MethodChannel {
	return &MethodChannel{client: c, name: name}
}

// MethodChannel is a client bound to a single channel.
type MethodChannel struct {
	client *Client
	name   string
}

func (mc *MethodChannel) Name() string {
	return mc.name
}

// InvokeMethod calls method on the bound channel. See Client.Invoke.
func (mc *MethodChannel) InvokeMethod(ctx context.Context, method string, args any, reply any) error {
	return mc.client.Invoke(ctx, mc.name, method, args, reply)
}
