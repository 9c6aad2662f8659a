// Package registry maps channel names to the host instances serving them.
package registry

import "context"

// ServiceInstance is one host process serving a channel.
type ServiceInstance struct {
	Addr    string
	Weight  int    // Weight for load balancing
	Version string // Host bridge build serving the channel
}

type Registry interface {
	Register(ctx context.Context, channel string, instance ServiceInstance, ttl int64) error
	Deregister(ctx context.Context, channel string, addr string) error
	Discover(ctx context.Context, channel string) ([]ServiceInstance, error)
	// Watch emits the full instance list after every change until ctx is done.
	Watch(ctx context.Context, channel string) <-chan []ServiceInstance
}
