package registry

import (
	"context"
	"slices"
	"sync"
)

// StaticRegistry keeps instances in memory. It serves single-host setups where no
// etcd cluster is configured, and tests. TTLs are ignored.
type StaticRegistry struct {
	mu        sync.RWMutex
	instances map[string][]ServiceInstance
	watchers  map[string][]chan []ServiceInstance
}

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		instances: make(map[string][]ServiceInstance),
		watchers:  make(map[string][]chan []ServiceInstance),
	}
}

// Register adds or replaces the instance with the same address.
func (r *StaticRegistry) Register(ctx context.Context, channel string, instance ServiceInstance, ttl int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	insts := slices.DeleteFunc(slices.Clone(r.instances[channel]), func(i ServiceInstance) bool {
		return i.Addr == instance.Addr
	})
	r.instances[channel] = append(insts, instance)
	r.notifyLocked(channel)
	return nil
}

func (r *StaticRegistry) Deregister(ctx context.Context, channel string, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[channel] = slices.DeleteFunc(slices.Clone(r.instances[channel]), func(i ServiceInstance) bool {
		return i.Addr == addr
	})
	r.notifyLocked(channel)
	return nil
}

func (r *StaticRegistry) Discover(ctx context.Context, channel string) ([]ServiceInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.instances[channel]), nil
}

func (r *StaticRegistry) Watch(ctx context.Context, channel string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)
	r.mu.Lock()
	r.watchers[channel] = append(r.watchers[channel], ch)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		r.watchers[channel] = slices.DeleteFunc(r.watchers[channel], func(c chan []ServiceInstance) bool {
			return c == ch
		})
		close(ch)
	}()
	return ch
}

// notifyLocked replaces any undelivered update with the latest list.
func (r *StaticRegistry) notifyLocked(channel string) {
	for _, ch := range r.watchers[channel] {
		select {
		case <-ch:
		default:
		}
		ch <- slices.Clone(r.instances[channel])
	}
}
