// Package loadbalance picks the host instance a method call is sent to.
//
//   - RoundRobin:      equal-capacity hosts
//   - WeightedRandom:  hosts of different capacity
//   - ConsistentHash:  channel affinity, the same channel sticks to the same host
package loadbalance

import (
	"github.com/cockroachdb/errors"

	"host-bridge/registry"
)

// ErrNoInstances is returned when the instance list is empty.
var ErrNoInstances = errors.New("no instances available")

// Balancer is the interface for load balancing strategies.
// The client calls Pick() before each call, so implementations must be goroutine-safe.
type Balancer interface {
	Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}

// KeyedBalancer picks by key. The client keys calls by channel name.
type KeyedBalancer interface {
	Balancer
	PickKey(instances []registry.ServiceInstance, key string) (*registry.ServiceInstance, error)
}

// New returns the balancer registered under name, defaulting to round robin.
func New(name string) Balancer {
	switch name {
	case "weighted_random":
		return &WeightedRandomBalancer{}
	case "consistent_hash":
		return NewConsistentHashBalancer()
	default:
		return &RoundRobinBalancer{}
	}
}
