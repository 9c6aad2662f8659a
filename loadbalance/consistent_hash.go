package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"host-bridge/registry"
)

// ConsistentHashBalancer maps keys onto a hash ring of instances. Each instance
// occupies replicas virtual nodes so that a few instances still spread evenly.
// The ring is rebuilt whenever the instance set passed to PickKey changes.
type ConsistentHashBalancer struct {
	mu       sync.Mutex
	replicas int
	ring     []uint32                            // Sorted hash values on the ring
	nodes    map[uint32]registry.ServiceInstance // Hash value → instance
	members  string                              // Fingerprint of the instance set the ring was built from
}

// NewConsistentHashBalancer creates a hash ring with 100 virtual nodes per instance.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		nodes:    make(map[uint32]registry.ServiceInstance),
	}
}

// Add places an instance onto the ring with N virtual nodes hashed from "{addr}#{i}".
func (b *ConsistentHashBalancer) Add(instance registry.ServiceInstance) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addLocked(instance)
	b.members = ""
}

func (b *ConsistentHashBalancer) addLocked(instance registry.ServiceInstance) {
	for i := 0; i < b.replicas; i++ {
		hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", instance.Addr, i)))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = instance
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// Pick uses the empty key, pinning every call to one instance.
func (b *ConsistentHashBalancer) Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	return b.PickKey(instances, "")
}

// PickKey hashes key and walks clockwise to the first virtual node, wrapping at the end.
// A nil instances slice picks from whatever was added with Add.
func (b *ConsistentHashBalancer) PickKey(instances []registry.ServiceInstance, key string) (*registry.ServiceInstance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if instances != nil {
		b.syncLocked(instances)
	}
	if len(b.ring) == 0 {
		return nil, ErrNoInstances
	}

	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}

	inst := b.nodes[b.ring[idx]]
	return &inst, nil
}

func (b *ConsistentHashBalancer) syncLocked(instances []registry.ServiceInstance) {
	addrs := make([]string, len(instances))
	for i, inst := range instances {
		addrs[i] = inst.Addr
	}
	sort.Strings(addrs)
	fingerprint := strings.Join(addrs, ",")
	if fingerprint == b.members {
		return
	}

	b.ring = b.ring[:0]
	clear(b.nodes)
	for _, inst := range instances {
		b.addLocked(inst)
	}
	b.members = fingerprint
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
