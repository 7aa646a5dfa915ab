package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"nano-rpc/registry"
)

// ConsistentHashBalancer maps keys to instances on a hash ring, so the same key keeps landing
// on the same instance while the instance set is stable.
//
// Each instance owns replicas virtual nodes hashed from "{addr}#{i}"; without them a handful
// of instances tends to cluster on the ring and share load unevenly.
type ConsistentHashBalancer struct {
	replicas int

	mu        sync.RWMutex
	signature string // sorted addresses the ring was built from
	ring      []uint32
	nodes     map[uint32]registry.ServiceInstance
}

func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		nodes:    make(map[uint32]registry.ServiceInstance),
	}
}

func signatureOf(instances []registry.ServiceInstance) string {
	addrs := make([]string, len(instances))
	for i, inst := range instances {
		addrs[i] = inst.Addr
	}
	sort.Strings(addrs)
	return strings.Join(addrs, ",")
}

// rebuild replaces the ring when the discovered instance set changed.
func (b *ConsistentHashBalancer) rebuild(signature string, instances []registry.ServiceInstance) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.signature == signature {
		return
	}

	b.ring = b.ring[:0]
	b.nodes = make(map[uint32]registry.ServiceInstance, len(instances)*b.replicas)
	for _, inst := range instances {
		for i := 0; i < b.replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", inst.Addr, i)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = inst
		}
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
	b.signature = signature
}

// Pick hashes key and walks clockwise to the first virtual node, wrapping at the end.
func (b *ConsistentHashBalancer) Pick(key string, instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	signature := signatureOf(instances)
	b.mu.RLock()
	stale := b.signature != signature
	b.mu.RUnlock()
	if stale {
		b.rebuild(signature, instances)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

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

func (b *ConsistentHashBalancer) Name() string {
	return "consistent_hash"
}
