// Package loadbalance picks one instance of a discovered service for each call.
//
// Three strategies are implemented:
//   - RoundRobin:      equal-capacity instances
//   - WeightedRandom:  heterogeneous instances, by ServiceInstance.Weight
//   - ConsistentHash:  key affinity; the transport keys by method name
package loadbalance

import (
	"errors"

	"nano-rpc/registry"
)

var ErrNoInstances = errors.New("loadbalance: no instances available")

// Balancer selects a target instance. Pick is called on every call and must be safe for
// concurrent use. key identifies the call; strategies without affinity ignore it.
type Balancer interface {
	Pick(key string, instances []registry.ServiceInstance) (*registry.ServiceInstance, error)
	Name() string
}

// New returns the balancer registered under name ("round_robin", "weighted_random",
// "consistent_hash").
func New(name string) (Balancer, error) {
	switch name {
	case "", "round_robin":
		return &RoundRobinBalancer{}, nil
	case "weighted_random":
		return &WeightedRandomBalancer{}, nil
	case "consistent_hash":
		return NewConsistentHashBalancer(), nil
	}
	return nil, errors.New("loadbalance: unknown strategy " + name)
}
