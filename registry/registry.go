// Package registry lets listeners announce the protocols they serve and lets clients find them.
package registry

import (
	"context"
	"errors"
)

var ErrNotRegistered = errors.New("registry: instance not registered")

// ServiceInstance is one reachable listener for a service name.
type ServiceInstance struct {
	Addr    string `json:"addr"`
	Weight  int    `json:"weight,omitempty"` // relative share for weighted balancing
	Version string `json:"version,omitempty"`
}

type Registry interface {
	// Register announces instance under serviceName for ttl seconds, renewed until Deregister.
	Register(ctx context.Context, serviceName string, instance ServiceInstance, ttl int64) error
	Deregister(ctx context.Context, serviceName string, addr string) error
	Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error)
	// Watch emits the full instance list after every change until ctx is done.
	Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance
}
