package transport

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"nano-rpc/loadbalance"
	"nano-rpc/message"
	"nano-rpc/registry"
)

// Discovery routes calls to instances of a named service. Each call looks the service up in the
// registry, lets the balancer pick an instance keyed by method name, and reuses one Framed
// connection per address. A connection that died is redialed on the next call.
type Discovery struct {
	service  string
	registry registry.Registry
	balancer loadbalance.Balancer
	opts     []FramedOption
	logger   *zap.Logger

	mu    sync.Mutex
	conns map[string]*Framed
}

func NewDiscovery(service string, reg registry.Registry, bal loadbalance.Balancer, opts ...FramedOption) *Discovery {
	o := framedOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Discovery{
		service:  service,
		registry: reg,
		balancer: bal,
		opts:     opts,
		logger:   o.logger,
		conns:    make(map[string]*Framed),
	}
}

func (d *Discovery) Call(ctx context.Context, req *message.Request) (*message.Response, error) {
	instances, err := d.registry.Discover(ctx, d.service)
	if err != nil {
		return nil, err
	}
	inst, err := d.balancer.Pick(req.Method, instances)
	if err != nil {
		return nil, err
	}
	t, err := d.conn(ctx, inst.Addr)
	if err != nil {
		return nil, err
	}
	return t.Call(ctx, req)
}

func (d *Discovery) conn(ctx context.Context, addr string) (*Framed, error) {
	d.mu.Lock()
	t, ok := d.conns[addr]
	d.mu.Unlock()
	if ok && t.Err() == nil {
		return t, nil
	}

	fresh, err := DialFramed(ctx, "tcp", addr, d.opts...)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// another caller may have dialed the same address meanwhile
	if cur, ok := d.conns[addr]; ok && cur.Err() == nil {
		fresh.Close()
		return cur, nil
	}
	d.logger.Debug("connected", zap.String("service", d.service), zap.String("addr", addr))
	d.conns[addr] = fresh
	return fresh, nil
}

// Close closes every cached connection.
func (d *Discovery) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for addr, t := range d.conns {
		t.Close()
		delete(d.conns, addr)
	}
	return nil
}
