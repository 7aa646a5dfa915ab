package transport

import (
	"context"
	"sync/atomic"

	"nano-rpc/message"
)

// Error is the uniform failure of a Dyn transport: the name of the transport that failed and
// its original error.
type Error struct {
	Transport string
	Err       error
}

func (e *Error) Error() string {
	return "transport " + e.Transport + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

type named struct {
	name string
	t    Transport
}

// Dyn hides the concrete transport behind a name, and lets it be replaced while calls are in
// flight. Calls already started finish on the transport they began with.
type Dyn struct {
	cur atomic.Pointer[named]
}

func NewDyn(name string, t Transport) *Dyn {
	d := &Dyn{}
	d.Swap(name, t)
	return d
}

// Swap installs t for subsequent calls.
func (d *Dyn) Swap(name string, t Transport) {
	d.cur.Store(&named{name: name, t: t})
}

func (d *Dyn) Name() string {
	return d.cur.Load().name
}

func (d *Dyn) Call(ctx context.Context, req *message.Request) (*message.Response, error) {
	n := d.cur.Load()
	resp, err := n.t.Call(ctx, req)
	if err != nil {
		return nil, &Error{Transport: n.name, Err: err}
	}
	return resp, nil
}
