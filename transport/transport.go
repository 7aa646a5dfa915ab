// Package transport moves a request to a service and brings its response back.
//
// A transport reports only failures to deliver: a response that carries a JSON-RPC error is a
// successful call at this layer. Implementations in this package:
//
//	Loopback   in-process, through the same bytes path a listener uses
//	HTTP       one POST per call
//	Framed     many concurrent calls multiplexed over one TCP connection
//	Discovery  registry lookup + load balancing in front of Framed connections
//	Retry      backoff around another transport
//	Dyn        a runtime-swappable transport with a uniform error type
package transport

import (
	"context"
	"errors"

	"nano-rpc/message"
)

var ErrClosed = errors.New("transport: connection closed")

// Transport delivers one request. Implementations must be safe for concurrent use.
type Transport interface {
	Call(ctx context.Context, req *message.Request) (*message.Response, error)
}

// Func adapts an ordinary function to Transport.
type Func func(ctx context.Context, req *message.Request) (*message.Response, error)

func (f Func) Call(ctx context.Context, req *message.Request) (*message.Response, error) {
	return f(ctx, req)
}
