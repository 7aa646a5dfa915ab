// Package middleware wraps a service.Service with cross-cutting behavior.
//
// Middlewares compose like an onion: Chain(A, B, C)(svc) runs A's prologue first and A's
// epilogue last. Every middleware keeps the service contract: it always returns a response
// carrying the request's id.
package middleware

import (
	"nano-rpc/service"
)

type Middleware func(next service.Service) service.Service

// Chain combines middlewares so that the first one is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next service.Service) service.Service {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Apply wraps svc with the given middlewares.
func Apply(svc service.Service, middlewares ...Middleware) service.Service {
	return Chain(middlewares...)(svc)
}
