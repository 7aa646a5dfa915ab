// Package service defines the server side of a JSON-RPC exchange.
//
// A Service turns a request into a response and never fails: unknown methods, undecodable
// params and business-logic failures are all reported as error responses carrying the
// request's id.
package service

import (
	"context"

	"nano-rpc/codec"
	"nano-rpc/message"
)

// Service answers one request. Implementations must be safe for concurrent use and must
// return a non-nil response.
type Service interface {
	Respond(ctx context.Context, req *message.Request) *message.Response
}

// Func adapts an ordinary function to Service.
type Func func(ctx context.Context, req *message.Request) *message.Response

func (f Func) Respond(ctx context.Context, req *message.Request) *message.Response {
	return f(ctx, req)
}

// NotFound answers every request with method-not-found.
var NotFound Service = Func(func(_ context.Context, req *message.Request) *message.Response {
	return message.NewErrorResponse(req.ID, message.MethodNotFound(req.Method))
})

// IsNotFound reports whether resp is a method-not-found error.
func IsNotFound(resp *message.Response) bool {
	return resp != nil && resp.Error != nil && resp.Error.Code == message.CodeMethodNotFound
}

type orService struct {
	first  Service
	second Service
}

// Or tries first and falls back to second only when first does not know the method.
// Any other outcome of first, errors included, is returned as-is.
func Or(first, second Service) Service {
	return orService{first: first, second: second}
}

func (s orService) Respond(ctx context.Context, req *message.Request) *message.Response {
	resp := s.first.Respond(ctx, req)
	if IsNotFound(resp) {
		return s.second.Respond(ctx, req)
	}
	return resp
}

// Chain composes services with Or, in order.
func Chain(services ...Service) Service {
	if len(services) == 0 {
		return NotFound
	}
	svc := services[len(services)-1]
	for i := len(services) - 2; i >= 0; i-- {
		svc = Or(services[i], svc)
	}
	return svc
}

// Handle decodes an untrusted request body and answers it.
//
// Bytes that do not decode produce a parse error with a null id; a decodable but invalid
// envelope produces an invalid-request error echoing whatever id it carried.
func Handle(ctx context.Context, svc Service, c codec.Codec, body []byte) *message.Response {
	var req message.Request
	if err := c.Decode(body, &req); err != nil {
		return message.NewErrorResponse(message.NullID(), message.ParseError(err.Error()))
	}
	if err := req.Validate(); err != nil {
		id := req.ID
		if !id.Valid() {
			id = message.NullID()
		}
		return message.NewErrorResponse(id, message.InvalidRequest(err.Error()))
	}

	resp := svc.Respond(ctx, &req)
	if resp == nil {
		resp = message.NewErrorResponse(req.ID, message.InternalError("no response"))
	}
	return resp
}

// Serve is Handle followed by encoding the response with the same codec.
func Serve(ctx context.Context, svc Service, c codec.Codec, body []byte) ([]byte, error) {
	return c.Encode(Handle(ctx, svc, c, body))
}
