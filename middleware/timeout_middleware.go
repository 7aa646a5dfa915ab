package middleware

import (
	"context"
	"fmt"
	"time"

	"nano-rpc/message"
	"nano-rpc/service"
)

// Timeout bounds how long the wrapped service may take. The wrapped call keeps running after
// the deadline but its context is cancelled, and its late response is dropped.
func Timeout(timeout time.Duration) Middleware {
	return func(next service.Service) service.Service {
		return service.Func(func(ctx context.Context, req *message.Request) *message.Response {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *message.Response, 1)
			go func() {
				// Recover only sees panics on its own goroutine
				defer func() {
					if r := recover(); r != nil {
						done <- message.NewErrorResponse(req.ID, message.InternalError(fmt.Sprint(r)))
					}
				}()
				done <- next.Respond(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return message.NewErrorResponse(req.ID, message.ServerError("request timed out"))
			}
		})
	}
}
