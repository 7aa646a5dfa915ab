package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"nano-rpc/message"
	"nano-rpc/service"
)

// RateLimit rejects requests beyond a token bucket of r requests per second with the given
// burst. Rejected requests never reach the wrapped service.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next service.Service) service.Service {
		return service.Func(func(ctx context.Context, req *message.Request) *message.Response {
			if !limiter.Allow() {
				return message.NewErrorResponse(req.ID, message.ServerError("rate limit exceeded"))
			}
			return next.Respond(ctx, req)
		})
	}
}
