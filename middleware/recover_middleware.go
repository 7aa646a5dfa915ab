package middleware

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nano-rpc/message"
	"nano-rpc/service"
)

// Recover turns a panic in the wrapped service into an internal-error response.
func Recover(logger *zap.Logger) Middleware {
	return func(next service.Service) service.Service {
		return service.Func(func(ctx context.Context, req *message.Request) (resp *message.Response) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("rpc panic", zap.String("method", req.Method), zap.Any("panic", r))
					resp = message.NewErrorResponse(req.ID, message.InternalError(fmt.Sprint(r)))
				}
			}()
			return next.Respond(ctx, req)
		})
	}
}
