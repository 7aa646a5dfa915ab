package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"nano-rpc/message"
	"nano-rpc/service"
)

// Logging records every exchange: method, id, duration and, for failures, the error code.
func Logging(logger *zap.Logger) Middleware {
	return func(next service.Service) service.Service {
		return service.Func(func(ctx context.Context, req *message.Request) *message.Response {
			start := time.Now()
			resp := next.Respond(ctx, req)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.Stringer("id", req.ID),
				zap.Duration("duration", time.Since(start)),
			}
			if resp.Error != nil {
				logger.Warn("rpc failed", append(fields,
					zap.Int("code", resp.Error.Code),
					zap.String("error", resp.Error.Message))...)
				return resp
			}
			logger.Debug("rpc", fields...)
			return resp
		})
	}
}
