package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mcp-client/message"
)

// Logging logs every invocation with its operation, correlation id, duration
// and outcome. Application-level errors inside a well-formed reply are logged
// too; they matter as much to an operator as transport failures.
func Logging(logger *zap.Logger) Middleware {
	return func(next InvokeFunc) InvokeFunc {
		return func(ctx context.Context, env *message.Envelope) (*message.Reply, error) {
			start := time.Now()
			reply, err := next(ctx, env)
			fields := []zap.Field{
				zap.String("operation", env.Name),
				zap.String("id", env.ID),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case err != nil:
				logger.Error("request failed", append(fields, zap.Error(err))...)
			case reply.Error != "":
				logger.Warn("server rejected request", append(fields, zap.String("server_error", reply.Error))...)
			default:
				logger.Debug("request completed", fields...)
			}
			return reply, err
		}
	}
}
