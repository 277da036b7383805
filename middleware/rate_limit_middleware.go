package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"mcp-client/message"
)

// ErrRateLimited is returned when the local token bucket is empty.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimit caps the outbound request rate with a token bucket of r
// requests per second and the given burst. Rejected calls fail fast rather
// than queue, so an overloaded caller notices immediately.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next InvokeFunc) InvokeFunc {
		return func(ctx context.Context, env *message.Envelope) (*message.Reply, error) {
			if !limiter.Allow() {
				return nil, ErrRateLimited
			}
			return next(ctx, env)
		}
	}
}
