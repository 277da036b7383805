// Package middleware wraps the client's invoke path with cross-cutting
// behavior. Retry and timeout live inside the transports, so what remains
// here is what applies uniformly to both: logging and rate limiting.
package middleware

import (
	"context"

	"mcp-client/message"
)

// InvokeFunc is the signature of one request/reply exchange.
type InvokeFunc func(ctx context.Context, env *message.Envelope) (*message.Reply, error)

// Middleware wraps an InvokeFunc with additional behavior.
type Middleware func(next InvokeFunc) InvokeFunc

// Chain combines middlewares into one; the first listed runs outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next InvokeFunc) InvokeFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
