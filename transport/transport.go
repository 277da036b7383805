// Package transport implements the two ways of exchanging envelopes with an
// MCP server: a synchronous HTTP round trip with bounded retry, and a
// persistent WebSocket connection that multiplexes concurrent calls.
//
// The WebSocket transport is the interesting one: each request carries a
// unique correlation id, and a background goroutine (readLoop) continuously
// reads frames and routes each reply to the caller waiting on that id.
//
//	goroutine-1 ──Send(id=a)──┐
//	goroutine-2 ──Send(id=b)──┼──→ single ws conn ──→ Server
//	goroutine-3 ──Send(id=c)──┘
//
//	readLoop:  ←── reply(id=b) → pending[b] chan ← reply → goroutine-2 wakes up
package transport

import (
	"context"
	"errors"
	"fmt"

	"mcp-client/message"
)

// Transport sends one envelope and returns its matched reply.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, env *message.Envelope) (*message.Reply, error)
	Close() error
}

// ConnState describes the WebSocket connection lifecycle. The HTTP transport
// has no connection state; a client using it reports StateDisconnected.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateError:
		return "Error"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

// Sentinel causes carried inside *Error, matchable with errors.Is.
var (
	ErrTimeout        = errors.New("request timed out")
	ErrConnect        = errors.New("failed to connect")
	ErrConnectionLost = errors.New("connection lost")
)

// Error is a transport-level failure: connectivity, handshake, non-2xx
// status or timeout. It is always returned as a value, never panicked, and
// records how many attempts were made before giving up.
type Error struct {
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
