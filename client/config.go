package client

import (
	"fmt"
	"net/url"
	"time"
)

// TransportKind selects how the client reaches the server.
type TransportKind int

const (
	TransportHTTP TransportKind = iota
	TransportWebSocket
)

func (k TransportKind) String() string {
	switch k {
	case TransportHTTP:
		return "HTTP"
	case TransportWebSocket:
		return "WebSocket"
	default:
		return fmt.Sprintf("TransportKind(%d)", int(k))
	}
}

// ParseTransportKind maps the configuration strings "http" and "websocket"
// (case-insensitive, "ws" accepted) to a TransportKind.
func ParseTransportKind(s string) (TransportKind, error) {
	switch s {
	case "http", "HTTP", "Http":
		return TransportHTTP, nil
	case "websocket", "WebSocket", "ws", "WS":
		return TransportWebSocket, nil
	default:
		return TransportHTTP, fmt.Errorf("unknown transport kind %q", s)
	}
}

// Config carries everything a client instance needs. It is immutable for
// the client's lifetime; changing it means building a new client (and, for
// WebSocket, a new connection).
type Config struct {
	ServerURL  string
	APIKey     string        // optional static bearer credential
	Transport  TransportKind
	Timeout    time.Duration // per-call bound, minimum 1s
	MaxRetries int           // HTTP only: additional attempts after the first
	RetryDelay time.Duration // HTTP only: fixed sleep between attempts
}

// DefaultConfig mirrors the defaults the control panel ships with.
func DefaultConfig(serverURL string) Config {
	return Config{
		ServerURL:  serverURL,
		Transport:  TransportHTTP,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Validate checks the ranges the configuration surface promises.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}
	if _, err := url.Parse(c.ServerURL); err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1s, got %v", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be >= 0, got %v", c.RetryDelay)
	}
	return nil
}
