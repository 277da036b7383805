// Package codec builds and serializes protocol envelopes.
//
// The MCP wire format is JSON on both transports (HTTP request bodies and
// WebSocket text frames), so there is a single Codec implementation. The
// interface stays because tests and the transports only need Encode/Decode,
// not a concrete type.
package codec

import (
	"fmt"

	"mcp-client/message"
)

// Codec serializes values to and from the wire.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// DecodeError wraps a failure to parse inbound wire bytes.
//
// For an unsolicited WebSocket frame the receive loop logs it and keeps
// running; it only reaches a caller when the malformed bytes were the direct
// reply to that caller's own request.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode wire message: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeReply parses wire bytes into a Reply using c.
func DecodeReply(c Codec, data []byte) (*message.Reply, error) {
	var reply message.Reply
	if err := c.Decode(data, &reply); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &reply, nil
}
