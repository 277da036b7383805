package client

import (
	"encoding/json"
	"fmt"
	"strconv"

	"mcp-client/message"
)

// ParameterSchema is the JSON-schema fragment a workflow advertises for its
// parameters: an object with typed properties.
type ParameterSchema struct {
	Properties map[string]ParameterSpec `json:"properties"`
}

// ParameterSpec describes one workflow parameter.
type ParameterSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ParseParameterSchema parses a workflow's parameters field. The server
// sends "null" (or nothing) for parameterless workflows; both parse to an
// empty schema rather than an error, as does any non-object payload.
func ParseParameterSchema(raw string) ParameterSchema {
	if raw == "" || raw == message.NullField {
		return ParameterSchema{}
	}
	var schema ParameterSchema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return ParameterSchema{}
	}
	return schema
}

// Coerce converts a raw string value to the Go type matching the spec's
// declared type. Unknown types pass through as strings; this is basic type
// coercion only, full validation stays with the calling layer.
func (s ParameterSpec) Coerce(raw string) (any, error) {
	switch s.Type {
	case "number":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %q", raw)
		}
		return v, nil
	case "integer":
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", raw)
		}
		return v, nil
	case "boolean":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %q", raw)
		}
		return v, nil
	case "object":
		var v map[string]any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("expected JSON object, got %q", raw)
		}
		return v, nil
	case "array":
		var v []any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("expected JSON array, got %q", raw)
		}
		return v, nil
	default:
		return raw, nil
	}
}
