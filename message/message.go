// Package message defines the wire types exchanged with an MCP workflow server.
//
// Envelope is the outbound request wrapper. Its ID is the correlation key:
// on the WebSocket transport, replies arrive asynchronously and are routed
// back to the waiting caller purely by matching Reply.ID against Envelope.ID.
package message

import (
	"encoding/json"
	"fmt"
)

// TypeMessage is the only envelope type the protocol defines.
const TypeMessage = "message"

// NullField is the literal placeholder the server expects for an operation
// field that does not apply. The wire contract string-encodes workflowIds and
// parameters, so "not applicable" is the string "null", never an absent key.
const NullField = "null"

// Envelope wraps a single outbound request.
//
//   - ID:   correlation id, unique among in-flight calls on one client
//   - Name: operation name, e.g. "executeWorkflow"
//   - Data: operation payload; OperationData for the fixed operations,
//     arbitrary JSON for custom commands
type Envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
	Data any    `json:"data"`
}

// OperationData is the payload shape shared by the fixed workflow operations.
// WorkflowIDs is a comma-separated id list and Parameters a JSON-encoded
// object; both use NullField when not applicable.
type OperationData struct {
	Operation   string `json:"operation"`
	WorkflowIDs string `json:"workflowIds"`
	Parameters  string `json:"parameters"`
}

// Reply is the inbound response wrapper, matched to its Envelope by ID.
// A non-empty Error means the server processed the request and rejected it;
// otherwise Response holds the operation result.
type Reply struct {
	ID       string          `json:"id"`
	Response json.RawMessage `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Err returns the reply's application-level failure as an *ApplicationError,
// or nil on success. Transport failures never appear here; they are returned
// as errors by the transport itself.
func (r *Reply) Err() error {
	if r.Error != "" {
		return &ApplicationError{Message: r.Error}
	}
	return nil
}

// DecodeResponse unmarshals the success payload into v.
func (r *Reply) DecodeResponse(v any) error {
	if len(r.Response) == 0 {
		return fmt.Errorf("reply %s has no response payload", r.ID)
	}
	return json.Unmarshal(r.Response, v)
}

// ApplicationError is a well-formed Reply carrying an error field: the server
// understood the request and refused it. Never retried by any transport.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

// Workflow describes one workflow as returned by listWorkflows and
// searchWorkflows. Parameters is a JSON-schema string, or "null"/empty when
// the workflow takes none.
type Workflow struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Active     bool   `json:"active,omitempty"`
	Parameters string `json:"parameters,omitempty"`
}
