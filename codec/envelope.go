package codec

import (
	"github.com/google/uuid"

	"mcp-client/message"
)

// BuildEnvelope constructs the outbound request wrapper for one call.
// If id is empty a fresh random UUID is generated. Uniqueness only has to
// hold among calls in flight on the same client, which a v4 UUID gives with
// margin to spare.
func BuildEnvelope(id, operationName string, data any) *message.Envelope {
	if id == "" {
		id = uuid.NewString()
	}
	return &message.Envelope{
		ID:   id,
		Type: message.TypeMessage,
		Name: operationName,
		Data: data,
	}
}

// BuildOperationEnvelope is BuildEnvelope for the fixed workflow operations,
// which share the operation/workflowIds/parameters payload shape.
func BuildOperationEnvelope(operationName, workflowIDs, parameters string) *message.Envelope {
	return BuildEnvelope("", operationName, message.OperationData{
		Operation:   operationName,
		WorkflowIDs: workflowIDs,
		Parameters:  parameters,
	})
}
