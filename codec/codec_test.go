package codec

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"mcp-client/message"
)

func TestBuildEnvelopeGeneratesID(t *testing.T) {
	env := BuildEnvelope("", "listWorkflows", nil)

	if env.ID == "" {
		t.Fatal("expected a generated id")
	}
	if _, err := uuid.Parse(env.ID); err != nil {
		t.Fatalf("generated id %q is not a UUID: %v", env.ID, err)
	}
	if env.Type != message.TypeMessage {
		t.Errorf("expected type %q, got %q", message.TypeMessage, env.Type)
	}

	// Two builds must not share an id.
	env2 := BuildEnvelope("", "listWorkflows", nil)
	if env.ID == env2.ID {
		t.Errorf("two generated ids collided: %s", env.ID)
	}
}

func TestBuildEnvelopeKeepsSuppliedID(t *testing.T) {
	env := BuildEnvelope("my-id", "listWorkflows", nil)
	if env.ID != "my-id" {
		t.Fatalf("expected supplied id to survive, got %q", env.ID)
	}
}

func TestBuildOperationEnvelopeShape(t *testing.T) {
	env := BuildOperationEnvelope("addWorkflow", "a,b", message.NullField)

	data, ok := env.Data.(message.OperationData)
	if !ok {
		t.Fatalf("expected OperationData payload, got %T", env.Data)
	}
	if data.Operation != "addWorkflow" {
		t.Errorf("operation: got %q", data.Operation)
	}
	if data.WorkflowIDs != "a,b" {
		t.Errorf("workflowIds: got %q", data.WorkflowIDs)
	}
	if data.Parameters != "null" {
		t.Errorf("parameters: got %q", data.Parameters)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	cdc := &JSONCodec{}
	original := BuildOperationEnvelope("executeWorkflow", "wf-1", `{"x":1}`)

	encoded, err := cdc.Encode(original)
	if err != nil {
		t.Fatal(err)
	}

	var decoded message.Envelope
	if err := cdc.Decode(encoded, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.ID != original.ID {
		t.Errorf("id: got %q, want %q", decoded.ID, original.ID)
	}
	if decoded.Name != original.Name {
		t.Errorf("name: got %q, want %q", decoded.Name, original.Name)
	}
	data, ok := decoded.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected object payload, got %T", decoded.Data)
	}
	if data["operation"] != "executeWorkflow" || data["workflowIds"] != "wf-1" || data["parameters"] != `{"x":1}` {
		t.Errorf("payload fields did not survive the round trip: %v", data)
	}
}

func TestDecodeReply(t *testing.T) {
	cdc := &JSONCodec{}

	reply, err := DecodeReply(cdc, []byte(`{"id":"abc","response":{"status":"ok"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if reply.ID != "abc" {
		t.Errorf("id: got %q", reply.ID)
	}
	if reply.Error != "" {
		t.Errorf("unexpected error field: %q", reply.Error)
	}
}

func TestDecodeReplyMalformed(t *testing.T) {
	cdc := &JSONCodec{}

	_, err := DecodeReply(cdc, []byte(`{not json`))
	if err == nil {
		t.Fatal("expected a decode error")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
}
