// End-to-end tests: a real client against the in-process server, over both
// transports, with the full middleware and metrics stack attached.
package test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"mcp-client/client"
	"mcp-client/message"
	"mcp-client/metrics"
	"mcp-client/middleware"
	"mcp-client/server"
	"mcp-client/transport"
)

func startServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	srv := server.New(server.Options{APIKey: apiKey})
	srv.Seed(
		message.Workflow{ID: "wf-1", Name: "Deploy", Active: true,
			Parameters: `{"properties":{"env":{"type":"string"},"replicas":{"type":"integer"}}}`},
		message.Workflow{ID: "wf-2", Name: "Backup"},
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T, url, apiKey string, kind client.TransportKind) *client.Client {
	t.Helper()
	cfg := client.Config{
		ServerURL:  url,
		APIKey:     apiKey,
		Transport:  kind,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: 50 * time.Millisecond,
	}
	c, err := client.New(cfg,
		client.WithLogger(zap.NewNop()),
		client.WithMetrics(metrics.New()),
		client.WithMiddleware(middleware.Logging(zap.NewNop()), middleware.RateLimit(100, 100)),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func runWorkflowLifecycle(t *testing.T, c *client.Client) {
	ctx := context.Background()

	reply, err := c.ListWorkflows(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var workflows []message.Workflow
	if err := reply.DecodeResponse(&workflows); err != nil {
		t.Fatal(err)
	}
	if len(workflows) != 2 {
		t.Fatalf("expected 2 seeded workflows, got %d", len(workflows))
	}

	schema := client.ParseParameterSchema(workflows[0].Parameters)
	if schema.Properties["replicas"].Type != "integer" {
		t.Errorf("schema did not survive the round trip: %+v", schema)
	}

	if reply, err = c.AddWorkflow(ctx, "wf-3,wf-4"); err != nil {
		t.Fatal(err)
	} else if reply.Error != "" {
		t.Fatalf("add: %s", reply.Error)
	}

	reply, err = c.ExecuteWorkflow(ctx, "wf-1", map[string]any{"env": "prod", "replicas": 3})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Error != "" {
		t.Fatalf("execute: %s", reply.Error)
	}
	var result struct {
		Status string         `json:"status"`
		Output map[string]any `json:"output"`
	}
	if err := reply.DecodeResponse(&result); err != nil {
		t.Fatal(err)
	}
	if result.Status != "ok" || result.Output["env"] != "prod" {
		t.Errorf("execute result: %+v", result)
	}

	// Application error: well-formed reply, not a transport failure.
	reply, err = c.ExecuteWorkflow(ctx, "ghost", nil)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Error == "" {
		t.Error("executing an unknown workflow should yield an application error")
	}

	if reply, err = c.RemoveWorkflow(ctx, "wf-3"); err != nil {
		t.Fatal(err)
	} else if reply.Error != "" {
		t.Fatalf("remove: %s", reply.Error)
	}

	if reply, err = c.CustomCommand(ctx, "frobnicate", map[string]any{"k": "v"}); err != nil {
		t.Fatal(err)
	} else if reply.Error == "" {
		t.Error("the stub server should reject unmodeled custom commands")
	}

	if len(c.History()) == 0 {
		t.Error("history should record the calls")
	}
}

func TestLifecycleOverHTTP(t *testing.T) {
	ts := startServer(t, "secret")
	c := newClient(t, ts.URL, "secret", client.TransportHTTP)
	runWorkflowLifecycle(t, c)

	if c.State() != transport.StateDisconnected {
		t.Errorf("HTTP client state: got %v", c.State())
	}
}

func TestLifecycleOverWebSocket(t *testing.T) {
	ts := startServer(t, "secret")
	c := newClient(t, ts.URL, "secret", client.TransportWebSocket)
	runWorkflowLifecycle(t, c)

	if c.State() != transport.StateConnected {
		t.Errorf("WebSocket client state after traffic: got %v", c.State())
	}

	c.Close()
	if c.State() != transport.StateDisconnected {
		t.Errorf("state after Close: got %v", c.State())
	}
}

func TestConcurrentCallsOverWebSocket(t *testing.T) {
	ts := startServer(t, "")
	c := newClient(t, ts.URL, "", client.TransportWebSocket)

	const callers = 8
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			_, err := c.ListWorkflows(context.Background())
			errs <- err
		}()
	}
	for i := 0; i < callers; i++ {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
	}
}
