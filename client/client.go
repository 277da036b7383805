// Package client is the facade the rest of an application talks to: one
// generic Invoke plus a named wrapper per workflow operation. It hides which
// transport is underneath; callers get back a Reply or an error value either
// way, never a panic.
package client

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"mcp-client/codec"
	"mcp-client/loadbalance"
	"mcp-client/message"
	"mcp-client/metrics"
	"mcp-client/middleware"
	"mcp-client/registry"
	"mcp-client/transport"
)

// Operation names understood by the server.
const (
	OpListWorkflows   = "listWorkflows"
	OpSearchWorkflows = "searchWorkflows"
	OpAddWorkflow     = "addWorkflow"
	OpRemoveWorkflow  = "removeWorkflow"
	OpExecuteWorkflow = "executeWorkflow"
)

// Client is a workflow-automation RPC client bound to one server and one
// transport for its lifetime.
type Client struct {
	cfg     Config
	tr      transport.Transport
	ws      *transport.WSTransport // non-nil only on the WebSocket path
	invoke  middleware.InvokeFunc
	logger  *zap.Logger
	history *History
}

type options struct {
	logger      *zap.Logger
	metrics     *metrics.Metrics
	codec       codec.Codec
	middlewares []middleware.Middleware
	transport   transport.Transport
	registry    registry.Registry
	cluster     string
	balancer    loadbalance.Balancer
	historySize int
}

// Option customizes a Client beyond its Config.
type Option func(*options)

// WithLogger sets the structured logger (default: no-op).
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics plugs in a Prometheus meter set shared with the transports.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCodec overrides the wire codec. Tests use this; production traffic is
// always JSON.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithMiddleware appends middlewares around the invoke path, outermost first.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// WithTransport substitutes the transport wholesale, bypassing ServerURL and
// Transport kind. Intended for tests.
func WithTransport(tr transport.Transport) Option {
	return func(o *options) { o.transport = tr }
}

// WithRegistry resolves the server URL through an endpoint registry instead
// of Config.ServerURL: the cluster's endpoints are discovered once at
// construction and one is picked by the balancer.
func WithRegistry(reg registry.Registry, cluster string, bal loadbalance.Balancer) Option {
	return func(o *options) {
		o.registry = reg
		o.cluster = cluster
		o.balancer = bal
	}
}

// WithHistorySize bounds the in-memory call history ring (default 256).
func WithHistorySize(n int) Option {
	return func(o *options) { o.historySize = n }
}

// New builds a client from cfg, selecting the HTTP or WebSocket transport.
// The WebSocket connection is not opened here; it comes up on Connect or the
// first call.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger:      zap.NewNop(),
		codec:       &codec.JSONCodec{},
		historySize: 256,
	}
	for _, opt := range opts {
		opt(&o)
	}

	serverURL := cfg.ServerURL
	if o.registry != nil {
		resolved, err := resolveEndpoint(o.registry, o.cluster, o.balancer)
		if err != nil {
			return nil, err
		}
		o.logger.Info("resolved server endpoint",
			zap.String("cluster", o.cluster),
			zap.String("url", resolved),
			zap.String("balancer", o.balancer.Name()))
		serverURL = resolved
	}

	c := &Client{
		cfg:     cfg,
		logger:  o.logger,
		history: newHistory(o.historySize),
	}

	switch {
	case o.transport != nil:
		c.tr = o.transport
		if ws, ok := o.transport.(*transport.WSTransport); ok {
			c.ws = ws
		}
	case cfg.Transport == TransportWebSocket:
		ws, err := transport.NewWS(transport.WSOptions{
			URL:     serverURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
			Codec:   o.codec,
			Logger:  o.logger,
			Metrics: o.metrics,
		})
		if err != nil {
			return nil, err
		}
		c.tr = ws
		c.ws = ws
	default:
		c.tr = transport.NewHTTP(transport.HTTPOptions{
			URL:        serverURL,
			APIKey:     cfg.APIKey,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			Codec:      o.codec,
			Logger:     o.logger,
			Metrics:    o.metrics,
		})
	}

	c.invoke = middleware.Chain(o.middlewares...)(c.tr.Send)
	return c, nil
}

func resolveEndpoint(reg registry.Registry, cluster string, bal loadbalance.Balancer) (string, error) {
	endpoints, err := reg.Discover(cluster)
	if err != nil {
		return "", fmt.Errorf("discover cluster %q: %w", cluster, err)
	}
	ep, err := bal.Pick(endpoints)
	if err != nil {
		return "", fmt.Errorf("pick endpoint for cluster %q: %w", cluster, err)
	}
	return ep.URL, nil
}

// Invoke sends one operation with an arbitrary payload and returns the
// correlated reply. All named operations funnel through here.
func (c *Client) Invoke(ctx context.Context, operationName string, data any) (*message.Reply, error) {
	env := codec.BuildEnvelope("", operationName, data)
	reply, err := c.invoke(ctx, env)
	c.history.add(env, reply, err)
	return reply, err
}

func (c *Client) operation(ctx context.Context, name, workflowIDs, parameters string) (*message.Reply, error) {
	return c.Invoke(ctx, name, message.OperationData{
		Operation:   name,
		WorkflowIDs: workflowIDs,
		Parameters:  parameters,
	})
}

// ListWorkflows returns the workflows currently available on the server.
func (c *Client) ListWorkflows(ctx context.Context) (*message.Reply, error) {
	return c.operation(ctx, OpListWorkflows, message.NullField, message.NullField)
}

// SearchWorkflows searches the server's full workflow catalog.
func (c *Client) SearchWorkflows(ctx context.Context) (*message.Reply, error) {
	return c.operation(ctx, OpSearchWorkflows, message.NullField, message.NullField)
}

// AddWorkflow registers workflow id(s) with the server's available pool.
// Multiple ids are comma-separated, matching the wire contract.
func (c *Client) AddWorkflow(ctx context.Context, workflowIDs string) (*message.Reply, error) {
	return c.operation(ctx, OpAddWorkflow, workflowIDs, message.NullField)
}

// RemoveWorkflow removes workflow id(s) from the server's available pool.
func (c *Client) RemoveWorkflow(ctx context.Context, workflowIDs string) (*message.Reply, error) {
	return c.operation(ctx, OpRemoveWorkflow, workflowIDs, message.NullField)
}

// ExecuteWorkflow runs one workflow with the given parameters. The parameter
// object travels JSON-encoded inside the payload string; nil encodes as the
// "null" placeholder.
func (c *Client) ExecuteWorkflow(ctx context.Context, workflowID string, parameters map[string]any) (*message.Reply, error) {
	encoded, err := json.Marshal(parameters)
	if err != nil {
		return nil, err
	}
	return c.operation(ctx, OpExecuteWorkflow, workflowID, string(encoded))
}

// CustomCommand sends data verbatim under a caller-chosen operation name,
// the escape hatch for server operations not modeled here.
func (c *Client) CustomCommand(ctx context.Context, name string, data any) (*message.Reply, error) {
	return c.Invoke(ctx, name, data)
}

// Connect brings the WebSocket connection up ahead of the first call.
// No-op on the HTTP transport.
func (c *Client) Connect() {
	if c.ws != nil {
		c.ws.Connect()
	}
}

// State reports the connection state for status displays. The HTTP path has
// no persistent connection and always reads Disconnected.
func (c *Client) State() transport.ConnState {
	if c.ws != nil {
		return c.ws.State()
	}
	return transport.StateDisconnected
}

// Close tears down the transport. In-flight WebSocket calls fail with a
// connection-lost error rather than hang.
func (c *Client) Close() error {
	return c.tr.Close()
}
