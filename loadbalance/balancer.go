// Package loadbalance picks one MCP server endpoint from a discovered list.
//
// Two strategies:
//   - RoundRobin:      equal-capacity servers
//   - WeightedRandom:  heterogeneous servers with per-endpoint weights
package loadbalance

import "mcp-client/registry"

// Balancer selects one endpoint from the available list.
// Pick runs on every resolution and must be goroutine-safe.
type Balancer interface {
	Pick(endpoints []registry.Endpoint) (*registry.Endpoint, error)

	// Name identifies the strategy in logs.
	Name() string
}
