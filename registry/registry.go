// Package registry lets MCP servers announce themselves and clients discover
// them, instead of hard-wiring a single ServerURL. A deployment with one
// static server simply skips this package.
package registry

// Endpoint is one reachable MCP server within a cluster.
type Endpoint struct {
	URL     string
	Weight  int // relative share for weighted balancing
	Version string
}

// Registry tracks the live endpoints of a named server cluster.
type Registry interface {
	// Register announces an endpoint under the cluster name with a TTL in
	// seconds; the entry expires if the registrant stops renewing it.
	Register(cluster string, ep Endpoint, ttl int64) error

	// Deregister removes an endpoint explicitly, for graceful shutdown.
	Deregister(cluster string, epURL string) error

	// Discover returns all currently registered endpoints for the cluster.
	Discover(cluster string) ([]Endpoint, error)

	// Watch emits the updated endpoint list whenever the cluster changes.
	Watch(cluster string) <-chan []Endpoint
}
