// etcd-backed Registry implementation.
//
// Layout in etcd:
//
//	Key:   /mcp-client/{cluster}/{url-path-escaped}
//	Value: JSON-encoded Endpoint
//
// Registration uses TTL leases: a crashed server stops renewing and its
// entry disappears on its own, so clients never discover ghost endpoints.
package registry

import (
	"context"
	"encoding/json"
	"net/url"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/mcp-client/"

// EtcdRegistry implements Registry on top of etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // thread-safe, shared across goroutines
}

// NewEtcdRegistry connects to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

func clusterPrefix(cluster string) string {
	return keyPrefix + cluster + "/"
}

func endpointKey(cluster, epURL string) string {
	// URLs contain slashes, which would nest under the prefix scheme.
	return clusterPrefix(cluster) + url.PathEscape(epURL)
}

// Register announces an endpoint with a TTL lease and keeps renewing it in
// the background until the registry is closed or the process exits.
func (r *EtcdRegistry) Register(cluster string, ep Endpoint, ttl int64) error {
	ctx := context.TODO()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(ep)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, endpointKey(cluster, ep.URL), string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	// Drain KeepAlive responses so the channel never fills up.
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes an endpoint entry ahead of its lease expiry.
func (r *EtcdRegistry) Deregister(cluster string, epURL string) error {
	_, err := r.client.Delete(context.TODO(), endpointKey(cluster, epURL))
	return err
}

// Discover returns all endpoints currently registered under the cluster.
func (r *EtcdRegistry) Discover(cluster string) ([]Endpoint, error) {
	resp, err := r.client.Get(context.TODO(), clusterPrefix(cluster), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	endpoints := make([]Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			continue // skip malformed entries
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// Watch re-fetches and emits the full endpoint list on every change under
// the cluster prefix. Server-push from etcd, no polling.
func (r *EtcdRegistry) Watch(cluster string) <-chan []Endpoint {
	ctx := context.TODO()
	ch := make(chan []Endpoint, 1)

	go func() {
		watchChan := r.client.Watch(ctx, clusterPrefix(cluster), clientv3.WithPrefix())
		for range watchChan {
			// Re-fetching the list is simpler than folding individual
			// watch events into it.
			endpoints, _ := r.Discover(cluster)
			ch <- endpoints
		}
	}()

	return ch
}

// Close releases the etcd client.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
