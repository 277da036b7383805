// Package metrics holds the Prometheus registry and meters shared by the
// transports. All methods are nil-safe so instrumentation stays optional: a
// transport built without metrics simply carries a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles a private Prometheus registry with the standard client meters.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	PendingCalls    prometheus.Gauge
}

// New creates a registry with the standard mcp-client meters registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_client_requests_total",
		Help: "Total requests issued, by transport, operation and outcome.",
	}, []string{"transport", "operation", "status"})

	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_client_retries_total",
		Help: "Total retry attempts on the HTTP transport.",
	}, []string{"operation"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcp_client_request_duration_seconds",
		Help:    "Wall time per request, including retries and backoff sleeps.",
		Buckets: prometheus.DefBuckets,
	}, []string{"transport", "operation"})

	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mcp_client_pending_calls",
		Help: "WebSocket calls currently awaiting a correlated reply.",
	})

	reg.MustRegister(requests, retries, duration, pending)

	return &Metrics{
		Registry:        reg,
		RequestsTotal:   requests,
		RetriesTotal:    retries,
		RequestDuration: duration,
		PendingCalls:    pending,
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(transport, operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(transport, operation, status).Inc()
	m.RequestDuration.WithLabelValues(transport, operation).Observe(elapsed.Seconds())
}

// ObserveRetry records one retry attempt.
func (m *Metrics) ObserveRetry(operation string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(operation).Inc()
}

// PendingAdd moves the pending-call gauge by delta.
func (m *Metrics) PendingAdd(delta float64) {
	if m == nil {
		return
	}
	m.PendingCalls.Add(delta)
}
