package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects build execution metrics for production hosts.
//
// Metrics exposed (namespaced "nodegraph_"):
//
//  1. builds_total (counter): finished builds by status
//     (success/error/canceled).
//  2. node_latency_ms (histogram): per-node execution duration.
//     Labels: node_id, status. Buckets 1ms to 10s.
//  3. node_failures_total (counter): node failures by reason
//     (verify/execute).
//  4. queue_depth (gauge): nodes remaining in the current build queue.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	engine := graph.NewEngine(g, graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	builds      *prometheus.CounterVec
	nodeLatency *prometheus.HistogramVec
	failures    *prometheus.CounterVec
	queueDepth  prometheus.Gauge

	enabled bool
}

// NewPrometheusMetrics creates and registers all build metrics with the
// provided registry. A nil registry falls back to the default registerer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	pm := &PrometheusMetrics{enabled: true}

	pm.builds = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nodegraph",
		Name:      "builds_total",
		Help:      "Finished builds by terminal status",
	}, []string{"status"}) // status: success, error, canceled

	pm.nodeLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nodegraph",
		Name:      "node_latency_ms",
		Help:      "Node execution duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
	}, []string{"node_id", "status"}) // status: success, error

	pm.failures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nodegraph",
		Name:      "node_failures_total",
		Help:      "Cumulative node failures by reason",
	}, []string{"node_id", "reason"}) // reason: verify, execute

	pm.queueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "nodegraph",
		Name:      "queue_depth",
		Help:      "Nodes remaining in the current build queue",
	})

	return pm
}

// BuildFinished counts a finished build under its terminal status.
func (pm *PrometheusMetrics) BuildFinished(status string) {
	if !pm.enabled {
		return
	}
	pm.builds.WithLabelValues(status).Inc()
	pm.queueDepth.Set(0)
}

// RecordNodeLatency records one node execution's duration.
func (pm *PrometheusMetrics) RecordNodeLatency(nodeID string, latency time.Duration, status string) {
	if !pm.enabled {
		return
	}
	pm.nodeLatency.WithLabelValues(nodeID, status).Observe(float64(latency.Milliseconds()))
}

// IncrementFailures counts a node failure under the given reason.
func (pm *PrometheusMetrics) IncrementFailures(nodeID, reason string) {
	if !pm.enabled {
		return
	}
	pm.failures.WithLabelValues(nodeID, reason).Inc()
}

// UpdateQueueDepth sets the remaining-node gauge.
func (pm *PrometheusMetrics) UpdateQueueDepth(depth int) {
	if !pm.enabled {
		return
	}
	pm.queueDepth.Set(float64(depth))
}

// Disable turns the collector into a no-op without unregistering metrics.
func (pm *PrometheusMetrics) Disable() {
	pm.enabled = false
}
