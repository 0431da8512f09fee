// Package metrics provides Prometheus metrics for the routing core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "llmgate"

var (
	// RequestsTotal counts routed requests by tenant, provider, and outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total routed LLM requests",
		},
		[]string{"tenant", "provider", "status"},
	)

	// RequestDuration observes end-to-end latency of routed calls.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end latency of routed LLM requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// CacheOps counts cache operations by backend and result.
	CacheOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_ops_total",
			Help:      "Cache operations by backend and result",
		},
		[]string{"backend", "op", "result"},
	)

	// EgressViolations counts provider allow-list violations by tenant and mode.
	EgressViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "egress_violations_total",
			Help:      "Egress policy violations detected by the guard pipeline",
		},
		[]string{"tenant", "mode"},
	)

	// RedactionsApplied counts requests whose payload was rewritten by the sanitizer.
	RedactionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redactions_applied_total",
			Help:      "Requests whose outbound payload was rewritten by the sanitizer",
		},
		[]string{"tenant"},
	)

	// StreamErrors counts streams terminated by an error chunk.
	StreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_errors_total",
			Help:      "Streams terminated with an error chunk",
		},
		[]string{"provider"},
	)
)
