package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// moderation decisions, labelled by content type and resulting action
	DecisionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_decisions_total",
			Help: "Total moderation decisions",
		},
		[]string{"content_type", "action"},
	)

	// moderation analysis latency per content type
	ModerationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_moderation_duration_seconds",
			Help:    "Histogram of moderation analysis latencies",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"content_type"},
	)

	// scorer faults recovered by failing open
	ScoringFailureCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_scoring_failures_total",
			Help: "Total scorer failures recovered by fail-open",
		},
		[]string{"content_type"},
	)

	// appeal lifecycle events: created, approved, rejected
	AppealCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_appeals_total",
			Help: "Total appeal lifecycle events",
		},
		[]string{"event"},
	)

	// reputation events applied, labelled by event kind
	ReputationEventCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_reputation_events_total",
			Help: "Total reputation events applied",
		},
		[]string{"event"},
	)

	// log/analytics persistence errors (decisions still returned)
	PersistErrorCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_persist_errors_total",
			Help: "Total persistence errors on the moderation path",
		},
	)

	// rate limiter activity per endpoint
	RateLimitRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_ratelimit_requests_total",
			Help: "Total requests checked against the rate limiter",
		},
		[]string{"endpoint"},
	)

	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_ratelimit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)
)

// RegisterMetrics registers all collectors with the default registry.
// Call once at startup.
func RegisterMetrics() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		DecisionCount,
		ModerationLatency,
		ScoringFailureCount,
		AppealCount,
		ReputationEventCount,
		PersistErrorCount,
		RateLimitRequests,
		RateLimitHits,
	)
}
