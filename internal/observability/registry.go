package observability

import "time"

// MetricsRegistry abstracts metric recording so components take an
// injected dependency instead of reaching for the Prometheus globals.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Moderation decision metrics
	IncrementDecisions(contentType, action string)
	RecordModerationLatency(contentType string, duration time.Duration)
	IncrementScoringFailures(contentType string)

	// Appeal metrics
	IncrementAppeals(event string)

	// Reputation metrics
	IncrementReputationEvents(event string)

	// Persistence metrics
	IncrementPersistErrors()

	// Rate limiter metrics
	IncrementRateLimitRequests(endpoint string)
	IncrementRateLimitHits(endpoint string)
}

// PrometheusRegistry implements MetricsRegistry on the package's
// Prometheus collectors.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementDecisions(contentType, action string) {
	DecisionCount.WithLabelValues(contentType, action).Inc()
}

func (r *PrometheusRegistry) RecordModerationLatency(contentType string, duration time.Duration) {
	ModerationLatency.WithLabelValues(contentType).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementScoringFailures(contentType string) {
	ScoringFailureCount.WithLabelValues(contentType).Inc()
}

func (r *PrometheusRegistry) IncrementAppeals(event string) {
	AppealCount.WithLabelValues(event).Inc()
}

func (r *PrometheusRegistry) IncrementReputationEvents(event string) {
	ReputationEventCount.WithLabelValues(event).Inc()
}

func (r *PrometheusRegistry) IncrementPersistErrors() {
	PersistErrorCount.Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitRequests(endpoint string) {
	RateLimitRequests.WithLabelValues(endpoint).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitHits(endpoint string) {
	RateLimitHits.WithLabelValues(endpoint).Inc()
}

// NoOpRegistry discards all metrics. Useful in tests and tools that don't
// expose an endpoint.
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry.
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementDecisions(contentType, action string)                        {}
func (r *NoOpRegistry) RecordModerationLatency(contentType string, duration time.Duration)   {}
func (r *NoOpRegistry) IncrementScoringFailures(contentType string)                          {}
func (r *NoOpRegistry) IncrementAppeals(event string)                                        {}
func (r *NoOpRegistry) IncrementReputationEvents(event string)                               {}
func (r *NoOpRegistry) IncrementPersistErrors()                                              {}
func (r *NoOpRegistry) IncrementRateLimitRequests(endpoint string)                           {}
func (r *NoOpRegistry) IncrementRateLimitHits(endpoint string)                               {}
