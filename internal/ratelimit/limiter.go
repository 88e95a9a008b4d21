package ratelimit

import (
	"sync"

	"github.com/wardenhq/warden/internal/observability"
)

// Config holds the rate limiting configuration.
type Config struct {
	// Capacity is the per-user burst allowance.
	Capacity int
	// RefillRate is the sustained per-user rate in requests per second.
	RefillRate int
	// Enabled toggles limiting; when false every request is allowed.
	Enabled bool
}

// UserLimiter rate limits moderation submissions per user. Each user gets
// a token bucket created lazily on first request.
type UserLimiter struct {
	buckets map[string]*TokenBucket
	mu      sync.RWMutex
	config  Config
	metrics observability.MetricsRegistry
}

// NewUserLimiter creates a limiter with the given configuration. A nil
// metrics registry defaults to no-op.
func NewUserLimiter(config Config, metrics observability.MetricsRegistry) *UserLimiter {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &UserLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
		metrics: metrics,
	}
}

// Allow reports whether a request from userID at the given endpoint should
// proceed. Disabled limiters always allow.
func (ul *UserLimiter) Allow(endpoint, userID string) bool {
	if !ul.config.Enabled {
		return true
	}

	ul.metrics.IncrementRateLimitRequests(endpoint)

	ul.mu.RLock()
	bucket, exists := ul.buckets[userID]
	ul.mu.RUnlock()

	if !exists {
		ul.mu.Lock()
		bucket, exists = ul.buckets[userID]
		if !exists {
			bucket = NewTokenBucket(ul.config.Capacity, ul.config.RefillRate)
			ul.buckets[userID] = bucket
		}
		ul.mu.Unlock()
	}

	allowed := bucket.Allow()
	if !allowed {
		ul.metrics.IncrementRateLimitHits(endpoint)
	}
	return allowed
}

// Stats contains rate limiting counters for a single user.
type Stats struct {
	UserID string `json:"user_id"`
	Hits   int64  `json:"hits"`
	Total  int64  `json:"total"`
}

// Snapshot returns per-user rate limiting counters.
func (ul *UserLimiter) Snapshot() map[string]Stats {
	ul.mu.RLock()
	defer ul.mu.RUnlock()

	out := make(map[string]Stats, len(ul.buckets))
	for userID, bucket := range ul.buckets {
		hits, total := bucket.Stats()
		out[userID] = Stats{UserID: userID, Hits: hits, Total: total}
	}
	return out
}
