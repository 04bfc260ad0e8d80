package router

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures the per-client token bucket backing
// CLIENT_RATE_LIMITED (spec §4.3 "Rate limiting").
type RateLimiterConfig struct {
	// RequestsPerSecond is the sustained rate each client is allowed.
	RequestsPerSecond float64
	// Burst is the bucket size, allowing short bursts above the sustained rate.
	Burst int
}

// DefaultRateLimiterConfig matches the spec's suggested default of 20
// requests/second with a burst of 40.
var DefaultRateLimiterConfig = RateLimiterConfig{RequestsPerSecond: 20, Burst: 40}

// RateLimiter tracks one golang.org/x/time/rate.Limiter per clientId, created
// lazily on first use and never shared across clients (spec §5 "per-client
// state, no cross-client interference").
type RateLimiter struct {
	cfg      RateLimiterConfig
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter builds a RateLimiter. A zero-value cfg.RequestsPerSecond
// disables limiting entirely (Allow always returns true).
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{cfg: cfg, limiters: make(map[string]*rate.Limiter)}
}

// Allow reports whether clientID may proceed with one more request now.
func (r *RateLimiter) Allow(clientID string) bool {
	if r.cfg.RequestsPerSecond <= 0 {
		return true
	}
	return r.limiterFor(clientID).Allow()
}

// Forget drops clientID's bucket on disconnect, so reconnecting clients
// start fresh rather than leaking unbounded map growth.
func (r *RateLimiter) Forget(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, clientID)
}

func (r *RateLimiter) limiterFor(clientID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[clientID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.cfg.RequestsPerSecond), r.cfg.Burst)
		r.limiters[clientID] = l
	}
	return l
}
