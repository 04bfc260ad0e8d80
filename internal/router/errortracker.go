package router

import (
	"sync"
	"time"

	"github.com/mcp-collab/collabd/internal/httpstatus"
)

// ErrorTracker implements the sliding-window malformed-message policy of
// spec §7 "Error handling design": a client that trips too many protocol
// errors in too short a window is a candidate for forced disconnect rather
// than an endless stream of per-message `error` responses.
type ErrorTracker struct {
	window    time.Duration
	threshold int

	mu   sync.Mutex
	hits map[string][]time.Time

	metrics *httpstatus.Metrics
}

// SetMetrics attaches the Prometheus instruments this tracker reports to.
// A nil metrics (the default) disables reporting.
func (t *ErrorTracker) SetMetrics(metrics *httpstatus.Metrics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = metrics
}

// NewErrorTracker builds a tracker that flags a client once it has
// triggered threshold protocol-category errors within window.
func NewErrorTracker(window time.Duration, threshold int) *ErrorTracker {
	return &ErrorTracker{window: window, threshold: threshold, hits: make(map[string][]time.Time)}
}

// Record registers one more protocol error for clientID and reports whether
// the client has now crossed the threshold and should be disconnected.
func (t *ErrorTracker) Record(clientID string) bool {
	now := time.Now()
	cutoff := now.Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	hits := t.hits[clientID]
	kept := hits[:0]
	for _, h := range hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}
	kept = append(kept, now)
	t.hits[clientID] = kept

	tripped := len(kept) >= t.threshold
	if len(kept) == t.threshold && t.metrics != nil {
		t.metrics.ErrorThresholdTrips.Inc()
	}
	return tripped
}

// Forget clears clientID's history, e.g. on disconnect.
func (t *ErrorTracker) Forget(clientID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.hits, clientID)
}
