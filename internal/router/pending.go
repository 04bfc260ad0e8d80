// Package router implements the Request/Response Router (spec §4.3,
// component C4): validation + auth gating, dispatch, and the pending-request
// table for server-originated requests awaiting a client's reply.
package router

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/mcp-collab/collabd/internal/protoerr"
)

// DefaultRequestTimeout is the deadline applied when the caller doesn't
// specify one (spec §4.3 "default 30 s").
const DefaultRequestTimeout = 30 * time.Second

// PendingRequest is the record described in spec §3 "PendingRequest".
type PendingRequest struct {
	RequestID   string
	RequestType string
	Deadline    time.Time

	index   int // heap index, maintained by container/heap
	resolve func(timedOut bool)
}

type deadlineHeap []*PendingRequest

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].Deadline.Before(h[j].Deadline) }
func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *deadlineHeap) Push(x any) {
	p := x.(*PendingRequest)
	p.index = len(*h)
	*h = append(*h, p)
}
func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	p.index = -1
	*h = old[:n-1]
	return p
}

// PendingStore tracks PendingRequests keyed by requestId and guarantees
// exactly one of {resolution, timeout} fires per entry (spec §8).
//
// It uses a single background goroutine plus a min-heap keyed by deadline
// (spec §9 "Pending-request table"), rather than one timer per entry.
type PendingStore struct {
	mu      sync.Mutex
	entries map[string]*PendingRequest
	heap    deadlineHeap
	wake    chan struct{}
}

// NewPendingStore creates a store and starts its expiry goroutine. The
// goroutine exits when ctx is cancelled (spec §5 "cooperatively cancellable
// at shutdown").
func NewPendingStore(ctx context.Context) *PendingStore {
	s := &PendingStore{
		entries: make(map[string]*PendingRequest),
		wake:    make(chan struct{}, 1),
	}
	go s.run(ctx)
	return s
}

// Register adds a new PendingRequest with the given timeout. onExpire is
// invoked exactly once if the deadline passes before Resolve is called.
// It returns false if requestID is already pending.
func (s *PendingStore) Register(requestID, requestType string, timeout time.Duration, onExpire func()) bool {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	s.mu.Lock()
	if _, exists := s.entries[requestID]; exists {
		s.mu.Unlock()
		return false
	}
	p := &PendingRequest{
		RequestID:   requestID,
		RequestType: requestType,
		Deadline:    time.Now().Add(timeout),
	}
	p.resolve = func(timedOut bool) {
		if timedOut && onExpire != nil {
			onExpire()
		}
	}
	s.entries[requestID] = p
	heap.Push(&s.heap, p)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Resolve removes requestID's entry and reports whether one was pending.
// First-write-wins: a concurrent timeout that already fired leaves nothing
// to resolve, and this correctly returns false.
func (s *PendingStore) Resolve(requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[requestID]
	if !ok {
		return false
	}
	delete(s.entries, requestID)
	if p.index >= 0 && p.index < len(s.heap) {
		heap.Remove(&s.heap, p.index)
	}
	return true
}

// Len reports the number of currently pending requests.
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *PendingStore) run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var next time.Time
		if len(s.heap) > 0 {
			next = s.heap[0].Deadline
		}
		s.mu.Unlock()

		var wait time.Duration
		if next.IsZero() {
			wait = time.Hour
		} else {
			wait = time.Until(next)
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.expireDue()
		case <-s.wake:
		}
	}
}

func (s *PendingStore) expireDue() {
	now := time.Now()
	var expired []*PendingRequest

	s.mu.Lock()
	for len(s.heap) > 0 && !s.heap[0].Deadline.After(now) {
		p := heap.Pop(&s.heap).(*PendingRequest)
		delete(s.entries, p.RequestID)
		expired = append(expired, p)
	}
	s.mu.Unlock()

	for _, p := range expired {
		p.resolve(true)
	}
}

// TimeoutError is the error a caller should surface to its originator when a
// PendingRequest expires (spec §4.3).
func TimeoutError(requestID string) *protoerr.Error {
	return protoerr.New(protoerr.ClientTimeout, requestID, "no response received before the deadline")
}
