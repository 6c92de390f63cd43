// Package gateway is the C9 Session Gateway: a per-user bidirectional
// websocket stream mounted on a gin router, grounded on the teacher's
// sync.RWMutex-guarded-map idiom (same shape as rag/sparse_index.go's
// BM25Index) for the per-user connection/rate-limit/preferences state, and
// on semaj90-mau5law's go-chat-service for the gorilla/websocket-on-gin
// wiring (Upgrader with a permissive CheckOrigin, one goroutine per
// connection).
package gateway

import (
	"sync"
	"time"
)

// RateLimiter enforces spec.md §4.9's exact sliding-window law: a request is
// accepted only while the count of retained timestamps within the last
// window is below limit; the accepted timestamp is appended only on accept.
// An explicit ring buffer (not golang.org/x/time/rate's token bucket) is
// used because the 60-in-60s law must be exact, not merely approximated by
// a refill rate.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	byUser map[string][]time.Time
}

// NewRateLimiter builds a limiter for the given window and per-window limit.
func NewRateLimiter(window time.Duration, limit int) *RateLimiter {
	return &RateLimiter{
		window: window,
		limit:  limit,
		byUser: make(map[string][]time.Time),
	}
}

// Allow reports whether userID may make a request now, appending the
// accepted timestamp to that user's window when it returns true.
func (r *RateLimiter) Allow(userID string) bool {
	return r.allowAt(userID, time.Now())
}

func (r *RateLimiter) allowAt(userID string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.window)
	kept := r.byUser[userID][:0]
	for _, ts := range r.byUser[userID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= r.limit {
		r.byUser[userID] = kept
		return false
	}

	r.byUser[userID] = append(kept, now)
	return true
}

// Forget drops a user's retained timestamps, called on disconnect per
// spec.md §4.9 Cleanup.
func (r *RateLimiter) Forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
}
