package recovery

import (
	"sync"
	"time"
)

// RateLimiter tracks request timestamps per bucket key within a
// sliding window, evicting expired entries lazily on next access
//. The two buckets the session spine needs — connection
// attempts (≤5/60s) and per-error-kind logs (≤10/1s) — are both plain
// instances of this type with different window/limit pairs.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	events map[string][]time.Time
}

// NewRateLimiter creates a limiter allowing at most limit events per
// window, per key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		events: make(map[string][]time.Time),
	}
}

// Allow reports whether one more event under key is permitted right
// now, recording it if so. now is passed in rather than read from the
// clock so callers (and tests) control time explicitly.
func (r *RateLimiter) Allow(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.window)
	kept := r.events[key][:0]
	for _, t := range r.events[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= r.limit {
		r.events[key] = kept
		return false
	}
	r.events[key] = append(kept, now)
	return true
}

// ConnectionAttempts builds the connection-attempt bucket.
func ConnectionAttempts() *RateLimiter {
	return NewRateLimiter(5, 60*time.Second)
}

// ErrorLogs builds the per-error-kind log bucket.
func ErrorLogs() *RateLimiter {
	return NewRateLimiter(10, time.Second)
}
