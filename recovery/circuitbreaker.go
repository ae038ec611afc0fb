package recovery

import (
	"sync"
	"time"
)

// BreakerState is one of the three circuit-breaker states.
type BreakerState int

const (
	Closed BreakerState = iota
	Open
	HalfOpen
)

// CircuitBreaker trips after threshold consecutive failures, then
// allows one trial request after open_duration has elapsed. Safe for concurrent use; the error engine's counters are
// required to be internally atomic.
type CircuitBreaker struct {
	mu           sync.Mutex
	threshold    int
	openDuration time.Duration

	state         BreakerState
	failures      int
	lastOpened    time.Time
	trialInFlight bool
}

// NewCircuitBreaker constructs a breaker with the given failure
// threshold and open-state duration. Zero values fall back to the
// standard defaults (threshold=3, open_duration=30s).
func NewCircuitBreaker(threshold int, openDuration time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if openDuration <= 0 {
		openDuration = 30 * time.Second
	}
	return &CircuitBreaker{threshold: threshold, openDuration: openDuration}
}

// Allow reports whether a request may proceed right now, transitioning
// Open->HalfOpen once open_duration has elapsed. At most one trial
// request is let through while HalfOpen.
func (b *CircuitBreaker) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if now.Sub(b.lastOpened) >= b.openDuration {
			b.state = HalfOpen
			b.trialInFlight = true
			return true
		}
		return false
	case HalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess closes the breaker (from any state) and clears the
// failure counter.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.trialInFlight = false
}

// RecordFailure increments the failure counter in Closed state,
// tripping to Open once threshold is reached, and reopens immediately
// on a failed HalfOpen trial.
func (b *CircuitBreaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.state = Open
		b.lastOpened = now
		b.trialInFlight = false
	case Closed:
		b.failures++
		if b.failures >= b.threshold {
			b.state = Open
			b.lastOpened = now
			b.failures = 0
		}
	}
}

// State reports the current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
