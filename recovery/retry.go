package recovery

import "time"

// RetryPolicy computes exponential backoff delays:
// delay(n) = min(base * multiplier^n, max_delay).
type RetryPolicy struct {
	Attempts   int
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// DefaultRetryPolicy mirrors the session spine's connect-retry
// defaults (max-reconnect-attempts, backoff-multiplier).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:   5,
		BaseDelay:  500 * time.Millisecond,
		Multiplier: 2.0,
		MaxDelay:   30 * time.Second,
	}
}

// Delay returns the backoff delay before attempt n (0-indexed).
func (p RetryPolicy) Delay(n int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < n; i++ {
		d *= p.Multiplier
		if time.Duration(d) >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	result := time.Duration(d)
	if result > p.MaxDelay {
		return p.MaxDelay
	}
	return result
}
