package recovery

import (
	"sync/atomic"

	"github.com/drake/tn5250/internal/buffer"
)

// Violation is one protocol-violation record, fed to the session's
// violation log.
type Violation struct {
	Kind   Kind
	Detail string
}

// ViolationTracker counts protocol violations for one session and
// signals termination once the threshold is reached. The log itself is
// an internal/buffer.Unbounded channel pair, so a slow log consumer
// never blocks the network thread recording a violation.
type ViolationTracker struct {
	threshold int
	count     atomic.Int64

	logIn  chan<- Violation
	LogOut <-chan Violation
}

// NewViolationTracker creates a tracker with the given threshold (<=0
// falls back to the default of 10).
func NewViolationTracker(threshold int) *ViolationTracker {
	if threshold <= 0 {
		threshold = 10
	}
	in, out := buffer.Unbounded[Violation](16, 10000)
	return &ViolationTracker{threshold: threshold, logIn: in, LogOut: out}
}

// Record logs one violation and reports whether the session should now
// terminate (count reached the threshold).
func (t *ViolationTracker) Record(kind Kind, detail string) (terminate bool) {
	n := t.count.Add(1)
	select {
	case t.logIn <- Violation{Kind: kind, Detail: detail}:
	default:
	}
	return n >= int64(t.threshold)
}

// Count returns the current violation count.
func (t *ViolationTracker) Count() int64 {
	return t.count.Load()
}

// SequenceValidator tracks the expected next u8 sequence number for a
// session, treating 255->0 wraparound as legal.
type SequenceValidator struct {
	expected atomic.Int32
	started  atomic.Bool
}

// Check validates got against the expected next sequence number,
// advancing the expectation regardless of outcome, and reports whether
// got was out of order. The first call always succeeds and seeds the
// expectation from got.
func (v *SequenceValidator) Check(got byte) (outOfOrder bool) {
	if !v.started.Swap(true) {
		v.expected.Store(int32(byte(got + 1)))
		return false
	}
	want := byte(v.expected.Load())
	outOfOrder = got != want
	v.expected.Store(int32(byte(got + 1)))
	return outOfOrder
}
