package recovery

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)
	now := time.Unix(0, 0)
	for i := 0; i < 3; i++ {
		if !rl.Allow("conn", now) {
			t.Fatalf("expected attempt %d to be allowed", i)
		}
	}
	if rl.Allow("conn", now) {
		t.Fatal("expected 4th attempt within window to be denied")
	}
}

func TestRateLimiterWindowExpires(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	start := time.Unix(0, 0)
	if !rl.Allow("k", start) {
		t.Fatal("expected first attempt allowed")
	}
	if rl.Allow("k", start.Add(500*time.Millisecond)) {
		t.Fatal("expected second attempt within window denied")
	}
	if !rl.Allow("k", start.Add(1500*time.Millisecond)) {
		t.Fatal("expected attempt after window expiry to be allowed")
	}
}

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 30*time.Second)
	now := time.Unix(0, 0)
	for i := 0; i < 3; i++ {
		cb.RecordFailure(now)
	}
	if cb.State() != Open {
		t.Fatalf("expected Open after threshold failures, got %v", cb.State())
	}
	if cb.Allow(now) {
		t.Fatal("expected Open breaker to deny requests before open_duration elapses")
	}
}

func TestCircuitBreakerHalfOpenTrial(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Second)
	t0 := time.Unix(0, 0)
	cb.RecordFailure(t0)
	if cb.State() != Open {
		t.Fatal("expected Open after one failure at threshold 1")
	}
	later := t0.Add(11 * time.Second)
	if !cb.Allow(later) {
		t.Fatal("expected HalfOpen trial to be allowed after open_duration")
	}
	if cb.Allow(later) {
		t.Fatal("expected only one trial request while HalfOpen")
	}
	cb.RecordSuccess()
	if cb.State() != Closed {
		t.Fatal("expected Closed after a successful HalfOpen trial")
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Second)
	t0 := time.Unix(0, 0)
	cb.RecordFailure(t0)
	later := t0.Add(11 * time.Second)
	cb.Allow(later)
	cb.RecordFailure(later)
	if cb.State() != Open {
		t.Fatal("expected a failed HalfOpen trial to reopen the breaker")
	}
}

func TestRetryPolicyDelayGrowsAndCaps(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, Multiplier: 2.0, MaxDelay: 5 * time.Second}
	if p.Delay(0) != time.Second {
		t.Fatalf("expected base delay at n=0, got %v", p.Delay(0))
	}
	if p.Delay(1) != 2*time.Second {
		t.Fatalf("expected doubled delay at n=1, got %v", p.Delay(1))
	}
	if p.Delay(10) != 5*time.Second {
		t.Fatalf("expected delay capped at max, got %v", p.Delay(10))
	}
}

func TestViolationTrackerSignalsAtThreshold(t *testing.T) {
	vt := NewViolationTracker(3)
	for i := 0; i < 2; i++ {
		if vt.Record(KindMalformedPacket, "x") {
			t.Fatal("expected no terminate signal before threshold")
		}
	}
	if !vt.Record(KindMalformedPacket, "x") {
		t.Fatal("expected terminate signal at threshold")
	}
}

func TestSequenceValidatorAllowsWraparound(t *testing.T) {
	var sv SequenceValidator
	if sv.Check(255) {
		t.Fatal("expected first call to seed without flagging out-of-order")
	}
	if sv.Check(0) {
		t.Fatal("expected 255->0 wraparound to be legal")
	}
	if !sv.Check(5) {
		t.Fatal("expected a skipped sequence number to be flagged out-of-order")
	}
}

func TestSanitizerScrubsHostAndPath(t *testing.T) {
	s := Sanitizer{}
	user, debug := s.Sanitize(KindConnectRefused, "failed to reach host.example.com:2323 at /home/user/.config/tn5250", nil)
	if user.Code != "NET001" {
		t.Fatalf("unexpected code: %s", user.Code)
	}
	if debug.Detail == user.UserMessage {
		t.Fatal("expected debug record to retain unsanitized detail")
	}
	for _, substr := range []string{"2323", "/home/user"} {
		if contains(user.UserMessage, substr) {
			t.Fatalf("expected %q scrubbed from user message %q", substr, user.UserMessage)
		}
	}
}

func TestDSNRForMapsKnownKinds(t *testing.T) {
	if DSNRFor(KindInvalidAddress) != DSNRInvalidCursor {
		t.Fatal("expected invalid address to map to invalid cursor DSNR")
	}
	if DSNRFor(KindBug) != DSNRUnmapped {
		t.Fatal("expected unmapped kind to fall back to DSNRUnmapped")
	}
}

func TestBuildDSNRPacketShape(t *testing.T) {
	pkt := BuildDSNRPacket(7, KindInvalidAddress, "cursor out of range")
	if pkt[0] != escByte || pkt[1] != cmdWriteErrorCode || pkt[2] != 7 {
		t.Fatalf("unexpected packet header: %v", pkt[:6])
	}
	if pkt[6] != DSNRInvalidCursor {
		t.Fatalf("expected DSNR code at offset 6, got %x", pkt[6])
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
