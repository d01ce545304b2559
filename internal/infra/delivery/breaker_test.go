package delivery

import (
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	now := time.Now()
	b := NewBreaker(3, 30*time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if b.State() != BreakerClosed {
			t.Fatalf("expected closed before threshold, got %s after %d failures", b.State(), i+1)
		}
	}

	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected open at threshold, got %s", b.State())
	}
	if b.Allow() {
		t.Error("expected attempts blocked while open")
	}
}

func TestBreakerSuccessResetsFailureRun(t *testing.T) {
	b := NewBreaker(3, 30*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if b.State() != BreakerClosed {
		t.Errorf("expected non-consecutive failures to stay closed, got %s", b.State())
	}
}

func TestBreakerHalfOpenAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, 30*time.Second)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	if b.Allow() {
		t.Fatal("expected open breaker to block")
	}

	now = now.Add(31 * time.Second)
	if !b.Allow() {
		t.Fatal("expected trial permitted after cooldown")
	}
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}

	b.RecordSuccess()
	if b.State() != BreakerClosed {
		t.Errorf("expected closed after successful trial, got %s", b.State())
	}
}

func TestBreakerTrialFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(5, 30*time.Second)
	b.now = func() time.Time { return now }

	b.Trip()
	now = now.Add(31 * time.Second)
	if !b.Allow() {
		t.Fatal("expected trial permitted after cooldown")
	}

	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected single trial failure to reopen, got %s", b.State())
	}
	if b.Allow() {
		t.Error("expected attempts blocked after reopening")
	}
}
