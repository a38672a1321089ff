package translate

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.Record(true)
	if cb.State() != StateClosed {
		t.Fatalf("state after one failure = %s, want closed", cb.State())
	}
	cb.Record(true)
	if cb.State() != StateOpen {
		t.Fatalf("state after two failures = %s, want open", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow() during cooldown = %v", err)
	}

	now = now.Add(time.Minute)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after cooldown = %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe allowed: %v", err)
	}

	cb.Record(true)
	if cb.State() != StateOpen {
		t.Fatalf("failed probe left state %s", cb.State())
	}

	now = now.Add(time.Minute)
	if err := cb.Allow(); err != nil {
		t.Fatal(err)
	}
	cb.Record(false)
	if cb.State() != StateClosed {
		t.Errorf("state after successful probe = %s, want closed", cb.State())
	}
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	cb.Record(true)
	cb.Record(false)
	cb.Record(true)
	if cb.State() != StateClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
}
