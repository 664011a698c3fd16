package circuitbreaker

import (
	"testing"
	"time"
)

func TestInitialStateClosed(t *testing.T) {
	cb := New(3, 1, 10*time.Second)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Fatal("expected Allow=true when closed")
	}
}

func TestOpensAfterThreshold(t *testing.T) {
	cb := New(3, 1, 10*time.Second)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %s", cb.State())
	}
	if cb.Allow() {
		t.Fatal("expected Allow=false when open")
	}
}

func TestTransitionsToHalfOpenAfterTimeout(t *testing.T) {
	cb := New(1, 1, 1*time.Millisecond)
	cb.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half_open after timeout, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Fatal("expected Allow=true when half_open")
	}
}

func TestClosesAfterSuccessInHalfOpen(t *testing.T) {
	cb := New(1, 1, 1*time.Millisecond)
	cb.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	_ = cb.State() // trigger half-open transition
	cb.RecordSuccess()
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after success in half_open, got %s", cb.State())
	}
}

func TestReopensOnFailureInHalfOpen(t *testing.T) {
	cb := New(1, 1, 1*time.Millisecond)
	cb.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	_ = cb.State() // trigger half-open transition
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("expected open after failure in half_open, got %s", cb.State())
	}
}

func TestSuccessDecrementsFailureCountTowardZero(t *testing.T) {
	cb := New(3, 1, 10*time.Second)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess() // decrements 2 -> 1, does not reset to 0
	if got := cb.Snapshot().ConsecutiveFailures; got != 1 {
		t.Fatalf("expected failure count 1 after single success, got %d", got)
	}
	cb.RecordFailure() // 1 -> 2
	if cb.State() != StateClosed {
		t.Fatalf("expected still closed at 2/3 failures, got %s", cb.State())
	}
	cb.RecordFailure() // 2 -> 3, trips
	if cb.State() != StateOpen {
		t.Fatalf("expected open once failure count reaches threshold, got %s", cb.State())
	}
}

func TestSuccessDoesNotDecrementBelowZero(t *testing.T) {
	cb := New(3, 1, 10*time.Second)
	cb.RecordSuccess()
	cb.RecordSuccess()
	if got := cb.Snapshot().ConsecutiveFailures; got != 0 {
		t.Fatalf("expected failure count to floor at 0, got %d", got)
	}
}
