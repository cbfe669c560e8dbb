package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(2, 1, time.Minute)
	boom := errors.New("503")

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return boom }, nil); err != boom {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open, got %s", cb.GetState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil }, nil)
	if !errors.Is(err, ErrOpen) || called {
		t.Fatalf("expected ErrOpen without calling fn, got %v called=%v", err, called)
	}
}

func TestBreakerIgnoresUncountedErrors(t *testing.T) {
	cb := NewCircuitBreaker(1, 1, time.Minute)
	notFound := errors.New("404")
	err := cb.Execute(func() error { return notFound }, func(error) bool { return false })
	if err != notFound {
		t.Fatalf("expected error passed through, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed, got %s", cb.GetState())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(1, 1, 30*time.Second)
	cb.now = func() time.Time { return now }

	var transitions []string
	cb.SetStateChangeCallback(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	cb.RecordFailure()
	if cb.AllowRequest() {
		t.Fatalf("expected breaker to refuse while open")
	}

	now = now.Add(31 * time.Second)
	if err := cb.Execute(func() error { return nil }, nil); err != nil {
		t.Fatalf("expected probe to pass, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after probe, got %s", cb.GetState())
	}

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, transitions)
		}
	}
}
