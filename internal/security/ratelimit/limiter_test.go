package ratelimit

import (
	"testing"
	"time"
)

func TestAllowSlidingWindow(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	defer l.Stop()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatalf("first two requests should pass")
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("third request should be limited")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatalf("other clients are independent")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("10.0.0.1") {
		t.Fatalf("window should have slid")
	}
}

func TestTakeReportsRetryAfter(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	if ok, _ := l.Take("k"); !ok {
		t.Fatalf("first request should pass")
	}
	now = now.Add(20 * time.Second)
	ok, wait := l.Take("k")
	if ok || wait != 40*time.Second {
		t.Fatalf("expected refusal with 40s wait, got %v %v", ok, wait)
	}
}

func TestZeroLimitDisables(t *testing.T) {
	l := NewLimiter(0, time.Minute)
	defer l.Stop()
	for i := 0; i < 100; i++ {
		if !l.Allow("x") {
			t.Fatalf("limiting should be off")
		}
	}
}
