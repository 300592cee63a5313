package search

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_firstCallDoesNotWait(t *testing.T) {
	r := NewRateLimiter(time.Second)
	start := time.Now()
	if r.Throttle(context.Background()) {
		t.Error("first Throttle reported a wait")
	}
	r.Admit(context.Background())
	if took := time.Since(start); took > 100*time.Millisecond {
		t.Errorf("first call took %v", took)
	}
}

func TestRateLimiter_throttleWaitsOutInterval(t *testing.T) {
	r := NewRateLimiter(60 * time.Millisecond)
	r.Admit(context.Background())

	start := time.Now()
	if !r.Throttle(context.Background()) {
		t.Error("Throttle right after an invocation should wait")
	}
	if took := time.Since(start); took < 50*time.Millisecond {
		t.Errorf("Throttle waited %v, want about 60ms", took)
	}
	if r.Throttle(context.Background()) {
		t.Error("interval already elapsed, no wait expected")
	}
}

func TestRateLimiter_admitKeepsSpacing(t *testing.T) {
	r := NewRateLimiter(40 * time.Millisecond)
	r.Admit(context.Background())
	first := r.last

	// skip Throttle: Admit alone must still hold the interval
	r.Admit(context.Background())
	if gap := r.last.Sub(first); gap < 40*time.Millisecond {
		t.Errorf("consecutive admits %v apart, want >= 40ms", gap)
	}
}

func TestRateLimiter_cancelledContextCutsWaitShort(t *testing.T) {
	r := NewRateLimiter(time.Hour)
	r.Admit(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	r.Throttle(ctx)
	if took := time.Since(start); took > time.Second {
		t.Errorf("cancelled Throttle blocked for %v", took)
	}
}

func TestRateLimiter_zeroInterval(t *testing.T) {
	r := NewRateLimiter(0)
	for i := 0; i < 3; i++ {
		if r.Throttle(context.Background()) {
			t.Fatal("zero interval should never wait")
		}
		r.Admit(context.Background())
	}
}
