package search

import (
	"context"
	"sync"
	"time"
)

// RateLimiter keeps a minimum interval between the starts of consecutive
// engine invocations.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewRateLimiter creates a RateLimiter with the given minimum interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Throttle sleeps for whatever remains of the interval since the last
// recorded invocation and reports whether it had to wait. It never fails;
// a cancelled context only cuts the wait short.
func (r *RateLimiter) Throttle(ctx context.Context) bool {
	wait := r.remaining()
	if wait <= 0 {
		return false
	}
	sleep(ctx, wait)
	return true
}

// Admit records the start of an engine invocation. It must be called while
// holding the Gate, immediately before the query. Should a concurrent caller
// have started an invocation after this caller's Throttle, the leftover
// interval is waited out first so the spacing holds for every pair of
// invocations.
func (r *RateLimiter) Admit(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wait := r.interval - time.Since(r.last); !r.last.IsZero() && wait > 0 {
		sleep(ctx, wait)
	}
	r.last = time.Now()
}

func (r *RateLimiter) remaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last.IsZero() {
		return 0
	}
	return r.interval - time.Since(r.last)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
