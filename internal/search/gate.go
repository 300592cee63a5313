package search

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Gate admits one engine caller at a time.
type Gate struct {
	token chan struct{}
}

// NewGate creates an open Gate.
func NewGate() *Gate {
	return &Gate{token: make(chan struct{}, 1)}
}

// Acquire takes the gate, waiting at most timeout. It returns a release func
// that is safe to call more than once; callers defer it. A timeout or a
// cancelled context yields ErrUnavailable.
func (g *Gate) Acquire(ctx context.Context, timeout time.Duration) (func(), error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case g.token <- struct{}{}:
		return g.releaser(), nil
	case <-t.C:
		return nil, fmt.Errorf("%w: engine busy for %v", ErrUnavailable, timeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}

// tryAcquire takes the gate only if it is free.
func (g *Gate) tryAcquire() (func(), bool) {
	select {
	case g.token <- struct{}{}:
		return g.releaser(), true
	default:
		return nil, false
	}
}

func (g *Gate) releaser() func() {
	var once sync.Once
	return func() { once.Do(func() { <-g.token }) }
}
