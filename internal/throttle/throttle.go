// Package throttle enforces request pacing, the global concurrency cap and
// process-wide quotas shared by every adapter.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// DefaultMinInterval is the per-adapter spacing between requests.
	DefaultMinInterval = 500 * time.Millisecond
	// DefaultConcurrency caps in-flight requests across all adapters.
	DefaultConcurrency = 4
)

// Limits configures a Throttle.
type Limits struct {
	MinInterval time.Duration
	Concurrency int
}

// Throttle paces requests per adapter and bounds concurrency globally.
type Throttle struct {
	interval time.Duration
	global   *semaphore.Weighted

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Throttle; zero limits fall back to the defaults.
func New(limits Limits) *Throttle {
	if limits.MinInterval <= 0 {
		limits.MinInterval = DefaultMinInterval
	}
	if limits.Concurrency <= 0 {
		limits.Concurrency = DefaultConcurrency
	}
	return &Throttle{
		interval: limits.MinInterval,
		global:   semaphore.NewWeighted(int64(limits.Concurrency)),
		limiters: map[string]*rate.Limiter{},
	}
}

func (t *Throttle) limiter(adapter string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[adapter]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[adapter] = l
	}
	return l
}

// Acquire waits for the adapter's next slot and a global permit. The caller must
// call release when the request finishes.
func (t *Throttle) Acquire(ctx context.Context, adapter string) (release func(), err error) {
	if err := t.limiter(adapter).Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait %s rate limit: %w", adapter, err)
	}
	if err := t.global.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait concurrency permit: %w", err)
	}
	var once sync.Once
	return func() { once.Do(func() { t.global.Release(1) }) }, nil
}

// Do runs fn under Acquire.
func (t *Throttle) Do(ctx context.Context, adapter string, fn func(ctx context.Context) error) error {
	release, err := t.Acquire(ctx, adapter)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}
