package throttle

import (
	"fmt"
	"sync"
	"sync/atomic"

	"DealScanner/internal/domain"
)

// Quota is a process-wide call counter. A zero limit is unlimited.
type Quota struct {
	name      string
	limit     int64
	used      atomic.Int64
	unlimited bool
}

// NewQuota allows limit calls; limit <= 0 disables the check.
func NewQuota(name string, limit int) *Quota {
	return &Quota{name: name, limit: int64(limit), unlimited: limit <= 0}
}

// Take consumes one call or returns domain.ErrQuotaExhausted.
func (q *Quota) Take() error {
	if q == nil || q.unlimited {
		return nil
	}
	if q.used.Add(1) > q.limit {
		q.used.Add(-1)
		return fmt.Errorf("%s: %w", q.name, domain.ErrQuotaExhausted)
	}
	return nil
}

// Used reports how many calls were taken.
func (q *Quota) Used() int {
	if q == nil {
		return 0
	}
	return int(q.used.Load())
}

// Exhausted reports whether no calls are left.
func (q *Quota) Exhausted() bool {
	return q != nil && !q.unlimited && q.used.Load() >= q.limit
}

// TokenBudget caps the LLM tokens spent on one company.
type TokenBudget struct {
	mu    sync.Mutex
	limit int
	used  int
}

// NewTokenBudget allows limit tokens; limit <= 0 is unlimited.
func NewTokenBudget(limit int) *TokenBudget {
	return &TokenBudget{limit: limit}
}

// Allow returns domain.ErrBudgetExceeded once the budget is spent.
func (b *TokenBudget) Allow() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit > 0 && b.used >= b.limit {
		return fmt.Errorf("%d/%d tokens: %w", b.used, b.limit, domain.ErrBudgetExceeded)
	}
	return nil
}

// Remaining returns the tokens left, or -1 when unlimited.
func (b *TokenBudget) Remaining() int {
	if b == nil || b.limit <= 0 {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return max(b.limit-b.used, 0)
}

// Spend records tokens consumed by a call.
func (b *TokenBudget) Spend(tokens int) {
	if b == nil || tokens <= 0 {
		return
	}
	b.mu.Lock()
	b.used += tokens
	b.mu.Unlock()
}

// Used reports the tokens spent so far.
func (b *TokenBudget) Used() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}
