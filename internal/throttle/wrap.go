package throttle

import (
	"context"
	"fmt"
	"time"

	"DealScanner/internal/domain"
	"DealScanner/internal/normalize"
	"DealScanner/internal/ports"
)

// pagedFetcher paces page downloads per host.
type pagedFetcher struct {
	next     ports.PageFetcher
	throttle *Throttle
}

// Fetcher wraps f so that every host gets its own interval and all hosts share the
// global concurrency cap.
func Fetcher(f ports.PageFetcher, t *Throttle) ports.PageFetcher {
	return &pagedFetcher{next: f, throttle: t}
}

func (p *pagedFetcher) Fetch(ctx context.Context, url string) (domain.Page, error) {
	var page domain.Page
	err := p.throttle.Do(ctx, "fetch:"+normalize.Host(url), func(ctx context.Context) error {
		var err error
		page, err = p.next.Fetch(ctx, url)
		return err
	})
	return page, err
}

func (p *pagedFetcher) ResolveRedirect(ctx context.Context, url string) (string, error) {
	var target string
	err := p.throttle.Do(ctx, "fetch:"+normalize.Host(url), func(ctx context.Context) error {
		var err error
		target, err = p.next.ResolveRedirect(ctx, url)
		return err
	})
	return target, err
}

// SetEncoding forwards charset overrides to the wrapped fetcher when it supports them.
func (p *pagedFetcher) SetEncoding(host, encoding string) {
	if forcer, ok := p.next.(interface{ SetEncoding(string, string) }); ok {
		forcer.SetEncoding(host, encoding)
	}
}

type meteredSearch struct {
	next     ports.SearchClient
	throttle *Throttle
	name     string
	quota    *Quota
}

// Search wraps c with pacing under name and the process-wide quota.
func Search(c ports.SearchClient, t *Throttle, name string, quota *Quota) ports.SearchClient {
	return &meteredSearch{next: c, throttle: t, name: name, quota: quota}
}

func (m *meteredSearch) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	if err := m.quota.Take(); err != nil {
		return nil, err
	}
	var hits []domain.SearchHit
	err := m.throttle.Do(ctx, m.name, func(ctx context.Context) error {
		var err error
		hits, err = m.next.Search(ctx, query, limit)
		return err
	})
	return hits, err
}

type meteredLLM struct {
	next     ports.LLMClient
	throttle *Throttle
	name     string
	quota    *Quota
	timeout  time.Duration
}

// LLM wraps c with pacing, the process-wide call quota and a per-call wall clock.
func LLM(c ports.LLMClient, t *Throttle, name string, quota *Quota, timeout time.Duration) ports.LLMClient {
	return &meteredLLM{next: c, throttle: t, name: name, quota: quota, timeout: timeout}
}

func (m *meteredLLM) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if err := m.quota.Take(); err != nil {
		return domain.Completion{}, err
	}
	var out domain.Completion
	err := m.throttle.Do(ctx, m.name, func(ctx context.Context) error {
		if m.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}
		var err error
		out, err = m.next.Complete(ctx, req)
		return err
	})
	return out, err
}

type budgetedLLM struct {
	next   ports.LLMClient
	budget *TokenBudget
}

// Budgeted charges every completion against budget and refuses calls once it is spent.
// MaxTokens is lowered to what is left.
func Budgeted(c ports.LLMClient, budget *TokenBudget) ports.LLMClient {
	return &budgetedLLM{next: c, budget: budget}
}

func (b *budgetedLLM) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if err := b.budget.Allow(); err != nil {
		return domain.Completion{}, err
	}
	if left := b.budget.Remaining(); left >= 0 && (req.MaxTokens <= 0 || req.MaxTokens > left) {
		req.MaxTokens = left
	}
	out, err := b.next.Complete(ctx, req)
	b.budget.Spend(out.TokensUsed)
	if err != nil {
		return out, fmt.Errorf("budgeted completion: %w", err)
	}
	return out, nil
}

type budgetKey struct{}

// WithTokenBudget attaches the current company's token budget to ctx.
func WithTokenBudget(ctx context.Context, budget *TokenBudget) context.Context {
	return context.WithValue(ctx, budgetKey{}, budget)
}

// BudgetFrom returns the budget attached by WithTokenBudget, or nil.
func BudgetFrom(ctx context.Context) *TokenBudget {
	budget, _ := ctx.Value(budgetKey{}).(*TokenBudget)
	return budget
}

type contextBudgetedLLM struct {
	next ports.LLMClient
}

// CompanyBudgeted charges whatever budget the request context carries. Calls
// without one pass through unmetered.
func CompanyBudgeted(c ports.LLMClient) ports.LLMClient {
	return &contextBudgetedLLM{next: c}
}

func (c *contextBudgetedLLM) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	budget := BudgetFrom(ctx)
	if budget == nil {
		return c.next.Complete(ctx, req)
	}
	return (&budgetedLLM{next: c.next, budget: budget}).Complete(ctx, req)
}
