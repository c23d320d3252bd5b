// Package reconcile applies the per-company upsert rule to the deal table and
// keeps its numbering dense.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"DealScanner/internal/domain"
	"DealScanner/internal/extract"
	"DealScanner/internal/normalize"
	"DealScanner/internal/ports"
	"DealScanner/internal/retry"
)

// Reconciler serializes writes per company and retries transient store failures.
type Reconciler struct {
	deals    ports.DealRepository
	articles ports.ArticleRepository
	policy   retry.Policy
	now      func() time.Time
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*companyLock
}

type companyLock struct {
	mu   sync.Mutex
	refs int
}

// New builds a Reconciler over the deal table and the article log.
func New(deals ports.DealRepository, articles ports.ArticleRepository, log *slog.Logger) *Reconciler {
	return &Reconciler{
		deals:    deals,
		articles: articles,
		policy:   retry.DefaultPolicy(),
		now:      time.Now,
		logger:   log,
		locks:    map[string]*companyLock{},
	}
}

// WithPolicy overrides the retry policy.
func (r *Reconciler) WithPolicy(p retry.Policy) *Reconciler {
	r.policy = p
	return r
}

// WithClock overrides the clock used for created_at.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// ShouldReplace reports whether proposed supersedes existing: a strictly higher
// score, or an existing row without a citation.
func ShouldReplace(existing, proposed domain.Deal) bool {
	if existing.NewsURL == "" && proposed.NewsURL != "" {
		return true
	}
	return proposed.Score > existing.Score
}

// Reconcile inserts, updates or leaves the company's deal according to ShouldReplace.
// Unique-constraint collisions are re-decided; errors that survive every attempt wrap
// domain.ErrWriteFailed.
func (r *Reconciler) Reconcile(ctx context.Context, proposed domain.Deal) (domain.ReconcileOutcome, error) {
	if proposed.CompanyName == "" {
		return "", fmt.Errorf("reconcile: empty company name")
	}
	if normalize.IsAggregatorLabel(proposed.SiteName) {
		return "", fmt.Errorf("reconcile %s: aggregator label %q: %w", proposed.CompanyName, proposed.SiteName, domain.ErrNormalizationFailed)
	}

	unlock := r.lock(proposed.CompanyName)
	defer unlock()

	var outcome domain.ReconcileOutcome
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		o, err := r.reconcileOnce(ctx, proposed)
		if err != nil {
			if errors.Is(err, domain.ErrWriteConflict) {
				r.debug("write conflict, re-deciding", "company", proposed.CompanyName)
			}
			return err
		}
		outcome = o
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: reconcile %s: %w", domain.ErrWriteFailed, proposed.CompanyName, err)
	}
	return outcome, nil
}

func (r *Reconciler) reconcileOnce(ctx context.Context, proposed domain.Deal) (domain.ReconcileOutcome, error) {
	existing, err := r.deals.FindDeal(ctx, proposed.CompanyName)
	if errors.Is(err, domain.ErrNotFound) {
		proposed.ID = 0
		proposed.CreatedAt = r.now()
		if _, err := r.deals.InsertDeal(ctx, proposed); err != nil {
			return "", err
		}
		return domain.OutcomeCreated, nil
	}
	if err != nil {
		return "", err
	}

	if !ShouldReplace(existing, proposed) {
		return domain.OutcomeUnchanged, nil
	}

	proposed.ID = existing.ID
	proposed.Number = existing.Number
	proposed.CreatedAt = existing.CreatedAt
	if err := r.deals.UpdateDeal(ctx, proposed); err != nil {
		return "", err
	}
	return domain.OutcomeUpdated, nil
}

// Renumber reassigns the dense numbering. Its failure is fatal to a run.
func (r *Reconciler) Renumber(ctx context.Context) error {
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		return r.deals.Renumber(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRenumberFailed, err)
	}
	return nil
}

// Cleanup deletes articles whose URL is an aggregator, profile or error page, or whose
// title carries an exclusion keyword. Deals citing deleted articles keep their URL.
func (r *Reconciler) Cleanup(ctx context.Context) (int64, error) {
	if r.articles == nil {
		return 0, nil
	}
	articles, err := r.articles.ListArticles(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup: list articles: %w", err)
	}

	var ids []int64
	for _, a := range articles {
		if normalize.IsNonArticleURL(a.URL) || extract.Excluded(a.Title) {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := r.articles.DeleteArticles(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("cleanup: delete articles: %w", err)
	}
	r.debug("cleanup removed articles", "count", deleted)
	return deleted, nil
}

func (r *Reconciler) lock(company string) func() {
	r.mu.Lock()
	l, ok := r.locks[company]
	if !ok {
		l = &companyLock{}
		r.locks[company] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, company)
		}
		r.mu.Unlock()
	}
}

func (r *Reconciler) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
