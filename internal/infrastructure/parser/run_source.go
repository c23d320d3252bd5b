package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"DealScanner/internal/domain"
	"DealScanner/internal/scanner"
)

// RunSource executes run-scoped adapters (HTML and RSS listings) once per run and
// serves their output per company.
type RunSource struct {
	adapters []scanner.Adapter
	budget   time.Duration
	workers  int
	logger   *slog.Logger
}

// NewRunSource keeps the run-scoped adapters of reg. budget bounds each adapter's
// wall clock; zero leaves it unbounded.
func NewRunSource(reg *scanner.Registry, budget time.Duration, workers int, log *slog.Logger) *RunSource {
	var adapters []scanner.Adapter
	for _, adapter := range reg.Adapters() {
		if scanner.RunScoped(adapter.Method()) {
			adapters = append(adapters, adapter)
		}
	}
	if workers <= 0 {
		workers = 1
	}
	return &RunSource{adapters: adapters, budget: budget, workers: workers, logger: log}
}

// Adapters returns the run-scoped adapters in registration order.
func (s *RunSource) Adapters() []scanner.Adapter {
	return s.adapters
}

// Collect runs every adapter; one adapter's failure degrades it without failing the run.
func (s *RunSource) Collect(ctx context.Context, q scanner.Query) (scanner.Listing, error) {
	s.debug("collect listings", "adapters", len(s.adapters), "since", q.Since.Format(time.DateOnly))

	results := make([]scanner.Result, len(s.adapters))
	failed := make([]error, len(s.adapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, adapter := range s.adapters {
		g.Go(func() error {
			actx, cancel := s.withBudget(gctx)
			defer cancel()

			s.debug("process listing", "adapter", adapter.Name())
			res, err := adapter.Collect(actx, q)
			if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				err = fmt.Errorf("%w: %s exceeded its budget", domain.ErrBudgetExceeded, adapter.Name())
			}
			results[i] = res
			failed[i] = err
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return scanner.Listing{}, err
	}

	var listing scanner.Listing
	for i, adapter := range s.adapters {
		res := results[i]
		if failed[i] != nil || res.Degraded() {
			if failed[i] != nil && s.logger != nil {
				s.logger.Warn("listing adapter failed", "adapter", adapter.Name(), "error", failed[i])
			}
			for _, f := range res.Failures {
				if s.logger != nil {
					s.logger.Warn("listing page skipped", "adapter", adapter.Name(), "error", f)
				}
			}
			listing.Degraded = append(listing.Degraded, adapter.Name())
		}
		for _, article := range res.Articles {
			if article.Adapter == "" {
				article.Adapter = adapter.Name()
			}
			listing.Articles = append(listing.Articles, article)
		}
		s.debug("listing produced articles", "adapter", adapter.Name(), "count", len(res.Articles))
	}

	s.debug("run source done", "total_articles", len(listing.Articles))
	return listing, nil
}

func (s *RunSource) withBudget(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.budget)
}

func (s *RunSource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
