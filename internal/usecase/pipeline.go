package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"DealScanner/internal/domain"
	"DealScanner/internal/extract"
	"DealScanner/internal/normalize"
	"DealScanner/internal/ports"
	"DealScanner/internal/reconcile"
	"DealScanner/internal/retry"
	"DealScanner/internal/scanner"
	"DealScanner/internal/selector"
	"DealScanner/internal/throttle"
)

const (
	defaultAdapterBudget = 30 * time.Second
	defaultLLMTokens     = 8000
	defaultWorkers       = 4
	// DefaultSkipLLMScore is the best score at which LLM-grounded discovery is skipped.
	DefaultSkipLLMScore = 8
)

// ListingCollector runs the company-independent listing adapters once per run.
type ListingCollector interface {
	Collect(ctx context.Context, q scanner.Query) (scanner.Listing, error)
}

// ArticleNormalizer resolves canonical URL, publisher and date of a raw article.
type ArticleNormalizer interface {
	Normalize(ctx context.Context, article domain.RawArticle) (domain.RawArticle, error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Listings ListingCollector
	// Adapters are the per-company adapters; run-scoped ones are ignored here.
	Adapters   []scanner.Adapter
	Normalizer ArticleNormalizer
	Extractor  *extract.Extractor
	Store      ports.Store
	Reconciler *reconcile.Reconciler
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Options tunes one run.
type Options struct {
	// Since drops candidates published before it.
	Since time.Time
	// Window derives Since from the run start when Since is zero; both zero keep
	// everything.
	Window   time.Duration
	MaxPages int
	DryRun   bool
	// AdapterBudget bounds one adapter invocation for one company.
	AdapterBudget time.Duration
	// LLMTokens bounds model tokens spent per company.
	LLMTokens    int
	Workers      int
	SkipLLMScore int
}

// Pipeline implements the deal-consolidation workflow.
type Pipeline struct {
	listings   ListingCollector
	adapters   []scanner.Adapter
	normalizer ArticleNormalizer
	extractor  *extract.Extractor
	store      ports.Store
	reconciler *reconcile.Reconciler
	notifier   ports.Notifier
	logger     *slog.Logger

	opts        Options
	now         func() time.Time
	writePolicy retry.Policy
}

// NewPipeline constructs the orchestration component. Per-company adapters are
// ordered cheapest first.
func NewPipeline(deps PipelineDeps, opts Options) *Pipeline {
	var adapters []scanner.Adapter
	for _, adapter := range deps.Adapters {
		if !scanner.RunScoped(adapter.Method()) {
			adapters = append(adapters, adapter)
		}
	}
	sort.SliceStable(adapters, func(i, j int) bool {
		return scanner.Cost(adapters[i].Method()) < scanner.Cost(adapters[j].Method())
	})

	if opts.AdapterBudget <= 0 {
		opts.AdapterBudget = defaultAdapterBudget
	}
	if opts.LLMTokens == 0 {
		opts.LLMTokens = defaultLLMTokens
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.SkipLLMScore <= 0 {
		opts.SkipLLMScore = DefaultSkipLLMScore
	}

	extractor := deps.Extractor
	if extractor == nil {
		extractor = extract.NewExtractor(extract.Options{}, deps.Logger)
	}
	reconciler := deps.Reconciler
	if reconciler == nil && deps.Store != nil {
		reconciler = reconcile.New(deps.Store, deps.Store, deps.Logger)
	}

	return &Pipeline{
		listings:    deps.Listings,
		adapters:    adapters,
		normalizer:  deps.Normalizer,
		extractor:   extractor,
		store:       deps.Store,
		reconciler:  reconciler,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		opts:        opts,
		now:         time.Now,
		writePolicy: retry.DefaultPolicy(),
	}
}

// WithClock overrides the collection clock.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// WithWritePolicy overrides the retry policy for article writes.
func (p *Pipeline) WithWritePolicy(policy retry.Policy) *Pipeline {
	p.writePolicy = policy
	return p
}

// runState is the mutable bookkeeping of one run.
type runState struct {
	summary  domain.RunSummary
	since    time.Time
	disabled map[string]bool
	degraded map[string]struct{}
}

// Run processes every company in universe order, renumbers the deal table and
// prunes the article log. The returned error is fatal (cancellation or a failed
// renumber); per-company problems are only reported in the summary.
func (p *Pipeline) Run(ctx context.Context, universe []domain.Company) (domain.RunSummary, error) {
	if p.store == nil || p.normalizer == nil {
		return domain.RunSummary{}, fmt.Errorf("%w: pipeline needs a store and a normalizer", domain.ErrConfig)
	}

	state := &runState{
		summary: domain.RunSummary{
			RunID:     uuid.NewString(),
			StartedAt: p.now(),
			DryRun:    p.opts.DryRun,
		},
		disabled: map[string]bool{},
		degraded: map[string]struct{}{},
	}
	state.since = p.opts.Since
	if state.since.IsZero() && p.opts.Window > 0 {
		state.since = normalize.Day(state.summary.StartedAt.Add(-p.opts.Window))
	}
	log := p.logger
	if log != nil {
		log = log.With("run_id", state.summary.RunID)
	}
	p.info(log, "run started", "companies", len(universe), "since", dateOrEmpty(state.since), "dry_run", p.opts.DryRun)

	base := scanner.Query{Since: state.since, Now: state.summary.StartedAt, MaxPages: p.opts.MaxPages}

	var listing scanner.Listing
	if p.listings != nil {
		var err error
		listing, err = p.listings.Collect(ctx, base)
		if err != nil {
			return p.finish(state), fmt.Errorf("collect listings: %w", err)
		}
		for _, name := range listing.Degraded {
			state.degraded[name] = struct{}{}
		}
	}

	for _, company := range universe {
		if err := ctx.Err(); err != nil {
			return p.finish(state), err
		}
		q := base
		q.Company = company
		if err := p.processCompany(ctx, log, q, listing.ForCompany(company.Name), state); err != nil {
			if ctx.Err() != nil {
				return p.finish(state), ctx.Err()
			}
			state.summary.CompaniesFailed = append(state.summary.CompaniesFailed, company.Name)
			p.warn(log, "company failed", "company", company.Name, "error", err)
		}
		state.summary.CompaniesProcessed++
	}

	if err := p.reconciler.Renumber(ctx); err != nil {
		p.logError(log, "renumber failed", "error", err)
		return p.finish(state), err
	}

	deleted, err := p.reconciler.Cleanup(ctx)
	if err != nil {
		p.warn(log, "cleanup failed", "error", err)
	}
	state.summary.CleanupDeleted = int(deleted)

	summary := p.finish(state)
	p.info(log, "run finished",
		"companies_processed", summary.CompaniesProcessed,
		"articles_seen", summary.ArticlesSeen,
		"articles_kept", summary.ArticlesKept,
		"deals_created", summary.DealsCreated,
		"deals_updated", summary.DealsUpdated,
		"companies_failed", len(summary.CompaniesFailed),
		"adapters_degraded", len(summary.AdaptersDegraded),
	)

	if p.notifier != nil && !p.opts.DryRun {
		if err := p.notifier.PublishDigest(ctx, buildDigestMessage(summary)); err != nil {
			p.warn(log, "digest not delivered", "error", err)
		}
	}
	return summary, nil
}

// companyRun accumulates the candidates of one company across adapters.
type companyRun struct {
	company    domain.Company
	seen       map[string]struct{}
	candidates []domain.Candidate
	stored     map[string]domain.RawArticle
	best       int
}

func (p *Pipeline) processCompany(ctx context.Context, log *slog.Logger, q scanner.Query, listed []domain.RawArticle, state *runState) error {
	ctx = throttle.WithTokenBudget(ctx, throttle.NewTokenBudget(p.opts.LLMTokens))
	if log != nil {
		log = log.With("company", q.Company.Name)
	}

	run := &companyRun{
		company: q.Company,
		seen:    map[string]struct{}{},
		stored:  map[string]domain.RawArticle{},
	}
	if err := p.consider(ctx, log, run, listed, state); err != nil {
		return err
	}

	for _, adapter := range p.adapters {
		name := adapter.Name()
		if state.disabled[name] {
			continue
		}
		if adapter.Method() == domain.MethodLLMGrounded && run.best >= p.opts.SkipLLMScore {
			p.debug(log, "llm discovery skipped", "adapter", name, "best_score", run.best)
			continue
		}

		articles := p.collect(ctx, log, adapter, q, state)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.consider(ctx, log, run, articles, state); err != nil {
			return err
		}
	}

	best, ok := selector.Best(q.Company.Name, run.candidates)
	if !ok {
		state.summary.NoCandidate = append(state.summary.NoCandidate, q.Company.Name)
		p.debug(log, "no candidate")
		return nil
	}

	deal := p.proposeDeal(run, best)
	outcome, err := p.reconciler.Reconcile(ctx, deal)
	if err != nil {
		return err
	}
	switch outcome {
	case domain.OutcomeCreated:
		state.summary.DealsCreated++
	case domain.OutcomeUpdated:
		state.summary.DealsUpdated++
	default:
		state.summary.DealsUnchanged++
	}
	p.info(log, "deal reconciled", "outcome", outcome, "score", deal.Score, "url", deal.NewsURL, "site", deal.SiteName)
	return nil
}

// collect runs one adapter under its budget. Any adapter error empties the result.
func (p *Pipeline) collect(ctx context.Context, log *slog.Logger, adapter scanner.Adapter, q scanner.Query, state *runState) []domain.RawArticle {
	name := adapter.Name()
	actx, cancel := context.WithTimeout(ctx, p.opts.AdapterBudget)
	res, err := adapter.Collect(actx, q)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		state.degraded[name] = struct{}{}
		switch {
		case errors.Is(err, domain.ErrSourceAuth):
			state.disabled[name] = true
			p.warn(log, "adapter disabled for the run", "adapter", name, "error", err)
		case errors.Is(err, context.DeadlineExceeded):
			p.warn(log, "adapter exceeded its budget", "adapter", name, "budget", p.opts.AdapterBudget)
		default:
			p.warn(log, "adapter failed", "adapter", name, "error", err)
		}
		return nil
	}
	if res.Degraded() {
		state.degraded[name] = struct{}{}
		for _, failure := range res.Failures {
			p.debug(log, "adapter partial failure", "adapter", name, "error", failure)
		}
	}

	articles := make([]domain.RawArticle, 0, len(res.Articles))
	for _, article := range res.Articles {
		if article.Adapter == "" {
			article.Adapter = name
		}
		if article.Company == "" {
			article.Company = q.Company.Name
		}
		articles = append(articles, article)
	}
	return articles
}

// consider normalizes, windows, evaluates and logs new raw articles for the company.
func (p *Pipeline) consider(ctx context.Context, log *slog.Logger, run *companyRun, raws []domain.RawArticle, state *runState) error {
	fresh := make([]domain.RawArticle, 0, len(raws))
	for _, raw := range raws {
		key := raw.URL
		if canonical, err := normalize.CanonicalURL(raw.URL); err == nil {
			key = canonical
		}
		if _, dup := run.seen[key]; dup {
			continue
		}
		run.seen[key] = struct{}{}
		fresh = append(fresh, raw)
	}
	if len(fresh) == 0 {
		return nil
	}
	state.summary.ArticlesSeen += len(fresh)

	normalized := make([]domain.RawArticle, len(fresh))
	failures := make([]error, len(fresh))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, raw := range fresh {
		g.Go(func() error {
			normalized[i], failures[i] = p.normalizer.Normalize(gctx, raw)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, article := range normalized {
		if failures[i] != nil {
			state.summary.NormalizationFailed++
			p.debug(log, "article dropped", "url", fresh[i].URL, "error", failures[i])
			continue
		}
		if normalize.IsNonArticleURL(article.URL) {
			// cleanup would delete the row and leave the deal citing nothing
			state.summary.NormalizationFailed++
			p.debug(log, "non-article page dropped", "url", article.URL)
			continue
		}
		if outOfWindow(article, state.since) {
			state.summary.OutOfWindow++
			p.debug(log, "article outside window", "url", article.URL, "published", dateOrEmpty(article.PublishedAt))
			continue
		}

		candidate := p.extractor.Evaluate(ctx, article, run.company.Name)
		candidate.Aggregator = normalize.IsAggregatorURL(candidate.Article.URL)
		switch candidate.Status {
		case domain.CandidateExcluded:
			state.summary.Excluded++
			continue
		case domain.CandidateLowConfidence:
			state.summary.LowConfidence++
			continue
		}
		if len(selector.Filter(run.company.Name, []domain.Candidate{candidate})) == 0 {
			continue
		}

		stored, err := p.saveArticle(ctx, candidate.Article)
		if err != nil {
			return err
		}
		state.summary.ArticlesKept++
		run.stored[stored.URL] = stored
		candidate.Article.ID = stored.ID
		run.candidates = append(run.candidates, candidate)
		run.best = max(run.best, candidate.Article.Score)
	}
	return nil
}

func (p *Pipeline) saveArticle(ctx context.Context, article domain.RawArticle) (domain.RawArticle, error) {
	var stored domain.RawArticle
	err := retry.Do(ctx, p.writePolicy, func(ctx context.Context) error {
		var err error
		stored, err = p.store.SaveArticle(ctx, article)
		return err
	})
	if err != nil {
		return domain.RawArticle{}, fmt.Errorf("%w: save article %s: %w", domain.ErrWriteFailed, article.URL, err)
	}
	return stored, nil
}

func outOfWindow(article domain.RawArticle, since time.Time) bool {
	if since.IsZero() || article.PublishedAt.IsZero() {
		return false
	}
	return article.PublishedAt.Before(normalize.Day(since))
}

// proposeDeal cites the stored article row so that news_date matches the log.
func (p *Pipeline) proposeDeal(run *companyRun, best domain.Candidate) domain.Deal {
	article := best.Article
	if stored, ok := run.stored[article.URL]; ok {
		article.URL = stored.URL
		article.SiteName = stored.SiteName
		article.PublishedAt = stored.PublishedAt
		article.Title = stored.Title
	}

	x := best.Extraction
	industry := x.Industry
	if industry == "" {
		industry = run.company.Industry
	}
	return domain.Deal{
		CompanyName: run.company.Name,
		Industry:    industry,
		Stage:       x.Stage,
		Investors:   x.Investors,
		Amount:      x.Amount,
		NewsTitle:   article.Title,
		NewsURL:     article.URL,
		SiteName:    article.SiteName,
		NewsDate:    article.PublishedAt,
		Score:       article.Score,
	}
}

func (p *Pipeline) finish(state *runState) domain.RunSummary {
	summary := state.summary
	summary.FinishedAt = p.now()
	summary.AdaptersDegraded = make([]string, 0, len(state.degraded))
	for name := range state.degraded {
		summary.AdaptersDegraded = append(summary.AdaptersDegraded, name)
	}
	slices.Sort(summary.AdaptersDegraded)
	return summary
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func (p *Pipeline) debug(log *slog.Logger, msg string, args ...any) {
	if log != nil {
		log.Debug(msg, args...)
	}
}

func (p *Pipeline) info(log *slog.Logger, msg string, args ...any) {
	if log != nil {
		log.Info(msg, args...)
	}
}

func (p *Pipeline) warn(log *slog.Logger, msg string, args ...any) {
	if log != nil {
		log.Warn(msg, args...)
	}
}

func (p *Pipeline) logError(log *slog.Logger, msg string, args ...any) {
	if log != nil {
		log.Error(msg, args...)
	}
}
