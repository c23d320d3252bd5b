package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"DealScanner/internal/config"
	"DealScanner/internal/domain"
	"DealScanner/internal/extract"
	"DealScanner/internal/infrastructure/fetch"
	"DealScanner/internal/infrastructure/llm"
	"DealScanner/internal/infrastructure/parser"
	"DealScanner/internal/infrastructure/scheduler"
	"DealScanner/internal/infrastructure/search"
	"DealScanner/internal/infrastructure/storage"
	"DealScanner/internal/infrastructure/telegram"
	"DealScanner/internal/logging"
	"DealScanner/internal/normalize"
	"DealScanner/internal/ports"
	"DealScanner/internal/reconcile"
	"DealScanner/internal/report"
	"DealScanner/internal/scanner"
	"DealScanner/internal/throttle"
	"DealScanner/internal/universe"
	"DealScanner/internal/usecase"
)

const defaultWindow = 7 * 24 * time.Hour

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	out      io.Writer
	db       *sqlx.DB
	store    ports.Store
	fetcher  ports.PageFetcher
	pipeline *usecase.Pipeline
	metrics  *report.Metrics
	now      func() time.Time
}

// Option customises the application, mostly for tests.
type Option func(*Application)

// WithStore replaces the store that would be opened from configuration.
func WithStore(store ports.Store) Option {
	return func(a *Application) { a.store = store }
}

// WithOutput redirects the summary table.
func WithOutput(w io.Writer) Option {
	return func(a *Application) { a.out = w }
}

// WithFetcher replaces the HTTP page fetcher.
func WithFetcher(f ports.PageFetcher) Option {
	return func(a *Application) { a.fetcher = f }
}

// New validates cfg and wires every component. The caller must Close the application.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts ...Option) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithFormat(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger, out: os.Stdout, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	pipeline, err := a.buildPipeline(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.pipeline = pipeline
	if cfg.Metrics.Textfile != "" {
		a.metrics = report.NewMetrics()
	}
	return a, nil
}

// openStore picks Postgres, a dry-run snapshot of Postgres, or an empty memory store.
func (a *Application) openStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	if a.cfg.Database.URL == "" {
		a.logger.Info("no database configured, using an empty in-memory store")
		a.store = storage.NewMemoryStore()
		return nil
	}

	db, err := storage.Open(ctx, a.cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}
	a.db = db
	repo := storage.NewPostgresRepository(db)
	if !a.cfg.Run.DryRun {
		a.store = repo
		return nil
	}

	snapshot, err := storage.Snapshot(ctx, repo)
	if err != nil {
		return fmt.Errorf("%w: dry-run snapshot: %w", domain.ErrWriteFailed, err)
	}
	a.logger.Info("dry run: working on an in-memory copy of the database")
	a.store = snapshot
	return nil
}

func (a *Application) buildPipeline(ctx context.Context) (*usecase.Pipeline, error) {
	cfg := a.cfg
	limits := throttle.New(throttle.Limits{MinInterval: cfg.Rate.MinInterval, Concurrency: cfg.Rate.Concurrency})

	fetcher := a.fetcher
	if fetcher == nil {
		fetcher = fetch.New(a.logger.With("component", "fetch"), fetch.WithTimeout(cfg.Budget.HTTP))
	}
	fetcher = throttle.Fetcher(fetcher, limits)

	var searchClient ports.SearchClient
	if cfg.Search.ClientID != "" && cfg.Search.ClientSecret != "" {
		searchClient = throttle.Search(search.NewNaverClient(cfg.Search, cfg.Budget.HTTP), limits, "search", throttle.NewQuota("search", cfg.Quota.SearchCalls))
	}

	var llmClient ports.LLMClient
	if cfg.LLM.APIKey != "" {
		client, err := llm.New(cfg.LLM)
		if err != nil {
			return nil, err
		}
		llmClient = throttle.CompanyBudgeted(throttle.LLM(client, limits, "llm", throttle.NewQuota("llm", cfg.Quota.LLMCalls), cfg.Budget.LLMCall))
	}

	specs, err := a.resolveSources(ctx)
	if err != nil {
		return nil, err
	}
	registry := newRegistry(fetcher, searchClient, llmClient, a.logger)
	for _, spec := range specs {
		if _, err := registry.Build(spec); err != nil {
			if errors.Is(err, domain.ErrConfig) {
				return nil, err
			}
			a.logger.Warn("source skipped", "source", spec.Descriptor().Name, "error", err)
		}
	}

	extractor := extract.NewExtractor(extract.Options{USDKRW: cfg.Extract.USDKRW}, a.logger.With("component", "extract"))
	if llmClient != nil {
		extractor = extractor.WithLLM(llmClient)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	deps := usecase.PipelineDeps{
		Listings:   parser.NewRunSource(registry, cfg.Budget.Listing, cfg.Rate.Concurrency, a.logger.With("component", "listings")),
		Adapters:   registry.Adapters(),
		Normalizer: normalize.NewNormalizer(fetcher, a.logger.With("component", "normalize")),
		Extractor:  extractor,
		Store:      a.store,
		Reconciler: reconcile.New(a.store, a.store, a.logger.With("component", "reconcile")),
		Notifier:   notifier,
		Logger:     a.logger.With("component", "pipeline"),
	}
	opts := usecase.Options{
		Since:         cfg.Run.SinceTime(),
		MaxPages:      cfg.Run.MaxPages,
		DryRun:        cfg.Run.DryRun,
		AdapterBudget: cfg.Budget.Adapter,
		LLMTokens:     cfg.Budget.LLMTokens,
		Workers:       cfg.Rate.Concurrency,
	}
	if opts.Since.IsZero() {
		opts.Window = defaultWindow
	}
	return usecase.NewPipeline(deps, opts).WithClock(func() time.Time { return a.now().In(cfg.Scheduler.Location()) }), nil
}

// newRegistry registers one factory per collection method.
func newRegistry(fetcher ports.PageFetcher, searchClient ports.SearchClient, llmClient ports.LLMClient, log *slog.Logger) *scanner.Registry {
	reg := scanner.NewRegistry()
	reg.RegisterFactory(domain.MethodHTML, func(spec scanner.SourceSpec) (scanner.Adapter, error) {
		return parser.NewListingScanner(spec.(scanner.HTMLListing), fetcher, log.With("component", "scanner.html"))
	})
	reg.RegisterFactory(domain.MethodRSS, func(spec scanner.SourceSpec) (scanner.Adapter, error) {
		return parser.NewFeedScanner(spec.(scanner.RSSFeed), fetcher, log.With("component", "scanner.rss"))
	})
	reg.RegisterFactory(domain.MethodSearchAPI, func(spec scanner.SourceSpec) (scanner.Adapter, error) {
		if searchClient == nil {
			return nil, errors.New("search credentials are not configured")
		}
		return search.NewAdapter(spec.(scanner.SearchAPI), searchClient, log.With("component", "scanner.search")), nil
	})
	reg.RegisterFactory(domain.MethodLLMGrounded, func(spec scanner.SourceSpec) (scanner.Adapter, error) {
		if llmClient == nil {
			return nil, errors.New("llm api key is not configured")
		}
		return llm.NewGroundedAdapter(spec.(scanner.LLMGrounded), llmClient, log.With("component", "scanner.llm")), nil
	})
	reg.RegisterFactory(domain.MethodManual, func(spec scanner.SourceSpec) (scanner.Adapter, error) {
		return parser.NewManualSource(spec.(scanner.ManualFile), log.With("component", "scanner.manual"))
	})
	return reg
}

// Run performs one pipeline execution over the configured universe.
func (a *Application) Run(ctx context.Context) (domain.RunSummary, error) {
	companies, err := universe.Load(a.cfg.Run.UniversePath)
	if err != nil {
		return domain.RunSummary{}, err
	}

	summary, err := a.pipeline.Run(ctx, companies)
	if a.out != nil {
		report.WriteSummary(a.out, summary)
		if a.cfg.Run.DryRun && err == nil {
			if deals, listErr := a.store.ListDeals(ctx); listErr == nil {
				report.WriteDeals(a.out, deals)
			}
		}
	}
	if a.metrics != nil && err == nil {
		a.metrics.Observe(summary)
		if mErr := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); mErr != nil {
			a.logger.Warn("metrics not written", "path", a.cfg.Metrics.Textfile, "error", mErr)
		}
	}
	return summary, err
}

// Schedule runs the pipeline on the configured cron expression until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), a.logger.With("component", "scheduler"))
	runner := usecase.NewScheduler(driver, func(ctx context.Context, trigger time.Time) error {
		a.logger.Info("scheduled run triggered", "trigger", trigger)
		_, err := a.Run(ctx)
		return err
	}, a.logger)

	if err := runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return runner.Stop(stopCtx)
}

// Close releases the database connection.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Migrate applies the embedded schema to the configured database.
func Migrate(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("%w: DB_URL is required for --migrate", domain.ErrConfig)
	}
	db, err := storage.Open(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}
	defer db.Close()
	if err := storage.Migrate(db.DB, log); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}
	return nil
}
