package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"DealScanner/internal/app"
	"DealScanner/internal/config"
	"DealScanner/internal/domain"
	"DealScanner/internal/logging"
)

// flags mirrors the command line; only flags the user set override the configuration.
type flags struct {
	configPath  string
	universe    string
	sources     string
	manual      string
	since       string
	dryRun      bool
	maxPages    int
	adapters    []string
	logLevel    string
	cron        string
	metricsFile string
	migrate     bool
}

func newRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "dealscanner",
		Short:         "Consolidate startup funding news into the deals table",
		Long:          `Collects funding news for every company in the universe, extracts deal facts and reconciles them with the stored deals.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", domain.ErrConfig, err)
	})

	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file (default $DEAL_SCANNER_CONFIG)")
	fs.StringVar(&f.universe, "universe", "", "company universe file (.csv or .xlsx)")
	fs.StringVar(&f.sources, "sources", "", `sources roster CSV, or "db" to use the sources table`)
	fs.StringVar(&f.manual, "manual", "", "curated articles CSV (company,title,url,site_name,date)")
	fs.StringVar(&f.since, "since", "", "drop articles published before YYYY-MM-DD (default 7 days ago)")
	fs.BoolVar(&f.dryRun, "dry-run", false, "run against an in-memory copy and print the resulting deals")
	fs.IntVar(&f.maxPages, "max-pages", 0, "listing pages per HTML source (0 keeps the source default)")
	fs.StringSliceVar(&f.adapters, "adapters", nil, "adapter kinds to enable: html,rss,search,llm,manual")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&f.cron, "cron", "", "stay alive and run on this cron expression")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after each run")
	fs.BoolVar(&f.migrate, "migrate", false, "apply the database schema and exit")
	return cmd
}

func run(cmd *cobra.Command, f flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	f.apply(cmd, &cfg)

	logger := logging.NewWithFormat(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	ctx := cmd.Context()

	if f.migrate {
		return app.Migrate(ctx, cfg, logger)
	}

	application, err := app.New(ctx, cfg, logger, app.WithOutput(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("database close failed", "error", cerr)
		}
	}()

	if cmd.Flags().Changed("cron") {
		logger.Info("scheduled mode", "cron", cfg.Scheduler.CronExpression)
		return application.Schedule(ctx)
	}
	_, err = application.Run(ctx)
	return err
}

func (f flags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("universe") {
		cfg.Run.UniversePath = f.universe
	}
	if changed("sources") {
		cfg.Run.SourcesPath = f.sources
	}
	if changed("manual") {
		cfg.Run.ManualPath = f.manual
	}
	if changed("since") {
		cfg.Run.Since = strings.TrimSpace(f.since)
	}
	if changed("dry-run") {
		cfg.Run.DryRun = f.dryRun
	}
	if changed("max-pages") {
		cfg.Run.MaxPages = f.maxPages
	}
	if changed("adapters") {
		cfg.Run.Adapters = f.adapters
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("cron") {
		cfg.Scheduler.CronExpression = f.cron
	}
	if changed("metrics-file") {
		cfg.Metrics.Textfile = f.metricsFile
	}
}

// exitCode maps run errors to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrConfig):
		return 2
	case errors.Is(err, domain.ErrRenumberFailed), errors.Is(err, domain.ErrWriteFailed):
		return 3
	default:
		return 1
	}
}
