package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DealScanner/internal/config"
	"DealScanner/internal/domain"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err  error
		want int
	}{
		"success":     {nil, 0},
		"config":      {fmt.Errorf("%w: universe file is required", domain.ErrConfig), 2},
		"renumber":    {fmt.Errorf("renumber: %w", domain.ErrRenumberFailed), 3},
		"store write": {fmt.Errorf("%w: seed sources", domain.ErrWriteFailed), 3},
		"unexpected":  {errors.New("boom"), 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	t.Parallel()

	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"--universe", "companies.xlsx",
		"--since", "2025-11-01",
		"--dry-run",
		"--adapters", "rss,manual",
		"--cron", "0 9 * * *",
	}))

	cfg := config.Config{Run: config.RunConfig{SourcesPath: "db", MaxPages: 5}}
	cfg.Logging.Level = "info"

	var f flags
	f.universe, _ = cmd.Flags().GetString("universe")
	f.since, _ = cmd.Flags().GetString("since")
	f.dryRun, _ = cmd.Flags().GetBool("dry-run")
	f.adapters, _ = cmd.Flags().GetStringSlice("adapters")
	f.cron, _ = cmd.Flags().GetString("cron")
	f.apply(cmd, &cfg)

	assert.Equal(t, "companies.xlsx", cfg.Run.UniversePath)
	assert.Equal(t, "2025-11-01", cfg.Run.Since)
	assert.True(t, cfg.Run.DryRun)
	assert.Equal(t, []string{"rss", "manual"}, cfg.Run.Adapters)
	assert.Equal(t, "0 9 * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, "db", cfg.Run.SourcesPath)
	assert.Equal(t, 5, cfg.Run.MaxPages)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestUnknownFlagIsConfigError(t *testing.T) {
	t.Parallel()

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--no-such-flag"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}
