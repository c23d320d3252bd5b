package app

import (
	"context"
	"fmt"
	"strings"

	"DealScanner/internal/config"
	"DealScanner/internal/domain"
	"DealScanner/internal/scanner"
	"DealScanner/internal/universe"
)

// SourcesFromDB selects the sources table as the roster.
const SourcesFromDB = "db"

const manualSourceName = "Manual"

// resolveSources merges the configured specs with the roster and returns the specs of
// active sources whose adapter kind is enabled.
func (a *Application) resolveSources(ctx context.Context) ([]scanner.SourceSpec, error) {
	sources := append([]config.SourceConfig(nil), a.cfg.Sources...)

	roster, err := a.loadRoster(ctx, sources)
	if err != nil {
		return nil, err
	}
	sources = applyRoster(sources, roster)

	if path := a.cfg.Run.ManualPath; path != "" {
		number, ok := freeNumber(sources)
		if !ok {
			return nil, fmt.Errorf("%w: no free source number for the manual file", domain.ErrConfig)
		}
		sources = append(sources, config.SourceConfig{
			Number: number,
			Name:   manualSourceName,
			Method: string(domain.MethodManual),
			Path:   path,
		})
	}

	var specs []scanner.SourceSpec
	for _, src := range sources {
		if !src.IsActive() {
			continue
		}
		method, _ := domain.ParseCollectionMethod(src.Method)
		if !a.cfg.Run.Enabled(config.AdapterKind(method)) {
			continue
		}
		spec, err := src.Spec(a.cfg.Search, a.cfg.LLM)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// loadRoster reads the sources table from a CSV file or the store. An empty
// table in the store is seeded from configuration.
func (a *Application) loadRoster(ctx context.Context, configured []config.SourceConfig) ([]domain.Source, error) {
	path := strings.TrimSpace(a.cfg.Run.SourcesPath)
	switch {
	case path == "":
		return nil, nil
	case strings.EqualFold(path, SourcesFromDB):
		rows, err := a.store.ListSources(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list sources: %w", domain.ErrWriteFailed, err)
		}
		if len(rows) > 0 {
			return rows, nil
		}
		seed := make([]domain.Source, 0, len(configured))
		for _, src := range configured {
			seed = append(seed, src.Descriptor())
		}
		if err := a.store.UpsertSources(ctx, seed); err != nil {
			return nil, fmt.Errorf("%w: seed sources: %w", domain.ErrWriteFailed, err)
		}
		a.logger.Info("sources table seeded from configuration", "count", len(seed))
		return seed, nil
	default:
		return universe.LoadSourcesFile(path)
	}
}

// applyRoster lets roster rows gate is_active and fill descriptor fields. Roster rows
// without a configured spec are added with method defaults.
func applyRoster(sources []config.SourceConfig, roster []domain.Source) []config.SourceConfig {
	if len(roster) == 0 {
		return sources
	}
	byNumber := make(map[int]int, len(sources))
	for i, src := range sources {
		byNumber[src.Number] = i
	}
	for _, row := range roster {
		active := row.Active
		i, ok := byNumber[row.Number]
		if !ok {
			sources = append(sources, config.SourceConfig{
				Number:   row.Number,
				Name:     row.Name,
				URL:      row.BaseURL,
				Method:   string(row.Method),
				Category: row.Category,
				Active:   &active,
			})
			continue
		}
		src := &sources[i]
		src.Active = &active
		if src.Name == "" {
			src.Name = row.Name
		}
		if src.URL == "" {
			src.URL = row.BaseURL
		}
		if src.Category == "" {
			src.Category = row.Category
		}
	}
	return sources
}

// freeNumber returns the highest unused site number.
func freeNumber(sources []config.SourceConfig) (int, bool) {
	used := map[int]struct{}{}
	for _, src := range sources {
		used[src.Number] = struct{}{}
	}
	for n := domain.MaxSiteNumber; n >= domain.MinSiteNumber; n-- {
		if _, taken := used[n]; !taken {
			return n, true
		}
	}
	return 0, false
}
