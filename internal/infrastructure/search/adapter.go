package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"DealScanner/internal/domain"
	"DealScanner/internal/extract"
	"DealScanner/internal/normalize"
	"DealScanner/internal/ports"
	"DealScanner/internal/scanner"
)

const defaultDisplay = 20

// Adapter issues one query per (company, template) pair and keeps hits whose title
// carries an investment keyword.
type Adapter struct {
	spec   scanner.SearchAPI
	client ports.SearchClient
	logger *slog.Logger
}

var _ scanner.Adapter = (*Adapter)(nil)

// NewAdapter wires the search client for spec.
func NewAdapter(spec scanner.SearchAPI, client ports.SearchClient, log *slog.Logger) *Adapter {
	if len(spec.QueryTemplates) == 0 {
		spec.QueryTemplates = scanner.DefaultQueryTemplates
	}
	if spec.Display <= 0 {
		spec.Display = defaultDisplay
	}
	return &Adapter{spec: spec, client: client, logger: log}
}

func (a *Adapter) Name() string {
	return "search/" + scanner.Slug(a.spec.Source.Name)
}

func (a *Adapter) Method() domain.CollectionMethod {
	return domain.MethodSearchAPI
}

// Collect returns an error only for authentication failures and cancellation.
// A spent quota ends the collection early with what was gathered.
func (a *Adapter) Collect(ctx context.Context, q scanner.Query) (scanner.Result, error) {
	var (
		result scanner.Result
		seen   = map[string]struct{}{}
	)

	for _, template := range a.spec.QueryTemplates {
		query := scanner.ExpandTemplate(template, q.Company.Name)
		hits, err := a.client.Search(ctx, query, a.spec.Display)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return result, ctx.Err()
		case errors.Is(err, domain.ErrSourceAuth):
			return result, fmt.Errorf("%s: %w", a.Name(), err)
		case errors.Is(err, domain.ErrQuotaExhausted):
			result.Failures = append(result.Failures, err)
			return result, nil
		default:
			a.warn("search query failed", "query", query, "error", err)
			result.Failures = append(result.Failures, fmt.Errorf("query %q: %w", query, err))
			continue
		}

		for _, hit := range hits {
			if !extract.HasInvestmentKeyword(hit.Title) {
				continue
			}
			key := hit.URL
			if canonical, err := normalize.CanonicalURL(hit.URL); err == nil {
				key = canonical
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			result.Articles = append(result.Articles, a.toArticle(hit, q.Company.Name))
		}
	}
	return result, nil
}

func (a *Adapter) toArticle(hit domain.SearchHit, company string) domain.RawArticle {
	article := domain.RawArticle{
		URL:        hit.URL,
		Title:      hit.Title,
		SiteName:   hit.Publisher,
		SiteNumber: a.spec.Source.Number,
		Snippet:    hit.Snippet,
		Adapter:    a.Name(),
		Company:    company,
	}
	if article.SiteName == "" {
		if name, ok := normalize.PublisherForHost(normalize.Host(hit.URL)); ok {
			article.SiteName = name
		}
	}
	if !hit.PublishedAt.IsZero() {
		article.PublishedAt = normalize.Day(hit.PublishedAt)
	}
	return article
}

func (a *Adapter) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
