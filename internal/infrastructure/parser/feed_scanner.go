package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"DealScanner/internal/domain"
	"DealScanner/internal/normalize"
	"DealScanner/internal/ports"
	"DealScanner/internal/scanner"
)

const maxSnippetRunes = 300

// FeedScanner reads an RSS or Atom feed through the page fetcher.
type FeedScanner struct {
	spec    scanner.RSSFeed
	fetcher ports.PageFetcher
	logger  *slog.Logger
}

var _ scanner.Adapter = (*FeedScanner)(nil)

// NewFeedScanner validates the feed url.
func NewFeedScanner(spec scanner.RSSFeed, fetcher ports.PageFetcher, log *slog.Logger) (*FeedScanner, error) {
	if spec.FeedURL == "" {
		spec.FeedURL = spec.Source.BaseURL
	}
	if spec.FeedURL == "" {
		return nil, fmt.Errorf("feed %s: no feed url", spec.Source.Name)
	}
	return &FeedScanner{spec: spec, fetcher: fetcher, logger: log}, nil
}

func (f *FeedScanner) Name() string {
	return "rss/" + scanner.Slug(f.spec.Source.Name)
}

func (f *FeedScanner) Method() domain.CollectionMethod {
	return domain.MethodRSS
}

// Collect fetches the feed once. A feed that cannot be fetched or parsed is a
// recorded failure, not an adapter error.
func (f *FeedScanner) Collect(ctx context.Context, _ scanner.Query) (scanner.Result, error) {
	page, err := f.fetcher.Fetch(ctx, f.spec.FeedURL)
	if err != nil {
		if ctx.Err() != nil {
			return scanner.Result{}, ctx.Err()
		}
		return scanner.Result{Failures: []error{fmt.Errorf("feed %s: %w", f.spec.Source.Name, err)}}, nil
	}

	parsed, err := gofeed.NewParser().ParseString(page.HTML)
	if err != nil {
		return scanner.Result{Failures: []error{fmt.Errorf("%w: feed %s: %v", domain.ErrSourceUnavailable, f.spec.Source.Name, err)}}, nil
	}

	result := scanner.Result{Articles: make([]domain.RawArticle, 0, len(parsed.Items))}
	for _, entry := range parsed.Items {
		link := extractLink(entry)
		title := strings.Join(strings.Fields(entry.Title), " ")
		if link == "" || title == "" {
			continue
		}
		article := domain.RawArticle{
			URL:        normalize.ResolveURL(f.spec.FeedURL, link),
			Title:      title,
			SiteName:   f.spec.Source.Name,
			SiteNumber: f.spec.Source.Number,
			SiteURL:    f.spec.Source.BaseURL,
			Snippet:    plainText(entry.Description, maxSnippetRunes),
			Adapter:    f.Name(),
		}
		if entry.PublishedParsed != nil {
			article.PublishedAt = normalize.Day(*entry.PublishedParsed)
		} else if entry.UpdatedParsed != nil {
			article.PublishedAt = normalize.Day(*entry.UpdatedParsed)
		}
		result.Articles = append(result.Articles, article)
	}

	if f.logger != nil {
		f.logger.Debug("feed collected", "source", f.spec.Source.Name, "articles", len(result.Articles))
	}
	return result, nil
}

// extractLink prefers the explicit link and falls back to a URL-shaped GUID.
func extractLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if strings.HasPrefix(entry.GUID, "http") {
		return entry.GUID
	}
	return ""
}

// plainText drops markup from feed descriptions.
func plainText(html string, limit int) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		text = doc.Text()
	}
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes)
}
