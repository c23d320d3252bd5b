package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"DealScanner/internal/domain"
	"DealScanner/internal/normalize"
	"DealScanner/internal/ports"
	"DealScanner/internal/scanner"
)

// DefaultMaxPages is the listing depth used when neither the source nor the run sets one.
const DefaultMaxPages = 3

// ListingScanner scrapes a paginated HTML news listing with a CSS selector bundle.
type ListingScanner struct {
	spec    scanner.HTMLListing
	fetcher ports.PageFetcher
	logger  *slog.Logger
}

var _ scanner.Adapter = (*ListingScanner)(nil)

// NewListingScanner wires the fetcher used for listing pages.
func NewListingScanner(spec scanner.HTMLListing, fetcher ports.PageFetcher, log *slog.Logger) (*ListingScanner, error) {
	if spec.Selectors.Item == "" || spec.Selectors.Title == "" {
		return nil, fmt.Errorf("listing %s: item and title selectors are required", spec.Source.Name)
	}
	if spec.PageTemplate == "" {
		spec.PageTemplate = spec.Source.BaseURL
	}
	if spec.PageTemplate == "" {
		return nil, fmt.Errorf("listing %s: no page url", spec.Source.Name)
	}
	if spec.Encoding != "" {
		if forcer, ok := fetcher.(encodingForcer); ok {
			forcer.SetEncoding(normalize.Host(spec.PageTemplate), spec.Encoding)
		}
	}
	return &ListingScanner{spec: spec, fetcher: fetcher, logger: log}, nil
}

// encodingForcer is implemented by fetchers that accept per-host charset overrides.
type encodingForcer interface {
	SetEncoding(host, encoding string)
}

// Name identifies the adapter inside the registry.
func (l *ListingScanner) Name() string {
	return "html/" + scanner.Slug(l.spec.Source.Name)
}

// Method reports the collection method.
func (l *ListingScanner) Method() domain.CollectionMethod {
	return domain.MethodHTML
}

// Collect walks listing pages 1..K. A failed page is recorded and skipped; paging
// stops early once every dated entry on a page is older than q.Since.
func (l *ListingScanner) Collect(ctx context.Context, q scanner.Query) (scanner.Result, error) {
	var (
		result scanner.Result
		seen   = map[string]struct{}{}
	)

	pages := l.depth(q.MaxPages)
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		pageURL := buildPageURL(l.spec.PageTemplate, page)
		doc, err := l.fetchDocument(ctx, pageURL)
		if err != nil {
			l.debug("listing page failed", "page", page, "url", pageURL, "error", err)
			result.Failures = append(result.Failures, fmt.Errorf("%s page %d: %w", l.spec.Source.Name, page, err))
			continue
		}

		entries, shouldContinue := l.extractArticles(doc, pageURL, q)
		for _, article := range entries {
			key := article.URL
			if canonical, err := normalize.CanonicalURL(article.URL); err == nil {
				key = canonical
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			result.Articles = append(result.Articles, article)
		}

		if !shouldContinue || !paginated(l.spec.PageTemplate) {
			break
		}
	}

	l.debug("listing collected", "source", l.spec.Source.Name, "articles", len(result.Articles), "failures", len(result.Failures))
	return result, nil
}

func (l *ListingScanner) depth(runMax int) int {
	pages := l.spec.MaxPages
	if pages <= 0 {
		pages = DefaultMaxPages
	}
	if runMax > 0 && runMax < pages {
		pages = runMax
	}
	return pages
}

func (l *ListingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	page, err := l.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: parse document: %v", domain.ErrSourceUnavailable, err)
	}
	return doc, nil
}

// extractArticles returns the entries of one page and whether the next page may
// still hold in-window entries.
func (l *ListingScanner) extractArticles(doc *goquery.Document, pageURL string, q scanner.Query) ([]domain.RawArticle, bool) {
	var (
		collected []domain.RawArticle
		dated     int
		stale     int
	)

	doc.Find(l.spec.Selectors.Item).Each(func(_ int, item *goquery.Selection) {
		article, ok := l.parseEntry(item, pageURL, q.Now)
		if !ok {
			return
		}
		if !article.PublishedAt.IsZero() {
			dated++
			if !q.Since.IsZero() && article.PublishedAt.Before(normalize.Day(q.Since)) {
				stale++
			}
		}
		collected = append(collected, article)
	})

	if len(collected) == 0 {
		return nil, false
	}
	return collected, dated == 0 || stale < dated
}

func (l *ListingScanner) parseEntry(item *goquery.Selection, pageURL string, now time.Time) (domain.RawArticle, bool) {
	sel := l.spec.Selectors

	titleNode := item.Find(sel.Title).First()
	title := strings.Join(strings.Fields(titleNode.Text()), " ")
	if title == "" {
		return domain.RawArticle{}, false
	}

	href := linkHref(item, titleNode, sel.Link)
	if href == "" {
		return domain.RawArticle{}, false
	}

	article := domain.RawArticle{
		URL:        normalize.ResolveURL(pageURL, href),
		Title:      title,
		SiteName:   l.spec.Source.Name,
		SiteNumber: l.spec.Source.Number,
		SiteURL:    l.spec.Source.BaseURL,
		Adapter:    l.Name(),
	}

	if sel.Date != "" {
		dateNode := item.Find(sel.Date).First()
		dateText, ok := dateNode.Attr("datetime")
		if !ok {
			dateText = dateNode.Text()
		}
		if parsed, ok := normalize.ParseDateText(dateText, now); ok {
			article.PublishedAt = parsed
		}
	}
	if sel.Snippet != "" {
		article.Snippet = strings.Join(strings.Fields(item.Find(sel.Snippet).First().Text()), " ")
	}
	return article, true
}

func linkHref(item, titleNode *goquery.Selection, linkSelector string) string {
	candidates := []*goquery.Selection{}
	if linkSelector != "" {
		candidates = append(candidates, item.Find(linkSelector).First())
	}
	candidates = append(candidates, titleNode, titleNode.Find("a").First(), titleNode.Closest("a"), item.Find("a").First())
	for _, node := range candidates {
		if href, ok := node.Attr("href"); ok && strings.TrimSpace(href) != "" && !strings.HasPrefix(href, "#") {
			return strings.TrimSpace(href)
		}
	}
	return ""
}

func paginated(template string) bool {
	return strings.Contains(template, "{page}")
}

func buildPageURL(template string, page int) string {
	return strings.ReplaceAll(template, "{page}", strconv.Itoa(page))
}

func (l *ListingScanner) debug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}
