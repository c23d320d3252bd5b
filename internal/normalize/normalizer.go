package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"DealScanner/internal/domain"
	"DealScanner/internal/ports"
)

const maxBodyRunes = 4000

// dateSelectors are tried for a date-looking element when no machine-readable meta exists.
var dateSelectors = []string{
	".article-date", ".date", ".byline", ".info-date", ".news_date", ".article_info",
	".view_date", ".registerDate", ".datetime", "span.time", ".media_end_head_info_datestamp_time",
}

// Normalizer canonicalizes URLs and resolves the publisher and publication date of an article.
type Normalizer struct {
	fetcher ports.PageFetcher
	now     func() time.Time
	logger  *slog.Logger
}

// NewNormalizer wires an optional page fetcher. Without a fetcher only the URL and
// the adapter-provided fields are used, and unverified candidates are dropped.
func NewNormalizer(fetcher ports.PageFetcher, log *slog.Logger) *Normalizer {
	return &Normalizer{fetcher: fetcher, now: time.Now, logger: log}
}

// WithClock overrides the collection clock.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

// Normalize returns the article with canonical URL, concrete publisher and publication date.
// It returns an error wrapping domain.ErrNormalizationFailed when the article must be skipped.
func (n *Normalizer) Normalize(ctx context.Context, article domain.RawArticle) (domain.RawArticle, error) {
	canonical, err := CanonicalURL(article.URL)
	if err != nil {
		return article, fmt.Errorf("%w: %v", domain.ErrNormalizationFailed, err)
	}
	article.URL = canonical

	if IsAggregatorURL(article.URL) && n.fetcher != nil {
		article.URL = n.resolveAggregator(ctx, article.URL)
	}

	var page *goquery.Document
	if n.fetcher != nil && n.needsPage(article) {
		doc, pageErr := n.loadPage(ctx, article.URL)
		if pageErr != nil {
			if article.Unverified {
				return article, fmt.Errorf("%w: unreachable %s: %v", domain.ErrNormalizationFailed, article.URL, pageErr)
			}
			n.debug("page fetch failed, using adapter fields", "url", article.URL, "error", pageErr)
		} else {
			page = doc
		}
	}
	if article.Unverified && page == nil {
		return article, fmt.Errorf("%w: unverified article %s could not be confirmed", domain.ErrNormalizationFailed, article.URL)
	}

	publisher := resolvePublisher(page, article)
	if publisher == "" {
		return article, fmt.Errorf("%w: no publisher for %s", domain.ErrNormalizationFailed, article.URL)
	}
	article.SiteName = publisher
	article.SiteURL = SiteURL(article.URL)

	n.resolveDate(page, &article)

	if page != nil {
		if article.Body == "" {
			article.Body = extractBody(page, article.URL)
		}
		if article.Title == "" {
			if ogTitle, ok := page.Find("meta[property='og:title']").Attr("content"); ok {
				article.Title = strings.TrimSpace(ogTitle)
			}
		}
	}
	if strings.TrimSpace(article.Title) == "" {
		return article, fmt.Errorf("%w: empty title for %s", domain.ErrNormalizationFailed, article.URL)
	}

	return article, nil
}

// needsPage reports whether the live page can contribute something the adapter did not supply.
func (n *Normalizer) needsPage(article domain.RawArticle) bool {
	if article.Unverified {
		return true
	}
	if article.SiteName == "" || IsAggregatorLabel(article.SiteName) {
		return true
	}
	return article.PublishedAt.IsZero() || article.Body == ""
}

func (n *Normalizer) resolveAggregator(ctx context.Context, aggregatorURL string) string {
	target, err := n.fetcher.ResolveRedirect(ctx, aggregatorURL)
	if err == nil && target != "" && target != aggregatorURL {
		if canonical, cErr := CanonicalURL(target); cErr == nil && !IsAggregatorURL(canonical) {
			return canonical
		}
	}

	doc, err := n.loadPage(ctx, aggregatorURL)
	if err != nil {
		n.debug("aggregator page unavailable", "url", aggregatorURL, "error", err)
		return aggregatorURL
	}
	for _, selector := range []string{"a.media_end_head_origin_link", "a.link_origin", "a[data-origin-url]"} {
		sel := doc.Find(selector).First()
		href, ok := sel.Attr("href")
		if !ok {
			href, ok = sel.Attr("data-origin-url")
		}
		if !ok || href == "" {
			continue
		}
		if canonical, cErr := CanonicalURL(ResolveURL(aggregatorURL, href)); cErr == nil && !IsAggregatorURL(canonical) {
			return canonical
		}
	}
	return aggregatorURL
}

func (n *Normalizer) loadPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	page, err := n.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// resolvePublisher applies og:site_name, publisher meta, host table, <title> tail and
// finally the adapter-provided name. Aggregator labels are never returned.
func resolvePublisher(page *goquery.Document, article domain.RawArticle) string {
	var candidates []string
	if page != nil {
		candidates = append(candidates,
			metaContent(page, "meta[property='og:site_name']"),
			metaContent(page, "meta[name='publisher']"),
			metaContent(page, "meta[property='article:publisher']"),
			metaContent(page, "meta[property='og:article:author']"),
		)
	}
	if name, ok := PublisherForHost(Host(article.URL)); ok {
		candidates = append(candidates, name)
	}
	if page != nil {
		candidates = append(candidates, TitleTail(page.Find("title").First().Text()))
	}
	if !article.Unverified {
		candidates = append(candidates, article.SiteName)
	}

	for _, candidate := range candidates {
		candidate = cleanPublisher(candidate)
		if candidate == "" || IsAggregatorLabel(candidate) || looksLikeURL(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

// resolveDate applies article:published_time, pubdate, time[datetime], a date-looking
// element, then the adapter date. Without any, the collection day is used and flagged.
func (n *Normalizer) resolveDate(page *goquery.Document, article *domain.RawArticle) {
	if page != nil {
		for _, value := range []string{
			metaContent(page, "meta[property='article:published_time']"),
			metaContent(page, "meta[name='pubdate']"),
			attrValue(page, "time[datetime]", "datetime"),
		} {
			if parsed, ok := ParseTimestamp(value); ok {
				article.PublishedAt = parsed
				article.DateLowConfidence = false
				return
			}
		}
		for _, selector := range dateSelectors {
			text := strings.TrimSpace(page.Find(selector).First().Text())
			if parsed, ok := ParseDateText(text, time.Time{}); ok {
				article.PublishedAt = parsed
				article.DateLowConfidence = false
				return
			}
		}
	}

	if !article.PublishedAt.IsZero() && !article.Unverified {
		article.PublishedAt = Day(article.PublishedAt)
		return
	}

	article.PublishedAt = Day(n.now())
	article.DateLowConfidence = true
}

func extractBody(page *goquery.Document, pageURL string) string {
	html, err := page.Html()
	if err == nil {
		if parsedURL, pErr := url.Parse(pageURL); pErr == nil {
			if art, rErr := readability.FromReader(strings.NewReader(html), parsedURL); rErr == nil {
				if text := strings.TrimSpace(art.TextContent); text != "" {
					return truncateRunes(collapseSpace(text), maxBodyRunes)
				}
			}
		}
	}

	text := page.Find("article").First().Text()
	if strings.TrimSpace(text) == "" {
		text = metaContent(page, "meta[property='og:description']")
	}
	return truncateRunes(collapseSpace(text), maxBodyRunes)
}

func metaContent(doc *goquery.Document, selector string) string {
	return attrValue(doc, selector, "content")
}

func attrValue(doc *goquery.Document, selector, attr string) string {
	value, _ := doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(value)
}

// ResolveURL resolves href against base; unparseable input is returned unchanged.
func ResolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

func looksLikeURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func (n *Normalizer) debug(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Debug(msg, args...)
	}
}
