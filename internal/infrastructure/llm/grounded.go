package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"DealScanner/internal/domain"
	"DealScanner/internal/normalize"
	"DealScanner/internal/ports"
	"DealScanner/internal/scanner"
)

const (
	groundedMaxTokens = 2000

	groundedSystem = "You are a research assistant for Korean startup funding news. " +
		"Use web search and answer with a JSON array only."

	// DefaultPromptTemplate asks for published articles about one funding event.
	DefaultPromptTemplate = `"{company}" 의 최근 투자 유치 기사를 찾아주세요.
Return a JSON array of at most 5 objects with the keys "title", "url", "publisher", "date" (YYYY-MM-DD) and "summary".
Only include articles from news publishers that report a funding round of {company}. Return [] when nothing is found.`
)

// GroundedAdapter asks a web-search enabled model for candidate articles. Its
// output is marked Unverified; the normalizer confirms URL, publisher and date
// against the live page.
type GroundedAdapter struct {
	spec   scanner.LLMGrounded
	client ports.LLMClient
	logger *slog.Logger
}

var _ scanner.Adapter = (*GroundedAdapter)(nil)

// NewGroundedAdapter wires client for spec.
func NewGroundedAdapter(spec scanner.LLMGrounded, client ports.LLMClient, log *slog.Logger) *GroundedAdapter {
	if strings.TrimSpace(spec.PromptTemplate) == "" {
		spec.PromptTemplate = DefaultPromptTemplate
	}
	return &GroundedAdapter{spec: spec, client: client, logger: log}
}

func (a *GroundedAdapter) Name() string {
	return "llm/" + scanner.Slug(a.spec.Source.Name)
}

func (a *GroundedAdapter) Method() domain.CollectionMethod {
	return domain.MethodLLMGrounded
}

type groundedItem struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Publisher string `json:"publisher"`
	Date      string `json:"date"`
	Summary   string `json:"summary"`
}

// Collect issues one prompt for q.Company. A spent budget or quota yields an empty
// degraded result; only authentication failures and cancellation are returned.
func (a *GroundedAdapter) Collect(ctx context.Context, q scanner.Query) (scanner.Result, error) {
	var result scanner.Result

	resp, err := a.client.Complete(ctx, domain.CompletionRequest{
		System:    groundedSystem,
		Prompt:    scanner.ExpandTemplate(a.spec.PromptTemplate, q.Company.Name),
		MaxTokens: groundedMaxTokens,
		WebSearch: true,
	})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return result, ctx.Err()
	case errors.Is(err, domain.ErrSourceAuth):
		return result, fmt.Errorf("%s: %w", a.Name(), err)
	default:
		a.warn("grounded search failed", "company", q.Company.Name, "error", err)
		result.Failures = append(result.Failures, err)
		return result, nil
	}

	items, err := parseGroundedItems(resp.Text)
	if err != nil {
		a.warn("grounded response unparseable", "company", q.Company.Name, "error", err)
		result.Failures = append(result.Failures, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err))
		return result, nil
	}

	seen := map[string]struct{}{}
	for _, item := range items {
		article, ok := a.toArticle(item, q)
		if !ok {
			continue
		}
		key := article.URL
		if canonical, err := normalize.CanonicalURL(article.URL); err == nil {
			key = canonical
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result.Articles = append(result.Articles, article)
	}
	a.debug("grounded search finished", "company", q.Company.Name, "items", len(items), "kept", len(result.Articles), "tokens", resp.TokensUsed)
	return result, nil
}

func (a *GroundedAdapter) toArticle(item groundedItem, q scanner.Query) (domain.RawArticle, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.URL)
	if title == "" || !strings.HasPrefix(link, "http") {
		return domain.RawArticle{}, false
	}
	article := domain.RawArticle{
		URL:        link,
		Title:      title,
		SiteName:   strings.TrimSpace(item.Publisher),
		SiteNumber: a.spec.Source.Number,
		Snippet:    strings.TrimSpace(item.Summary),
		Adapter:    a.Name(),
		Company:    q.Company.Name,
		Unverified: true,
	}
	if ts, ok := normalize.ParseDateText(item.Date, q.Now); ok {
		article.PublishedAt = normalize.Day(ts)
	}
	return article, true
}

// parseGroundedItems tolerates code fences and prose around the array.
func parseGroundedItems(text string) ([]groundedItem, error) {
	payload := cleanJSONArray(text)
	if payload == "" {
		return nil, fmt.Errorf("no json array in response")
	}
	var items []groundedItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("decode grounded items: %w", err)
	}
	return items, nil
}

func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func (a *GroundedAdapter) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}

func (a *GroundedAdapter) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
