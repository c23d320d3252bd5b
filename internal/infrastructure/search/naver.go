// Package search queries a Naver-compatible news search API and adapts it to the
// scanner contract.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"DealScanner/internal/config"
	"DealScanner/internal/domain"
	"DealScanner/internal/ports"
)

const maxDisplay = 100

// NaverClient implements ports.SearchClient against the news search endpoint.
type NaverClient struct {
	endpoint     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

var _ ports.SearchClient = (*NaverClient)(nil)

// NewNaverClient builds a client from configuration.
func NewNaverClient(cfg config.SearchConfig, timeout time.Duration) *NaverClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NaverClient{
		endpoint:     cfg.Endpoint,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type naverResponse struct {
	Items []naverItem `json:"items"`
}

type naverItem struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
}

// Search returns up to limit hits sorted by date. The publisher URL is preferred
// over the portal copy.
func (c *NaverClient) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	if c == nil || c.endpoint == "" {
		return nil, fmt.Errorf("search client misconfigured")
	}
	if c.clientID == "" || c.clientSecret == "" {
		return nil, fmt.Errorf("%w: search credentials missing", domain.ErrSourceAuth)
	}
	limit = min(max(limit, 1), maxDisplay)

	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(limit))
	params.Set("sort", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: search %q: %v", domain.ErrSourceUnavailable, query, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: search api returned %s", domain.ErrSourceAuth, resp.Status)
	case resp.StatusCode >= http.StatusBadRequest:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: search api error %s: %s", domain.ErrSourceUnavailable, resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded naverResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", domain.ErrSourceUnavailable, err)
	}

	hits := make([]domain.SearchHit, 0, len(decoded.Items))
	for _, item := range decoded.Items {
		hit := domain.SearchHit{
			Title:   cleanup(item.Title),
			URL:     strings.TrimSpace(item.OriginalLink),
			Snippet: cleanup(item.Description),
		}
		link := strings.TrimSpace(item.Link)
		if hit.URL == "" {
			hit.URL = link
		} else if link != hit.URL {
			hit.AggregatorURL = link
		}
		if published, err := time.Parse(time.RFC1123Z, strings.TrimSpace(item.PubDate)); err == nil {
			hit.PublishedAt = published
		}
		if hit.URL == "" || hit.Title == "" {
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// cleanup strips the API's highlight markup and entities.
func cleanup(s string) string {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
		s = doc.Text()
	}
	return strings.Join(strings.Fields(s), " ")
}
