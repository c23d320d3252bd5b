// Package fetch downloads publisher pages and decodes them to UTF-8.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"DealScanner/internal/domain"
	"DealScanner/internal/normalize"
	"DealScanner/internal/ports"
)

const (
	// DefaultUserAgent is a desktop browser string; several Korean outlets serve
	// an empty shell to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultTimeout   = 10 * time.Second

	maxBodyBytes = 4 << 20
)

// Encoding names accepted by SetEncoding.
const (
	EncodingAuto  = ""
	EncodingUTF8  = "utf-8"
	EncodingEUCKR = "euc-kr"
)

// Client is an http.Client with a fixed user agent and per-host charset overrides.
type Client struct {
	http      *http.Client
	noFollow  *http.Client
	userAgent string
	logger    *slog.Logger

	mu        sync.RWMutex
	encodings map[string]string
}

var _ ports.PageFetcher = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client; its CheckRedirect is not used for ResolveRedirect.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
			cl.noFollow.Timeout = d
		}
	}
}

// New builds a Client.
func New(log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
		logger:    log,
		encodings: map[string]string{},
	}
	c.noFollow = &http.Client{
		Timeout: DefaultTimeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.noFollow.Transport == nil {
		c.noFollow.Transport = c.http.Transport
	}
	return c
}

// SetEncoding forces the charset used for pages of host.
func (c *Client) SetEncoding(host, encoding string) {
	host = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(host), "www."), "m.")
	c.mu.Lock()
	defer c.mu.Unlock()
	if encoding == EncodingAuto {
		delete(c.encodings, host)
		return
	}
	c.encodings[host] = strings.ToLower(encoding)
}

// Fetch downloads pageURL following redirects and returns the decoded HTML.
func (c *Client) Fetch(ctx context.Context, pageURL string) (domain.Page, error) {
	resp, err := c.do(ctx, c.http, pageURL)
	if err != nil {
		return domain.Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return domain.Page{StatusCode: resp.StatusCode}, fmt.Errorf("%w: GET %s: status %d", domain.ErrSourceUnavailable, pageURL, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Page{}, fmt.Errorf("%w: read %s: %v", domain.ErrSourceUnavailable, pageURL, err)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	html, err := c.decode(finalURL, raw)
	if err != nil {
		return domain.Page{}, fmt.Errorf("%w: decode %s: %v", domain.ErrSourceUnavailable, pageURL, err)
	}
	return domain.Page{URL: finalURL, StatusCode: resp.StatusCode, HTML: html}, nil
}

// ResolveRedirect issues one request without following redirects. It returns the
// Location target of a 3xx response, or pageURL itself otherwise.
func (c *Client) ResolveRedirect(ctx context.Context, pageURL string) (string, error) {
	resp, err := c.do(ctx, c.noFollow, pageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return pageURL, nil
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return pageURL, nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return location, nil
	}
	target, err := base.Parse(location)
	if err != nil {
		return location, nil
	}
	return target.String(), nil
}

func (c *Client) do(ctx context.Context, client *http.Client, pageURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: GET %s: %v", domain.ErrSourceUnavailable, pageURL, err)
	}
	return resp, nil
}

// decode prefers UTF-8 and falls back to EUC-KR (CP949) when the bytes are not valid
// UTF-8, regardless of what the page's meta charset claims.
func (c *Client) decode(pageURL string, raw []byte) (string, error) {
	switch c.encodingFor(pageURL) {
	case EncodingUTF8:
		return strings.ToValidUTF8(string(raw), "�"), nil
	case EncodingEUCKR, "cp949", "ks_c_5601-1987":
		return decodeEUCKR(raw)
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	if c.logger != nil {
		c.logger.Debug("page is not utf-8, decoding as euc-kr", "url", pageURL)
	}
	return decodeEUCKR(raw)
}

func (c *Client) encodingFor(pageURL string) string {
	host := normalize.Host(pageURL)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.encodings[host]
}

func decodeEUCKR(raw []byte) (string, error) {
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
