package normalize

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query keys that never identify an article.
var trackingParams = map[string]struct{}{
	"fbclid": {}, "gclid": {}, "dclid": {}, "msclkid": {}, "igshid": {},
	"ref": {}, "ref_src": {}, "referrer": {}, "from": {}, "src": {},
	"cmpid": {}, "ncid": {}, "ocid": {}, "rccode": {}, "sid": {}, "mc_cid": {}, "mc_eid": {},
	"share": {}, "utm": {}, "output": {},
}

// aggregatorHosts republish other publishers' articles.
var aggregatorHosts = []string{
	"news.naver.com",
	"n.news.naver.com",
	"m.news.naver.com",
	"news.google.com",
	"news.google.co.kr",
	"v.daum.net",
	"news.daum.net",
}

// profileHosts serve company/VC profile pages rather than articles.
var profileHosts = []string{
	"thevc.kr",
	"www.thevc.kr",
	"innoforest.co.kr",
	"www.innoforest.co.kr",
}

// CanonicalURL strips tracking parameters and fragments and lowercases scheme and host.
// It does not touch the network.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", raw)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("url %q has unsupported scheme", raw)
	}
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Host = strings.TrimSuffix(parsed.Host, ":80")
	parsed.Host = strings.TrimSuffix(parsed.Host, ":443")
	parsed.Fragment = ""
	parsed.RawFragment = ""

	query := parsed.Query()
	for key := range query {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			query.Del(key)
			continue
		}
		if _, ok := trackingParams[lower]; ok {
			query.Del(key)
		}
	}
	parsed.RawQuery = encodeSorted(query)

	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed.String(), nil
}

func encodeSorted(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}

// Host returns the lowercase host of rawURL without a leading "www." or "m.".
func Host(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return host
}

// SiteURL returns scheme://host of rawURL.
func SiteURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + strings.ToLower(parsed.Host)
}

// IsAggregatorURL reports whether rawURL points at a portal copy of an article.
func IsAggregatorURL(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return hostIn(strings.ToLower(parsed.Hostname()), aggregatorHosts)
}

// IsNonArticleURL reports aggregator, profile and error pages that should not stay in the article log.
func IsNonArticleURL(rawURL string) bool {
	if IsAggregatorURL(rawURL) {
		return true
	}
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return true
	}
	if hostIn(strings.ToLower(parsed.Hostname()), profileHosts) {
		return true
	}

	path := strings.ToLower(parsed.Path)
	for _, pattern := range nonArticlePaths {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

var nonArticlePaths = []string{
	"/organizations/",
	"/organization/",
	"/companies/",
	"/company/profile",
	"/investors/",
	"/404",
	"/error",
	"not-found",
	"notfound",
	"/tag/",
	"/search",
}

func hostIn(host string, hosts []string) bool {
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
