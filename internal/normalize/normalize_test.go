package normalize

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"DealScanner/internal/domain"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"HTTPS://WWW.Platum.KR/archives/1?utm_source=x&b=2&a=1#top": "https://www.platum.kr/archives/1?a=1&b=2",
		"http://wowtale.net:80/2025/11/08/1/?fbclid=abc":            "http://wowtale.net/2025/11/08/1/",
		"https://etoday.co.kr":                                       "https://etoday.co.kr/",
	}
	for in, want := range cases {
		got, err := CanonicalURL(in)
		if err != nil {
			t.Fatalf("CanonicalURL(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("CanonicalURL(%q) = %q want %q", in, got, want)
		}
	}

	for _, bad := range []string{"", "/relative/path", "ftp://example.com/file", "javascript:void(0)"} {
		if _, err := CanonicalURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNonArticleURL(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"https://thevc.kr/boosters":                        true,
		"https://www.innoforest.co.kr/company/CP1":         true,
		"https://example.com/organizations/boosters":       true,
		"https://n.news.naver.com/mnews/article/001/0001":  true,
		"https://www.venturesquare.net/404":                true,
		"https://www.venturesquare.net/tag/funding":        true,
		"https://www.etoday.co.kr/news/view/2475000":       false,
		"https://platum.kr/archives/250000":                false,
	}
	for raw, want := range cases {
		if got := IsNonArticleURL(raw); got != want {
			t.Fatalf("IsNonArticleURL(%q) = %v want %v", raw, got, want)
		}
	}
}

func TestPublisherIdentity(t *testing.T) {
	t.Parallel()

	for _, label := range []string{"Naver News", "naver news", "네이버 뉴스", "Google News", "VC Portfolio", " 다음 뉴스 "} {
		if !IsAggregatorLabel(label) {
			t.Fatalf("%q should be an aggregator label", label)
		}
	}
	if IsAggregatorLabel("머니투데이") {
		t.Fatalf("publisher misclassified as aggregator")
	}

	cases := map[string]string{
		"wowtale.net":           "WOWTALE",
		"www.venturesquare.net": "벤처스퀘어",
		"m.platum.kr":           "플래텀",
		"news.mt.co.kr":         "머니투데이",
		"biz.chosun.com":        "조선비즈",
		"view.asiae.co.kr":      "아시아경제",
	}
	for host, want := range cases {
		got, ok := PublisherForHost(host)
		if !ok || got != want {
			t.Fatalf("PublisherForHost(%q) = %q,%v want %q", host, got, ok, want)
		}
	}
	if _, ok := PublisherForHost("unknown.example"); ok {
		t.Fatalf("unexpected publisher for unknown host")
	}

	if PublisherRank("WOWTALE") >= PublisherRank("벤처스퀘어") || PublisherRank("아웃스탠딩") >= PublisherRank("이투데이") {
		t.Fatalf("publisher ranks out of order")
	}
	if got := TitleTail("부스터즈 투자 유치 - 머니투데이"); got != "머니투데이" {
		t.Fatalf("TitleTail = %q", got)
	}
}

func TestParseDates(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, time.November, 8, 0, 0, 0, 0, KST)
	for _, text := range []string{"2025.11.08", "25-11-08 14:30", "입력 2025년 11월 8일 오후", "14:30 2025.11.08"} {
		got, ok := ParseDateText(text, time.Time{})
		if !ok || !got.Equal(want) {
			t.Fatalf("ParseDateText(%q) = %v,%v", text, got, ok)
		}
	}

	got, ok := ParseTimestamp("2025-11-07T16:30:00Z")
	if !ok || !got.Equal(want) {
		t.Fatalf("UTC timestamp should land on the KST day, got %v", got)
	}

	ref := time.Date(2025, time.November, 9, 10, 0, 0, 0, KST)
	yesterday, ok := ParseDateText("어제", ref)
	if !ok || !yesterday.Equal(want) {
		t.Fatalf("relative date = %v,%v", yesterday, ok)
	}
	hours, ok := ParseDateText("3시간 전", ref)
	if !ok || !hours.Equal(Day(ref)) {
		t.Fatalf("hours ago = %v,%v", hours, ok)
	}
	if _, ok := ParseDateText("13.45.99", time.Time{}); ok {
		t.Fatalf("invalid groups must not parse")
	}
}

type fakeFetcher struct {
	pages     map[string]string
	redirects map[string]string
}

func (f fakeFetcher) Fetch(_ context.Context, url string) (domain.Page, error) {
	html, ok := f.pages[url]
	if !ok {
		return domain.Page{}, fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, url)
	}
	return domain.Page{URL: url, StatusCode: 200, HTML: html}, nil
}

func (f fakeFetcher) ResolveRedirect(_ context.Context, url string) (string, error) {
	if target, ok := f.redirects[url]; ok {
		return target, nil
	}
	return "", errors.New("no redirect")
}

var fixedNow = time.Date(2025, time.November, 10, 9, 0, 0, 0, KST)

func TestNormalizeAggregatorLabelUsesHostTable(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil, nil).WithClock(func() time.Time { return fixedNow })
	got, err := n.Normalize(context.Background(), domain.RawArticle{
		URL:         "https://news.mt.co.kr/mtview.php?no=2025110809&utm_source=naver",
		Title:       "부스터즈, 200억 투자 유치",
		SiteName:    "네이버 뉴스",
		PublishedAt: time.Date(2025, time.November, 8, 0, 0, 0, 0, KST),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.SiteName != "머니투데이" {
		t.Fatalf("expected 머니투데이, got %q", got.SiteName)
	}
	if got.URL != "https://news.mt.co.kr/mtview.php?no=2025110809" {
		t.Fatalf("unexpected url %q", got.URL)
	}
	if got.DateLowConfidence {
		t.Fatalf("adapter date should be trusted")
	}
}

func TestNormalizeResolvesNaverOriginLink(t *testing.T) {
	t.Parallel()

	naver := "https://n.news.naver.com/mnews/article/008/0005000001"
	origin := "https://news.mt.co.kr/mtview.php?no=2025110809"
	fetcher := fakeFetcher{pages: map[string]string{
		naver: `<html><body><a class="media_end_head_origin_link" href="` + origin + `">기사원문</a></body></html>`,
		origin: `<html><head>
<meta property="og:site_name" content="머니투데이">
<meta property="article:published_time" content="2025-11-08T09:12:00+09:00">
<title>부스터즈 투자 유치 - 머니투데이</title></head>
<body><article><p>부스터즈가 200억원 규모 투자를 유치했다.</p></article></body></html>`,
	}}

	n := NewNormalizer(fetcher, nil).WithClock(func() time.Time { return fixedNow })
	got, err := n.Normalize(context.Background(), domain.RawArticle{
		URL:      naver,
		Title:    "부스터즈 투자 유치",
		SiteName: "Naver News",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.URL != origin || got.SiteName != "머니투데이" {
		t.Fatalf("unexpected resolution: %s %s", got.URL, got.SiteName)
	}
	if !got.PublishedAt.Equal(time.Date(2025, time.November, 8, 0, 0, 0, 0, KST)) {
		t.Fatalf("unexpected date %v", got.PublishedAt)
	}
	if got.Body == "" {
		t.Fatalf("expected body text")
	}
}

func TestNormalizeDropsUnresolvablePublisher(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil, nil)
	_, err := n.Normalize(context.Background(), domain.RawArticle{
		URL:      "https://unknown.example/post/1",
		Title:    "투자 유치",
		SiteName: "Google News",
	})
	if !errors.Is(err, domain.ErrNormalizationFailed) {
		t.Fatalf("expected normalization failure, got %v", err)
	}
}

func TestNormalizeUnverifiedRequiresPage(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(fakeFetcher{}, nil)
	_, err := n.Normalize(context.Background(), domain.RawArticle{
		URL:        "https://platum.kr/archives/404040",
		Title:      "에봄에이아이 투자 유치",
		SiteName:   "플래텀",
		Unverified: true,
	})
	if !errors.Is(err, domain.ErrNormalizationFailed) {
		t.Fatalf("unreachable llm candidate must be dropped, got %v", err)
	}
}

func TestNormalizeFallsBackToCollectionDay(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil, nil).WithClock(func() time.Time { return fixedNow })
	got, err := n.Normalize(context.Background(), domain.RawArticle{
		URL:      "https://platum.kr/archives/1",
		Title:    "에봄에이아이 투자 유치",
		SiteName: "플래텀",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !got.DateLowConfidence || !got.PublishedAt.Equal(Day(fixedNow)) {
		t.Fatalf("expected low-confidence collection day, got %v %v", got.PublishedAt, got.DateLowConfidence)
	}
}

func TestWithClockConfiguresNormalizerInPlace(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil, nil)
	if n.WithClock(func() time.Time { return fixedNow }) != n {
		t.Fatal("WithClock must return the receiver")
	}
	got, err := n.Normalize(context.Background(), domain.RawArticle{
		URL:      "https://platum.kr/archives/2",
		Title:    "부스터스 투자 유치",
		SiteName: "플래텀",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !got.PublishedAt.Equal(Day(fixedNow)) {
		t.Fatalf("clock not applied, got %v", got.PublishedAt)
	}
}
