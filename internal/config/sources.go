package config

import (
	"fmt"

	"DealScanner/internal/domain"
	"DealScanner/internal/scanner"
)

// SourceConfig is the full descriptor of one source; the fields used depend on Method.
type SourceConfig struct {
	Number   int    `yaml:"number"`
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Method   string `yaml:"method"`
	Category string `yaml:"category"`
	Active   *bool  `yaml:"active"`

	PageTemplate string            `yaml:"pageTemplate"`
	Selectors    scanner.Selectors `yaml:"selectors"`
	Encoding     string            `yaml:"encoding"`
	MaxPages     int               `yaml:"maxPages"`

	FeedURL        string   `yaml:"feedUrl"`
	QueryTemplates []string `yaml:"queryTemplates"`
	PromptTemplate string   `yaml:"promptTemplate"`
	Path           string   `yaml:"path"`
}

// IsActive defaults to true when the flag is omitted.
func (s SourceConfig) IsActive() bool {
	return s.Active == nil || *s.Active
}

// Descriptor returns the sources-table row for s.
func (s SourceConfig) Descriptor() domain.Source {
	method, _ := domain.ParseCollectionMethod(s.Method)
	return domain.Source{
		Number:   s.Number,
		Name:     s.Name,
		BaseURL:  s.URL,
		Method:   method,
		Category: s.Category,
		Active:   s.IsActive(),
	}
}

// Spec converts the descriptor into its SourceSpec variant. search and llm supply
// the defaults used when the source leaves templates empty.
func (s SourceConfig) Spec(search SearchConfig, llm LLMConfig) (scanner.SourceSpec, error) {
	src := s.Descriptor()
	switch src.Method {
	case domain.MethodHTML:
		return scanner.HTMLListing{
			Source:       src,
			PageTemplate: firstNonEmpty(s.PageTemplate, s.URL),
			Selectors:    s.Selectors,
			Encoding:     s.Encoding,
			MaxPages:     s.MaxPages,
		}, nil
	case domain.MethodRSS:
		return scanner.RSSFeed{Source: src, FeedURL: firstNonEmpty(s.FeedURL, s.URL)}, nil
	case domain.MethodSearchAPI:
		templates := s.QueryTemplates
		if len(templates) == 0 {
			templates = search.QueryTemplates
		}
		if len(templates) == 0 {
			templates = scanner.DefaultQueryTemplates
		}
		return scanner.SearchAPI{Source: src, QueryTemplates: templates, Display: search.Display}, nil
	case domain.MethodLLMGrounded:
		return scanner.LLMGrounded{Source: src, PromptTemplate: firstNonEmpty(s.PromptTemplate, llm.PromptTemplate)}, nil
	case domain.MethodManual:
		return scanner.ManualFile{Source: src, Path: s.Path}, nil
	}
	return nil, fmt.Errorf("%w: source %d has unknown method %q", domain.ErrConfig, s.Number, s.Method)
}

// AdapterKind maps a collection method to its --adapters name.
func AdapterKind(method domain.CollectionMethod) string {
	switch method {
	case domain.MethodHTML:
		return AdapterHTML
	case domain.MethodRSS:
		return AdapterRSS
	case domain.MethodSearchAPI:
		return AdapterSearch
	case domain.MethodLLMGrounded:
		return AdapterLLM
	case domain.MethodManual:
		return AdapterManual
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func defaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Number:       1,
			Name:         "WOWTALE",
			URL:          "https://wowtale.net",
			Method:       string(domain.MethodHTML),
			Category:     "startup",
			PageTemplate: "https://wowtale.net/category/news/investment/page/{page}/",
			Selectors: scanner.Selectors{
				Item:  "article",
				Title: "h2.entry-title a",
				Date:  "time.entry-date",
			},
			MaxPages: 5,
		},
		{
			Number:   2,
			Name:     "벤처스퀘어",
			URL:      "https://www.venturesquare.net",
			Method:   string(domain.MethodRSS),
			Category: "startup",
			FeedURL:  "https://www.venturesquare.net/feed",
		},
		{
			Number:   3,
			Name:     "플래텀",
			URL:      "https://platum.kr",
			Method:   string(domain.MethodRSS),
			Category: "startup",
			FeedURL:  "https://platum.kr/feed",
		},
		{
			Number:       4,
			Name:         "스타트업투데이",
			URL:          "https://www.startuptoday.kr",
			Method:       string(domain.MethodHTML),
			Category:     "startup",
			PageTemplate: "https://www.startuptoday.kr/news/articleList.html?sc_section_code=S1N2&view_type=sm&page={page}",
			Selectors: scanner.Selectors{
				Item:    "#section-list ul.type2 li",
				Title:   "h4.titles a",
				Date:    "span.byline em:last-child",
				Snippet: "p.lead",
			},
			MaxPages: 3,
		},
		{
			Number:   10,
			Name:     "Naver Search",
			URL:      "https://openapi.naver.com",
			Method:   string(domain.MethodSearchAPI),
			Category: "search",
		},
		{
			Number:   20,
			Name:     "LLM Grounded",
			Method:   string(domain.MethodLLMGrounded),
			Category: "llm",
		},
	}
}
