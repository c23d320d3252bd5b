package scanner

import (
	"strings"

	"DealScanner/internal/domain"
)

// SourceSpec is the tagged variant describing how one source is collected.
// The concrete types are HTMLListing, RSSFeed, SearchAPI, LLMGrounded and ManualFile.
type SourceSpec interface {
	Method() domain.CollectionMethod
	Descriptor() domain.Source
	sourceSpec()
}

// Selectors is the CSS bundle of a listing page.
type Selectors struct {
	// Item selects one entry per article.
	Item string `yaml:"item"`
	// Title selects the headline inside an item; its text is the title.
	Title string `yaml:"title"`
	// Link selects the anchor inside an item; empty uses the title element or its first <a>.
	Link string `yaml:"link"`
	Date string `yaml:"date"`
	// Snippet is optional.
	Snippet string `yaml:"snippet"`
}

// HTMLListing scrapes a paginated listing. PageTemplate contains "{page}" for
// paginated listings; without it only one page is read.
type HTMLListing struct {
	Source       domain.Source
	PageTemplate string
	Selectors    Selectors
	// Encoding forces a charset ("utf-8", "euc-kr"); empty auto-detects.
	Encoding string
	MaxPages int
}

// RSSFeed reads an RSS or Atom feed.
type RSSFeed struct {
	Source  domain.Source
	FeedURL string
}

// SearchAPI issues one query per company and template; "{company}" is substituted.
type SearchAPI struct {
	Source         domain.Source
	QueryTemplates []string
	Display        int
}

// LLMGrounded asks a tool-enabled model for candidate articles.
type LLMGrounded struct {
	Source         domain.Source
	PromptTemplate string
}

// ManualFile feeds operator-curated rows through the pipeline.
type ManualFile struct {
	Source domain.Source
	Path   string
}

func (HTMLListing) Method() domain.CollectionMethod { return domain.MethodHTML }
func (RSSFeed) Method() domain.CollectionMethod     { return domain.MethodRSS }
func (SearchAPI) Method() domain.CollectionMethod   { return domain.MethodSearchAPI }
func (LLMGrounded) Method() domain.CollectionMethod { return domain.MethodLLMGrounded }
func (ManualFile) Method() domain.CollectionMethod  { return domain.MethodManual }

func (s HTMLListing) Descriptor() domain.Source { return s.Source }
func (s RSSFeed) Descriptor() domain.Source     { return s.Source }
func (s SearchAPI) Descriptor() domain.Source   { return s.Source }
func (s LLMGrounded) Descriptor() domain.Source { return s.Source }
func (s ManualFile) Descriptor() domain.Source  { return s.Source }

func (HTMLListing) sourceSpec() {}
func (RSSFeed) sourceSpec()     {}
func (SearchAPI) sourceSpec()   {}
func (LLMGrounded) sourceSpec() {}
func (ManualFile) sourceSpec()  {}

// DefaultQueryTemplates are the Korean investment phrasings issued per company.
var DefaultQueryTemplates = []string{
	"{company} 투자",
	"{company} 투자유치",
	"{company} 시리즈",
	"{company} 스타트업 투자",
}

// Slug turns a source name into an adapter-name suffix.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r == ' ' || r == '_' || r == '/':
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExpandTemplate substitutes the company name into template.
func ExpandTemplate(template, company string) string {
	return strings.ReplaceAll(template, "{company}", company)
}
