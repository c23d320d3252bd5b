package domain

import "time"

// Page is a fetched and decoded HTML document.
type Page struct {
	// URL is the final URL after redirects.
	URL        string
	StatusCode int
	HTML       string
}

// SearchHit is one record returned by a search API.
type SearchHit struct {
	Title       string
	URL         string
	// AggregatorURL is the portal copy of the article when the API returns both.
	AggregatorURL string
	Publisher     string
	Snippet       string
	PublishedAt   time.Time
}

// CompletionRequest is a single prompt to a language model.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
	// WebSearch enables the provider's web-search tool.
	WebSearch bool
}

// Completion is the model response and the tokens it consumed.
type Completion struct {
	Text       string
	TokensUsed int
}
