package domain

import "time"

// QualityFlags records which deal fields the extractor found in an article.
type QualityFlags struct {
	HasAmount    bool
	HasInvestors bool
	HasStage     bool
	HasIndustry  bool
	HasLocation  bool
}

// RawArticle is a single candidate citation produced by a source adapter.
// After normalization URL is canonical and SiteName is a concrete publisher.
type RawArticle struct {
	ID         int64
	URL        string
	Title      string
	SiteName   string
	SiteNumber int
	SiteURL    string
	// PublishedAt is a calendar date in the publisher timezone (time component is zero).
	PublishedAt time.Time
	Snippet     string
	Body        string

	// Adapter names the adapter that produced the candidate.
	Adapter string
	// Company is set by per-company adapters to the company the query was issued for.
	Company string
	// Unverified marks candidates whose URL, publisher and date must be confirmed
	// against the live page before they can be trusted (LLM-grounded output).
	Unverified bool

	DateLowConfidence bool
	Flags             QualityFlags
	Score             int
}

// Extraction holds the deal fields derived from an article's title and body.
type Extraction struct {
	Amount    *float64
	Stage     string
	Investors string
	Industry  string
	Location  string
}

// CandidateStatus is the explicit per-article outcome carried through the pipeline.
type CandidateStatus string

const (
	CandidateOK                  CandidateStatus = "ok"
	CandidateExcluded            CandidateStatus = "excluded"
	CandidateNormalizationFailed CandidateStatus = "normalization_failed"
	CandidateLowConfidence       CandidateStatus = "low_confidence"
	CandidateOutOfWindow         CandidateStatus = "out_of_window"
)

// Candidate couples an article with its extraction result and status.
type Candidate struct {
	Article    RawArticle
	Extraction Extraction
	Status     CandidateStatus
	// Aggregator is true when the URL still points at an aggregator after normalization.
	Aggregator bool
	Err        error
}
