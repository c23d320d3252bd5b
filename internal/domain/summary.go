package domain

import "time"

// RunSummary is the user-visible result of one pipeline run.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool

	CompaniesProcessed int
	ArticlesSeen       int
	ArticlesKept       int
	DealsCreated       int
	DealsUpdated       int
	DealsUnchanged     int

	Excluded            int
	NormalizationFailed int
	LowConfidence       int
	OutOfWindow         int
	CleanupDeleted      int

	CompaniesFailed  []string
	AdaptersDegraded []string
	NoCandidate      []string
}
