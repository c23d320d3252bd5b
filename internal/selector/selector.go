// Package selector picks the citation article for each company.
package selector

import (
	"sort"

	"DealScanner/internal/domain"
	"DealScanner/internal/extract"
	"DealScanner/internal/normalize"
)

// Filter keeps scored candidates whose title mentions company.
func Filter(company string, candidates []domain.Candidate) []domain.Candidate {
	kept := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Status != domain.CandidateOK || c.Article.Score <= 0 {
			continue
		}
		if !extract.MentionsCompany(c.Article.Title, company) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// Rank orders candidates best first: score desc, non-aggregator first, newer first,
// preferred publisher first. The URL breaks remaining ties so ranking is order-insensitive.
func Rank(candidates []domain.Candidate) []domain.Candidate {
	ranked := append([]domain.Candidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})
	return ranked
}

// Less reports whether a ranks ahead of b.
func Less(a, b domain.Candidate) bool {
	if a.Article.Score != b.Article.Score {
		return a.Article.Score > b.Article.Score
	}
	if aggA, aggB := isAggregator(a), isAggregator(b); aggA != aggB {
		return !aggA
	}
	if !a.Article.PublishedAt.Equal(b.Article.PublishedAt) {
		return a.Article.PublishedAt.After(b.Article.PublishedAt)
	}
	if rankA, rankB := normalize.PublisherRank(a.Article.SiteName), normalize.PublisherRank(b.Article.SiteName); rankA != rankB {
		return rankA < rankB
	}
	return a.Article.URL < b.Article.URL
}

// Best returns the top candidate for company, or false when none qualifies.
func Best(company string, candidates []domain.Candidate) (domain.Candidate, bool) {
	ranked := Rank(Filter(company, candidates))
	if len(ranked) == 0 {
		return domain.Candidate{}, false
	}
	return ranked[0], true
}

func isAggregator(c domain.Candidate) bool {
	return c.Aggregator || normalize.IsAggregatorURL(c.Article.URL) || normalize.IsAggregatorLabel(c.Article.SiteName)
}
