package scanner

import (
	"DealScanner/internal/domain"
	"DealScanner/internal/extract"
)

// Listing is the merged output of every run-scoped adapter.
type Listing struct {
	Articles []domain.RawArticle
	// Degraded names adapters that skipped pages or failed outright.
	Degraded []string
}

// ForCompany returns the listing entries whose title mentions company.
func (l Listing) ForCompany(company string) []domain.RawArticle {
	var out []domain.RawArticle
	for _, article := range l.Articles {
		if extract.MentionsCompany(article.Title, company) {
			article.Company = company
			out = append(out, article)
		}
	}
	return out
}
