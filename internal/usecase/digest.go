package usecase

import (
	"fmt"
	"strings"

	"DealScanner/internal/domain"
)

// buildDigestMessage renders the run summary as a short chat message.
func buildDigestMessage(summary domain.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DealScanner run %s (%s)\n", shortID(summary.RunID), summary.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "companies: %d, articles kept: %d/%d\n", summary.CompaniesProcessed, summary.ArticlesKept, summary.ArticlesSeen)
	fmt.Fprintf(&b, "deals created: %d, updated: %d, unchanged: %d\n", summary.DealsCreated, summary.DealsUpdated, summary.DealsUnchanged)
	writeList(&b, "failed", summary.CompaniesFailed)
	writeList(&b, "degraded adapters", summary.AdaptersDegraded)
	writeList(&b, "no candidate", summary.NoCandidate)
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d): %s\n", label, len(items), strings.Join(items, ", "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
