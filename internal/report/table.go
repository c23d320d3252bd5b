// Package report renders run summaries for operators and monitoring.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"DealScanner/internal/domain"
)

// WriteSummary renders the run summary as a two-column table.
func WriteSummary(w io.Writer, summary domain.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("run " + summary.RunID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"started", summary.StartedAt.Format(time.DateTime)},
		{"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond)},
		{"dry run", summary.DryRun},
		{"companies processed", summary.CompaniesProcessed},
		{"articles seen", summary.ArticlesSeen},
		{"articles kept", summary.ArticlesKept},
		{"deals created", summary.DealsCreated},
		{"deals updated", summary.DealsUpdated},
		{"deals unchanged", summary.DealsUnchanged},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"excluded", summary.Excluded},
		{"normalization failed", summary.NormalizationFailed},
		{"low confidence", summary.LowConfidence},
		{"out of window", summary.OutOfWindow},
		{"articles cleaned up", summary.CleanupDeleted},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"companies failed", joinOrDash(summary.CompaniesFailed)},
		{"adapters degraded", joinOrDash(summary.AdaptersDegraded)},
		{"no candidate", joinOrDash(summary.NoCandidate)},
	})
	t.Render()
}

// WriteDeals renders the deal table in number order.
func WriteDeals(w io.Writer, deals []domain.Deal) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Company", "Stage", "Amount(억원)", "Investors", "Site", "Date", "Title"})
	for _, d := range deals {
		t.AppendRow(table.Row{
			d.Number,
			d.CompanyName,
			d.Stage,
			formatAmount(d.Amount),
			d.Investors,
			d.SiteName,
			formatDate(d.NewsDate),
			truncate(d.NewsTitle, 40),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func formatAmount(amount *float64) string {
	if amount == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *amount)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
