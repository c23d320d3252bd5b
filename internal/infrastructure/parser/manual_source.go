package parser

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"DealScanner/internal/domain"
	"DealScanner/internal/normalize"
	"DealScanner/internal/scanner"
)

// manualColumns maps accepted header spellings to the row field they fill.
var manualColumns = map[string]string{
	"company":   "company",
	"기업명":       "company",
	"title":     "title",
	"제목":        "title",
	"url":       "url",
	"news_url":  "url",
	"site_name": "site_name",
	"언론사":       "site_name",
	"date":      "date",
	"news_date": "date",
	"날짜":        "date",
	"snippet":   "snippet",
}

// ManualRow is one operator-curated citation.
type ManualRow struct {
	Company  string
	Title    string
	URL      string
	SiteName string
	Date     string
	Snippet  string
}

// ManualSource turns a curated CSV into a per-company adapter.
type ManualSource struct {
	spec   scanner.ManualFile
	rows   map[string][]ManualRow
	logger *slog.Logger
}

var _ scanner.Adapter = (*ManualSource)(nil)

// NewManualSource reads spec.Path once.
func NewManualSource(spec scanner.ManualFile, log *slog.Logger) (*ManualSource, error) {
	file, err := os.Open(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: manual file: %v", domain.ErrConfig, err)
	}
	defer file.Close()

	rows, err := LoadManualRows(file)
	if err != nil {
		return nil, fmt.Errorf("%w: manual file %s: %v", domain.ErrConfig, spec.Path, err)
	}
	return NewManualSourceFromRows(spec, rows, log), nil
}

// NewManualSourceFromRows builds the adapter from rows already in memory.
func NewManualSourceFromRows(spec scanner.ManualFile, rows []ManualRow, log *slog.Logger) *ManualSource {
	byCompany := map[string][]ManualRow{}
	for _, row := range rows {
		byCompany[row.Company] = append(byCompany[row.Company], row)
	}
	return &ManualSource{spec: spec, rows: byCompany, logger: log}
}

// LoadManualRows parses the header row and every data row; rows without a company,
// title or url are skipped.
func LoadManualRows(r io.Reader) ([]ManualRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := map[string]int{}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if field, ok := manualColumns[name]; ok {
			index[field] = i
		}
	}
	for _, required := range []string{"company", "title", "url"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var rows []ManualRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		row := ManualRow{
			Company:  field("company"),
			Title:    field("title"),
			URL:      field("url"),
			SiteName: field("site_name"),
			Date:     field("date"),
			Snippet:  field("snippet"),
		}
		if row.Company == "" || row.Title == "" || row.URL == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *ManualSource) Name() string {
	return "manual/" + scanner.Slug(m.spec.Source.Name)
}

func (m *ManualSource) Method() domain.CollectionMethod {
	return domain.MethodManual
}

// Collect yields the rows curated for q.Company.
func (m *ManualSource) Collect(ctx context.Context, q scanner.Query) (scanner.Result, error) {
	if err := ctx.Err(); err != nil {
		return scanner.Result{}, err
	}
	rows := m.rows[q.Company.Name]
	result := scanner.Result{Articles: make([]domain.RawArticle, 0, len(rows))}
	for _, row := range rows {
		article := domain.RawArticle{
			URL:        row.URL,
			Title:      row.Title,
			SiteName:   row.SiteName,
			SiteNumber: m.spec.Source.Number,
			Snippet:    row.Snippet,
			Adapter:    m.Name(),
			Company:    q.Company.Name,
		}
		if parsed, ok := normalize.ParseTimestamp(row.Date); ok {
			article.PublishedAt = parsed
		}
		result.Articles = append(result.Articles, article)
	}
	if m.logger != nil && len(rows) > 0 {
		m.logger.Debug("manual rows", "company", q.Company.Name, "count", len(rows))
	}
	return result, nil
}
