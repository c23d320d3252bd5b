package universe

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"DealScanner/internal/domain"
)

var sourceColumns = map[string]string{
	"source_number":     "number",
	"number":            "number",
	"source_name":       "name",
	"name":              "name",
	"source_url":        "url",
	"url":               "url",
	"collection_method": "method",
	"method":            "method",
	"category":          "category",
	"is_active":         "active",
	"active":            "active",
}

// LoadSourcesFile reads a sources roster CSV from path.
func LoadSourcesFile(path string) ([]domain.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sources: %v", domain.ErrConfig, err)
	}
	defer f.Close()
	return LoadSources(f)
}

// LoadSources parses rows of the sources table. Rows with an out-of-range number
// or unknown collection method are configuration errors.
func LoadSources(r io.Reader) ([]domain.Source, error) {
	cleaned, err := stripFences(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read sources: %v", domain.ErrConfig, err)
	}
	reader := csv.NewReader(bytes.NewReader(cleaned))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse sources csv: %v", domain.ErrConfig, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	index := headerIndex(records[0], sourceColumns)
	for _, required := range []string{"number", "name", "method"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: sources header lacks %s", domain.ErrConfig, required)
		}
	}

	var sources []domain.Source
	for line, record := range records[1:] {
		raw := cell(record, index, "number")
		if raw == "" {
			continue
		}
		number, err := strconv.Atoi(raw)
		if err != nil || !domain.ValidSiteNumber(number) {
			return nil, fmt.Errorf("%w: sources row %d: source_number %q outside %d..%d",
				domain.ErrConfig, line+2, raw, domain.MinSiteNumber, domain.MaxSiteNumber)
		}
		method, ok := domain.ParseCollectionMethod(cell(record, index, "method"))
		if !ok {
			return nil, fmt.Errorf("%w: sources row %d: unknown collection_method %q",
				domain.ErrConfig, line+2, cell(record, index, "method"))
		}
		active := true
		if v := cell(record, index, "active"); v != "" {
			active = parseFlag(v)
		}
		sources = append(sources, domain.Source{
			Number:   number,
			Name:     cell(record, index, "name"),
			BaseURL:  cell(record, index, "url"),
			Method:   method,
			Category: cell(record, index, "category"),
			Active:   active,
		})
	}
	return sources, nil
}
