// Package universe loads the curated company list and the sources roster.
package universe

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"DealScanner/internal/domain"
)

const bom = "\ufeff"

// header aliases per company field.
var companyColumns = map[string]string{
	"기업명":       "name",
	"회사명":       "name",
	"company":   "name",
	"주요사업":      "industry",
	"industry":  "industry",
	"투자자":       "investors",
	"investors": "investors",
	"단계":        "stage",
	"stage":     "stage",
	"투자금액":      "amount",
	"amount":    "amount",
	"신규":        "new",
	"주차":        "week",
	"week":      "week",
}

// Load reads the universe from a .csv or .xlsx file.
func Load(path string) ([]domain.Company, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open universe: %v", domain.ErrConfig, err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV parses a universe CSV. Code-fence lines are skipped and duplicate
// company names keep their first occurrence.
func LoadCSV(r io.Reader) ([]domain.Company, error) {
	cleaned, err := stripFences(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read universe: %v", domain.ErrConfig, err)
	}
	reader := csv.NewReader(bytes.NewReader(cleaned))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse universe csv: %v", domain.ErrConfig, err)
	}
	return fromRecords(records)
}

// LoadXLSX reads the first sheet of a workbook.
func LoadXLSX(path string) ([]domain.Company, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open universe workbook: %v", domain.ErrConfig, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: universe workbook has no sheets", domain.ErrConfig)
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %s: %v", domain.ErrConfig, sheets[0], err)
	}
	return fromRecords(rows)
}

func fromRecords(records [][]string) ([]domain.Company, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: universe is empty", domain.ErrConfig)
	}
	index := headerIndex(records[0], companyColumns)
	if _, ok := index["name"]; !ok {
		return nil, fmt.Errorf("%w: universe header lacks 기업명", domain.ErrConfig)
	}

	seen := map[string]struct{}{}
	companies := make([]domain.Company, 0, len(records)-1)
	for _, record := range records[1:] {
		name := cell(record, index, "name")
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		companies = append(companies, domain.Company{
			Name:          name,
			Industry:      cell(record, index, "industry"),
			Investors:     cell(record, index, "investors"),
			Stage:         cell(record, index, "stage"),
			AmountDisplay: cell(record, index, "amount"),
			IsNew:         parseFlag(cell(record, index, "new")),
			Week:          cell(record, index, "week"),
		})
	}
	return companies, nil
}

func stripFences(r io.Reader) ([]byte, error) {
	var out bytes.Buffer
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes(), scanner.Err()
}

func headerIndex(header []string, aliases map[string]string) map[string]int {
	index := map[string]int{}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, bom)))
		if field, ok := aliases[key]; ok {
			if _, taken := index[field]; !taken {
				index[field] = i
			}
		}
	}
	return index
}

func cell(record []string, index map[string]int, field string) string {
	i, ok := index[field]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "y", "yes", "true", "1", "o", "v", "신규", "new":
		return true
	}
	return false
}
