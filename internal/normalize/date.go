package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// KST is the publisher timezone for every source in the roster.
var KST = time.FixedZone("KST", 9*60*60)

var (
	dateGroupsExpr   = regexp.MustCompile(`(\d{2,4})\D{1,3}(\d{1,2})\D{1,3}(\d{1,2})`)
	relativeExpr     = regexp.MustCompile(`(\d+)\s*(분|시간|일)\s*전`)
	timestampLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006.01.02 15:04",
		"2006-01-02",
		"2006.01.02",
		"20060102",
		time.RFC1123Z,
		time.RFC1123,
	}
)

// Day truncates t to its calendar date in KST.
func Day(t time.Time) time.Time {
	t = t.In(KST)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, KST)
}

// ParseTimestamp parses machine-readable meta values (ISO 8601 and friends).
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		loc := KST
		if strings.Contains(layout, "Z07") || strings.Contains(layout, "-0700") || strings.Contains(layout, "MST") {
			loc = time.UTC
		}
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return Day(parsed), true
		}
	}
	return ParseDateText(value, time.Time{})
}

// ParseDateText reads the first three integer groups of human text as YYYY-MM-DD.
// Two-digit years are mapped into 20YY. Relative expressions ("3시간 전", "어제")
// resolve against ref when ref is non-zero.
func ParseDateText(text string, ref time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	for _, m := range dateGroupsExpr.FindAllStringSubmatch(text, -1) {
		if parsed, ok := dateFromGroups(m[1], m[2], m[3]); ok {
			return parsed, true
		}
	}

	if ref.IsZero() {
		return time.Time{}, false
	}
	return parseRelative(text, ref)
}

func dateFromGroups(y, m, d string) (time.Time, bool) {
	if len(y) == 3 {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if len(y) == 2 {
		year += 2000
	}
	if year < 2000 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	parsed := time.Date(year, time.Month(month), day, 0, 0, 0, 0, KST)
	if parsed.Day() != day {
		return time.Time{}, false
	}
	return parsed, true
}

func parseRelative(text string, ref time.Time) (time.Time, bool) {
	switch {
	case strings.Contains(text, "방금"), strings.Contains(text, "오늘"):
		return Day(ref), true
	case strings.Contains(text, "그제"), strings.Contains(text, "그저께"):
		return Day(ref).AddDate(0, 0, -2), true
	case strings.Contains(text, "어제"):
		return Day(ref).AddDate(0, 0, -1), true
	}

	m := relativeExpr.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	switch m[2] {
	case "분":
		return Day(ref.Add(-time.Duration(n) * time.Minute)), true
	case "시간":
		return Day(ref.Add(-time.Duration(n) * time.Hour)), true
	default:
		return Day(ref).AddDate(0, 0, -n), true
	}
}
