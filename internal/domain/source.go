package domain

import "strings"

// CollectionMethod enumerates how a source is collected.
type CollectionMethod string

const (
	MethodHTML        CollectionMethod = "HTML"
	MethodRSS         CollectionMethod = "RSS"
	MethodSearchAPI   CollectionMethod = "SEARCH_API"
	MethodLLMGrounded CollectionMethod = "LLM_GROUNDED"
	MethodManual      CollectionMethod = "MANUAL"
)

// ParseCollectionMethod accepts the persisted spelling in any case.
func ParseCollectionMethod(value string) (CollectionMethod, bool) {
	switch CollectionMethod(strings.ToUpper(strings.TrimSpace(value))) {
	case MethodHTML:
		return MethodHTML, true
	case MethodRSS:
		return MethodRSS, true
	case MethodSearchAPI, "SEARCH", "API":
		return MethodSearchAPI, true
	case MethodLLMGrounded, "LLM":
		return MethodLLMGrounded, true
	case MethodManual:
		return MethodManual, true
	}
	return "", false
}

// MinSiteNumber and MaxSiteNumber bound Source.Number and RawArticle.SiteNumber.
const (
	MinSiteNumber = 1
	MaxSiteNumber = 100
)

// Source is one row of the sources table.
type Source struct {
	Number   int
	Name     string
	BaseURL  string
	Method   CollectionMethod
	Category string
	Active   bool
}

// ValidSiteNumber reports whether n fits the sources table range.
func ValidSiteNumber(n int) bool {
	return n >= MinSiteNumber && n <= MaxSiteNumber
}
