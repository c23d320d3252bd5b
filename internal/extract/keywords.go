package extract

import (
	"regexp"
	"strings"
)

// Korean exclusion tokens match as substrings; ASCII tokens need word boundaries
// so that "AIR" or "FAIR" never read as "IR".
var (
	exclusionTerms = NewTermLexicon(
		"인수", "합병", "상장", "행사", "세미나", "채용", "인사", "임원",
		"대표이사", "협약", "공지", "초대", "데모데이", "안내", "프로그램",
	)
	exclusionASCII = regexp.MustCompile(`\bIR\b|M&A|\bIPO\b|\bMOU\b`)

	// exclusionSafeWords contain an exclusion token without carrying its meaning.
	exclusionSafeWords = []string{"인사이트"}

	investmentTerms = NewTermLexicon(
		"투자", "유치", "시리즈", "펀딩", "series", "pre-a", "시드", "seed", "억원", "rounds", "라운드",
	)
)

// Excluded reports whether a title names a non-funding event (M&A, IPO, hiring, events).
func Excluded(title string) bool {
	if exclusionASCII.MatchString(title) {
		return true
	}
	masked := title
	for _, word := range exclusionSafeWords {
		masked = strings.ReplaceAll(masked, word, "")
	}
	return exclusionTerms.Contains(masked)
}

// HasInvestmentKeyword reports whether a title carries at least one funding keyword.
func HasInvestmentKeyword(title string) bool {
	return investmentTerms.Contains(title)
}

// PassesTitleFilter applies the exclusion filter and the investment keyword requirement.
func PassesTitleFilter(title string) bool {
	return !Excluded(title) && HasInvestmentKeyword(title)
}
