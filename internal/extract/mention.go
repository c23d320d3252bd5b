package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// minFuzzyRunes is the shortest company name matched with one-edit tolerance.
const minFuzzyRunes = 3

// MentionsCompany reports whether title names the company. Exact substrings always
// match; names of three or more runes also match a title window one edit away,
// which covers spelling variants such as 부스터스 and 부스터즈.
func MentionsCompany(title, company string) bool {
	name := squash(company)
	text := squash(title)
	if name == "" || text == "" {
		return false
	}
	if strings.Contains(text, name) {
		return true
	}

	nameRunes := []rune(name)
	if len(nameRunes) < minFuzzyRunes {
		return false
	}
	textRunes := []rune(text)
	for width := len(nameRunes) - 1; width <= len(nameRunes)+1; width++ {
		if width < minFuzzyRunes || width > len(textRunes) {
			continue
		}
		for start := 0; start+width <= len(textRunes); start++ {
			window := textRunes[start : start+width]
			// The first rune anchors the match so unrelated words one edit away do not count.
			if window[0] != nameRunes[0] {
				continue
			}
			if editDistance(window, nameRunes) <= 1 {
				return true
			}
		}
	}
	return false
}

// squash composes Hangul jamo, lowercases and drops spaces and punctuation.
func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(norm.NFC.String(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func editDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
