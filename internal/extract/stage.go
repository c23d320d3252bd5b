package extract

import (
	"regexp"
	"strings"
)

// Canonical stage names.
const (
	StageSeriesE = "시리즈E"
	StageSeriesD = "시리즈D"
	StageSeriesC = "시리즈C"
	StageSeriesB = "시리즈B"
	StageSeriesA = "시리즈A"
	StagePreA    = "프리A"
	StageSeed    = "시드"
	StageBridge  = "브릿지"
)

type stagePattern struct {
	stage string
	expr  *regexp.Regexp
}

// stagePatterns are ordered from later to earlier rounds; the first match wins.
var stagePatterns = []stagePattern{
	{StageSeriesE, regexp.MustCompile(`(?i)시리즈\s*E|series\s*E\b`)},
	{StageSeriesD, regexp.MustCompile(`(?i)시리즈\s*D|series\s*D\b`)},
	{StageSeriesC, regexp.MustCompile(`(?i)시리즈\s*C|series\s*C\b`)},
	{StageSeriesB, regexp.MustCompile(`(?i)시리즈\s*B|series\s*B\b`)},
	{StageSeriesA, regexp.MustCompile(`(?i)시리즈\s*A|series\s*A\b`)},
	{StagePreA, regexp.MustCompile(`(?i)프리\s*-?\s*A|pre\s*-?\s*A\b|프리\s*시리즈\s*A|pre\s*-?\s*series\s*A`)},
	{StageSeed, regexp.MustCompile(`(?i)시드|\bseed\b`)},
	{StageBridge, regexp.MustCompile(`(?i)브릿지|브리지|\bbridge\b`)},
}

// stageSafeWords contain a stage token without naming a round.
var stageSafeWords = []string{"시드니"}

var preSuffixes = []string{"프리", "프리 ", "프리-", "pre-", "pre ", "pre"}

// ParseStage returns the canonical stage mentioned in text.
func ParseStage(text string) (string, bool) {
	for _, word := range stageSafeWords {
		text = strings.ReplaceAll(text, word, " ")
	}
	for _, p := range stagePatterns {
		loc := p.expr.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if p.stage == StageSeriesA && precededByPre(text[:loc[0]]) {
			return StagePreA, true
		}
		return p.stage, true
	}
	return "", false
}

func precededByPre(prefix string) bool {
	prefix = strings.ToLower(prefix)
	for _, suffix := range preSuffixes {
		if strings.HasSuffix(prefix, suffix) {
			return true
		}
	}
	return false
}
