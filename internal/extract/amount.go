package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultUSDKRW is the frozen conversion rate (KRW per USD) used when none is configured.
const DefaultUSDKRW = 1300.0

var (
	joEokExpr      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*조\s*(\d+(?:,\d+)*)\s*(천|백)?\s*억`)
	eokExpr        = regexp.MustCompile(`(\d+(?:[,.]\d+)*)\s*(천|백)?\s*억(\s*원|\s*(?:달러|불))?`)
	joExpr         = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*조`)
	usdMillionExpr = regexp.MustCompile(`(?i)(?:\$|US\$|USD\s?)\s*(\d+(?:[,.]\d+)*)\s*(?:M\b|mn\b|million|밀리언)`)
	manDollarExpr  = regexp.MustCompile(`(\d+(?:[,.]\d+)*)\s*만\s*(?:달러|불)`)
)

// AmountParser converts Korean amount phrasings into 억원.
type AmountParser struct {
	usdKRW float64
}

// NewAmountParser freezes the USD conversion rate; non-positive rates use DefaultUSDKRW.
func NewAmountParser(usdKRW float64) AmountParser {
	if usdKRW <= 0 {
		usdKRW = DefaultUSDKRW
	}
	return AmountParser{usdKRW: usdKRW}
}

// Parse returns the first amount found in text, rounded to one decimal place.
// Patterns are tried in order: N조 M억, 억(원), 조, $N M, N만 달러.
func (p AmountParser) Parse(text string) (float64, bool) {
	if m := joEokExpr.FindStringSubmatch(text); m != nil {
		jo, okJo := parseNumber(m[1])
		eok, okEok := parseNumber(m[2])
		if okJo && okEok {
			return round1(jo*10000 + eok*unitMultiplier(m[3])), true
		}
	}
	if m := eokExpr.FindStringSubmatch(text); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			n *= unitMultiplier(m[2])
			if strings.Contains(m[3], "달러") || strings.Contains(m[3], "불") {
				// N억 달러 is N hundred million USD.
				return round1(n * 100 * p.usdMillionFactor()), true
			}
			return round1(n), true
		}
	}
	if m := joExpr.FindStringSubmatch(text); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			return round1(n * 10000), true
		}
	}
	if m := usdMillionExpr.FindStringSubmatch(text); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			return round1(n * p.usdMillionFactor()), true
		}
	}
	if m := manDollarExpr.FindStringSubmatch(text); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			return round1(n * p.manDollarFactor()), true
		}
	}
	return 0, false
}

// usdMillionFactor is 억원 per million USD (13 at 1300 KRW/USD).
func (p AmountParser) usdMillionFactor() float64 {
	return p.usdKRW / 100
}

// manDollarFactor keeps the legacy table factor (0.0013 at 1300 KRW/USD).
func (p AmountParser) manDollarFactor() float64 {
	return p.usdKRW / 1_000_000
}

// unitMultiplier scales the digits written before 억: 3천억 is 3000억.
func unitMultiplier(unit string) float64 {
	switch unit {
	case "천":
		return 1000
	case "백":
		return 100
	}
	return 1
}

func parseNumber(raw string) (float64, bool) {
	raw = strings.ReplaceAll(raw, ",", "")
	if strings.Count(raw, ".") > 1 {
		raw = strings.ReplaceAll(raw, ".", "")
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
