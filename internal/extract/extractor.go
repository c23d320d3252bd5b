package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"DealScanner/internal/domain"
	"DealScanner/internal/ports"
)

// Score weights.
const (
	weightAmount    = 3
	weightInvestors = 3
	weightStage     = 2
	weightIndustry  = 1
	weightLocation  = 1
	weightMention   = 1

	// MaxScore is the highest score an article can receive.
	MaxScore = weightAmount + weightInvestors + weightStage + weightIndustry + weightLocation + weightMention
)

const (
	investorPromptTokens = 300
	maxPromptBodyRunes   = 1500
)

const investorSystemPrompt = "You extract investor names from Korean startup funding news. " +
	"Reply with a comma-separated list of investor names exactly as written in the article, or 없음 when none are named."

// Options configures an Extractor.
type Options struct {
	USDKRW     float64
	Investors  []Entry
	Industries []Entry
	Locations  []string
}

// Extractor derives deal fields and the quality score from an article.
type Extractor struct {
	amounts    AmountParser
	investors  *Lexicon
	industries *Lexicon
	locations  *Lexicon
	llm        ports.LLMClient
	logger     *slog.Logger
}

// NewExtractor builds an extractor; empty lexicons fall back to the built-in ones.
func NewExtractor(opts Options, log *slog.Logger) *Extractor {
	investors := opts.Investors
	if len(investors) == 0 {
		investors = DefaultInvestors
	}
	industries := opts.Industries
	if len(industries) == 0 {
		industries = DefaultIndustries
	}
	locations := opts.Locations
	if len(locations) == 0 {
		locations = DefaultLocations
	}
	return &Extractor{
		amounts:    NewAmountParser(opts.USDKRW),
		investors:  NewLexicon(investors),
		industries: NewLexicon(industries),
		locations:  NewTermLexicon(locations...),
		logger:     log,
	}
}

// WithLLM makes e ask client for investor names before using the lexicon.
// The orchestrator passes a client bound to the current company's token budget.
func (e *Extractor) WithLLM(client ports.LLMClient) *Extractor {
	e.llm = client
	return e
}

// Evaluate filters, extracts and scores one normalized article for company.
// The returned candidate has Status CandidateExcluded when the title fails the keyword
// filter and CandidateLowConfidence when the score is zero.
func (e *Extractor) Evaluate(ctx context.Context, article domain.RawArticle, company string) domain.Candidate {
	candidate := domain.Candidate{Article: article}
	if !PassesTitleFilter(article.Title) {
		candidate.Status = domain.CandidateExcluded
		return candidate
	}

	extraction := e.Extract(ctx, article)
	flags := Flags(extraction)
	score := Score(flags, MentionsCompany(article.Title, company), article.DateLowConfidence)

	candidate.Article.Flags = flags
	candidate.Article.Score = score
	candidate.Extraction = extraction
	if score == 0 {
		candidate.Status = domain.CandidateLowConfidence
		candidate.Err = domain.ErrExtractionLowConfidence
		return candidate
	}
	candidate.Status = domain.CandidateOK
	return candidate
}

// Extract reads amount, stage, investors, industry and location.
// The title is consulted first; the body only when the title yields nothing.
func (e *Extractor) Extract(ctx context.Context, article domain.RawArticle) domain.Extraction {
	title := article.Title
	body := strings.TrimSpace(article.Snippet + " " + article.Body)

	var out domain.Extraction
	if amount, ok := e.firstAmount(title, body); ok {
		out.Amount = &amount
	}

	out.Investors = e.extractInvestors(ctx, title, body)
	out.Stage = e.firstStage(title, body)
	out.Industry = firstLabel(e.industries, title, body)
	out.Location = firstLabel(e.locations, title, body)
	return out
}

func (e *Extractor) firstAmount(title, body string) (float64, bool) {
	if amount, ok := e.amounts.Parse(title); ok {
		return amount, true
	}
	if body == "" {
		return 0, false
	}
	return e.amounts.Parse(body)
}

// firstStage masks investor names first: 스톤브릿지벤처스 is not a bridge round.
func (e *Extractor) firstStage(title, body string) string {
	if stage, ok := ParseStage(e.investors.Mask(title)); ok {
		return stage
	}
	if body == "" {
		return ""
	}
	stage, _ := ParseStage(e.investors.Mask(body))
	return stage
}

func (e *Extractor) extractInvestors(ctx context.Context, title, body string) string {
	if e.llm != nil {
		names, err := e.askInvestors(ctx, title, body)
		if err == nil {
			return names
		}
		e.debug("llm investor extraction failed, using lexicon", "error", err)
	}

	found := e.investors.Find(title)
	if len(found) == 0 && body != "" {
		found = e.investors.Find(body)
	}
	return strings.Join(found, ", ")
}

func (e *Extractor) askInvestors(ctx context.Context, title, body string) (string, error) {
	prompt := fmt.Sprintf("제목: %s\n본문: %s\n투자자:", title, truncate(body, maxPromptBodyRunes))
	resp, err := e.llm.Complete(ctx, domain.CompletionRequest{
		System:    investorSystemPrompt,
		Prompt:    prompt,
		MaxTokens: investorPromptTokens,
	})
	if err != nil {
		return "", fmt.Errorf("ask investors: %w", err)
	}
	return ParseInvestorList(resp.Text), nil
}

// ParseInvestorList normalizes a model reply into "a, b, c"; refusals become "".
func ParseInvestorList(reply string) string {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "투자자:")
	var names []string
	seen := map[string]struct{}{}
	for _, part := range strings.FieldsFunc(reply, func(r rune) bool {
		return r == ',' || r == '\n' || r == '、' || r == '·'
	}) {
		name := strings.Trim(strings.TrimSpace(part), "\"'`-*• ")
		switch strings.ToLower(name) {
		case "", "없음", "none", "n/a", "null", "unknown", "미상", "비공개":
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func firstLabel(lex *Lexicon, title, body string) string {
	if found := lex.Find(title); len(found) > 0 {
		return found[0]
	}
	if body == "" {
		return ""
	}
	if found := lex.Find(body); len(found) > 0 {
		return found[0]
	}
	return ""
}

// Flags derives the quality flags of an extraction.
func Flags(x domain.Extraction) domain.QualityFlags {
	return domain.QualityFlags{
		HasAmount:    x.Amount != nil,
		HasInvestors: x.Investors != "",
		HasStage:     x.Stage != "",
		HasIndustry:  x.Industry != "",
		HasLocation:  x.Location != "",
	}
}

// Score grades an article from 0 to MaxScore. A low-confidence date costs one point.
func Score(flags domain.QualityFlags, mentionsCompany, lowConfidenceDate bool) int {
	score := 0
	if flags.HasAmount {
		score += weightAmount
	}
	if flags.HasInvestors {
		score += weightInvestors
	}
	if flags.HasStage {
		score += weightStage
	}
	if flags.HasIndustry {
		score += weightIndustry
	}
	if flags.HasLocation {
		score += weightLocation
	}
	if mentionsCompany {
		score += weightMention
	}
	if lowConfidenceDate {
		score--
	}
	return max(score, 0)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func (e *Extractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
