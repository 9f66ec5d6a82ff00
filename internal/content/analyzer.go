// Package content scores free-text review content for profanity, spam,
// quality and sentiment, and decides whether a submission should be held
// for human moderation.
//
// Analysis is pure: an Analyzer holds only immutable word lists, so a single
// instance built at start-up is safe for concurrent use.
package content

import (
	"fmt"
	"strings"
)

// Auto-flag thresholds.
const (
	ProfanityThreshold = 0.3
	SpamThreshold      = 0.7
	QualityThreshold   = 0.3
	SentimentThreshold = -0.8
)

// ReasonEmpty is the sole reason reported for blank text.
const ReasonEmpty = "Empty content"

// Analysis is the verdict for one text.
type Analysis struct {
	IsProfane      bool     `json:"is_profane"`
	ProfanityScore float64  `json:"profanity_score"`
	IsSpam         bool     `json:"is_spam"`
	SpamScore      float64  `json:"spam_score"`
	QualityScore   float64  `json:"quality_score"`
	SentimentScore float64  `json:"sentiment_score"`
	AutoFlag       bool     `json:"auto_flag"`
	FlagReasons    []string `json:"flag_reasons"`
	CleanedText    string   `json:"cleaned_text"`
}

// CleanAnalysis is the neutral verdict used when analysis cannot run.
func CleanAnalysis(text string) Analysis {
	return Analysis{FlagReasons: []string{}, CleanedText: Clean(text)}
}

// Analyzer scores review text against a set of Rules.
type Analyzer struct {
	profanity *profanityFilter
	spam      *spamDetector
	quality   *qualityScorer
	sentiment *sentimentScorer
}

// New builds an Analyzer from rules.
func New(rules Rules) *Analyzer {
	return &Analyzer{
		profanity: newProfanityFilter(rules.Profanity),
		spam:      newSpamDetector(rules.Spam),
		quality:   newQualityScorer(rules.Quality),
		sentiment: newSentimentScorer(rules.Sentiment),
	}
}

// NewDefault builds an Analyzer with the built-in lists.
func NewDefault() *Analyzer { return New(DefaultRules()) }

// Analyze scores text. Blank text is always flagged with ReasonEmpty.
// FlagReasons is non-empty exactly when AutoFlag is set.
func (a *Analyzer) Analyze(text string) Analysis {
	cleaned := Clean(text)
	if cleaned == "" {
		return Analysis{AutoFlag: true, FlagReasons: []string{ReasonEmpty}}
	}
	toks := tokens(cleaned)

	res := Analysis{
		ProfanityScore: a.profanity.score(toks),
		IsProfane:      a.profanity.contains(cleaned, toks),
		SpamScore:      a.spam.score(cleaned, toks),
		QualityScore:   a.quality.score(cleaned, toks),
		SentimentScore: a.sentiment.score(cleaned, toks),
		CleanedText:    cleaned,
		FlagReasons:    []string{},
	}
	res.IsSpam = res.SpamScore >= SpamThreshold

	if res.IsProfane || res.ProfanityScore >= ProfanityThreshold {
		res.FlagReasons = append(res.FlagReasons, fmt.Sprintf("Profanity detected (score: %.2f)", res.ProfanityScore))
	}
	if res.IsSpam {
		res.FlagReasons = append(res.FlagReasons, fmt.Sprintf("Spam detected (score: %.2f)", res.SpamScore))
	}
	if res.QualityScore < QualityThreshold {
		res.FlagReasons = append(res.FlagReasons, fmt.Sprintf("Low quality content (score: %.2f)", res.QualityScore))
	}
	if res.SentimentScore <= SentimentThreshold {
		res.FlagReasons = append(res.FlagReasons, fmt.Sprintf("Extremely negative sentiment (score: %.2f)", res.SentimentScore))
	}
	res.AutoFlag = len(res.FlagReasons) > 0
	return res
}

// ReasonCategory names the scoring dimension a reason string came from:
// "profanity", "spam", "quality", "sentiment" or "other".
func ReasonCategory(reason string) string {
	low := strings.ToLower(reason)
	for _, c := range []string{"profanity", "spam", "quality", "sentiment"} {
		if strings.Contains(low, c) {
			return c
		}
	}
	return "other"
}
