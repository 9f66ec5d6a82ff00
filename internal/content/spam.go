package content

import (
	"regexp"
	"unicode"
)

var (
	urlRE       = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+|\b[\w-]+\.(?:com|net|org|io|biz|info|ly)\b`)
	contactRE   = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.]+|\+?\d[\d\s().-]{8,}\d`)
	shoutingRE  = regexp.MustCompile(`[A-Z]{5,}|[!?]{3,}`)
	repeatWindow = 3 // words that may sit between two occurrences of a repeated word
)

// spamRule counts matches of one heuristic. Go's RE2 has no
// backreferences, so the repetition rules walk the token stream.
type spamRule struct {
	name  string
	count func(s *spamDetector, cleaned string, toks []string) int
}

// spamRules are evaluated in order; each contributes its match count.
var spamRules = []spamRule{
	{"immediate_repetition", func(_ *spamDetector, _ string, toks []string) int {
		n := 0
		for i := 1; i < len(toks); i++ {
			if toks[i] == toks[i-1] {
				n++
				i++ // pairs do not overlap
			}
		}
		return n
	}},
	{"windowed_repetition", func(s *spamDetector, _ string, toks []string) int {
		n := 0
		for i := 0; i < len(toks); i++ {
			w := toks[i]
			if len([]rune(w)) < 4 {
				continue
			}
			if _, stop := s.stopwords[w]; stop {
				continue
			}
			for j := i + 2; j <= i+1+repeatWindow && j < len(toks); j++ {
				if toks[j] == w {
					n++
					i = j
					break
				}
			}
		}
		return n
	}},
	{"character_runs", func(_ *spamDetector, cleaned string, _ []string) int {
		n, run := 0, 1
		var prev rune
		for i, r := range []rune(cleaned) {
			if i > 0 && r == prev && runCounts(r) {
				run++
				if run == 3 {
					n++
				}
			} else {
				run = 1
			}
			prev = r
		}
		return n
	}},
	{"promotional", func(s *spamDetector, cleaned string, toks []string) int {
		n := len(urlRE.FindAllString(cleaned, -1)) + len(contactRE.FindAllString(cleaned, -1))
		return n + s.vocab(toks, s.promoWords, s.promoPhrases)
	}},
	{"academic_cheating", func(s *spamDetector, _ string, toks []string) int {
		return s.vocab(toks, s.cheatWords, s.cheatPhrases)
	}},
	{"shouting", func(_ *spamDetector, cleaned string, _ []string) int {
		return len(shoutingRE.FindAllString(cleaned, -1))
	}},
}

// spamDenominator normalizes indicators: one point per rule plus the three
// structural points.
var spamDenominator = float64(len(spamRules) + 3)

func runCounts(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '!' || r == '?' || r == '$'
}

type spamDetector struct {
	stopwords    map[string]struct{}
	promoWords   map[string]struct{}
	promoPhrases [][]string
	cheatWords   map[string]struct{}
	cheatPhrases [][]string
}

func newSpamDetector(r SpamRules) *spamDetector {
	d := &spamDetector{stopwords: toSet(r.Stopwords)}
	d.promoWords, d.promoPhrases = splitTerms(r.Promotional)
	d.cheatWords, d.cheatPhrases = splitTerms(r.Cheating)
	return d
}

func (s *spamDetector) vocab(toks []string, words map[string]struct{}, phrases [][]string) int {
	n := 0
	for _, t := range toks {
		if _, ok := words[t]; ok {
			n++
		}
	}
	for _, p := range phrases {
		n += countPhrase(toks, p)
	}
	return n
}

// indicators sums all rule matches plus the structural checks: a
// unique-word ratio under 0.3 adds 2, more than half of the words in capitals
// adds 1.
func (s *spamDetector) indicators(cleaned string, toks []string) int {
	total := 0
	for _, r := range spamRules {
		total += r.count(s, cleaned, toks)
	}
	if len(toks) == 0 {
		return total
	}

	uniq := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		uniq[t] = struct{}{}
	}
	if float64(len(uniq))/float64(len(toks)) < 0.3 {
		total += 2
	}

	raw := rawWords(cleaned)
	caps := 0
	for _, w := range raw {
		if isAllCaps(w) {
			caps++
		}
	}
	if len(raw) > 0 && float64(caps)/float64(len(raw)) > 0.5 {
		total++
	}
	return total
}

func (s *spamDetector) score(cleaned string, toks []string) float64 {
	return clamp01(float64(s.indicators(cleaned, toks)) / spamDenominator)
}

// isAllCaps reports words of two or more letters with no lowercase letter.
func isAllCaps(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 2
}
