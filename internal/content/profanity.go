package content

import "strings"

// leet folds common character substitutions used to dodge word filters.
var leet = strings.NewReplacer(
	"0", "o", "1", "i", "3", "e", "4", "a", "5", "s", "7", "t",
	"@", "a", "$", "s", "!", "i", "*", "", "#", "", "+", "t",
)

type profanityFilter struct {
	words   map[string]struct{}
	phrases [][]string
}

func newProfanityFilter(r ProfanityRules) *profanityFilter {
	words, phrases := splitTerms(r.Words)
	pw, pp := splitTerms(r.Phrases)
	for w := range pw {
		words[w] = struct{}{}
	}
	return &profanityFilter{words: words, phrases: append(phrases, pp...)}
}

// score is the fraction of tokens that are listed words.
func (f *profanityFilter) score(toks []string) float64 {
	if len(toks) == 0 {
		return 0
	}
	hits := 0
	for _, t := range toks {
		if _, ok := f.words[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(toks))
}

// contains checks the whole text for any listed word or phrase, also after
// undoing leetspeak and masking characters ("sh!t", "f*ck").
func (f *profanityFilter) contains(cleaned string, toks []string) bool {
	if f.match(toks) {
		return true
	}
	deob := tokens(leet.Replace(strings.ToLower(cleaned)))
	return f.match(deob)
}

func (f *profanityFilter) match(toks []string) bool {
	for _, t := range toks {
		if _, ok := f.words[t]; ok {
			return true
		}
	}
	for _, p := range f.phrases {
		if countPhrase(toks, p) > 0 {
			return true
		}
	}
	return false
}
