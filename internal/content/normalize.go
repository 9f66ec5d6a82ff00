package content

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+(?:'\p{L}+)?`)

// Clean applies NFKC normalization (full-width letters, ligatures and other
// compatibility forms collapse to their plain equivalents), collapses runs of
// whitespace to a single space and trims the result.
func Clean(text string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(text)), " ")
}

// tokens returns case-folded word tokens of cleaned text. Typographic
// apostrophes are folded to ASCII so "don’t" and "don't" match alike.
func tokens(cleaned string) []string {
	s := strings.ReplaceAll(cleaned, "’", "'")
	s = cases.Fold().String(s)
	return wordRE.FindAllString(s, -1)
}

// rawWords returns the word tokens of cleaned text with case preserved.
func rawWords(cleaned string) []string {
	return wordRE.FindAllString(strings.ReplaceAll(cleaned, "’", "'"), -1)
}

func toSet(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(strings.ToLower(w)); w != "" {
			out[w] = struct{}{}
		}
	}
	return out
}

// splitTerms separates single-word terms from multi-word or punctuated
// phrases. Phrases are returned as token sequences and matched against the
// token stream with countPhrase.
func splitTerms(terms []string) (words map[string]struct{}, phrases [][]string) {
	words = make(map[string]struct{})
	for _, t := range terms {
		t = strings.TrimSpace(strings.ToLower(t))
		if t == "" {
			continue
		}
		if wordRE.FindString(t) == t {
			words[t] = struct{}{}
			continue
		}
		if parts := wordRE.FindAllString(t, -1); len(parts) > 0 {
			phrases = append(phrases, parts)
		}
	}
	return words, phrases
}

// countPhrase counts whole-word occurrences of phrase in toks.
func countPhrase(toks, phrase []string) int {
	n := 0
	for i := 0; i+len(phrase) <= len(toks); i++ {
		match := true
		for j, p := range phrase {
			if toks[i+j] != p {
				match = false
				break
			}
		}
		if match {
			n++
			i += len(phrase) - 1
		}
	}
	return n
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
