package content

import (
	"math"
	"strings"
)

const (
	negationScalar   = -0.74
	negationLookback = 3
	exclaimBoost     = 0.292
	exclaimMax       = 4
	normalizeAlpha   = 15.0
)

type sentimentScorer struct {
	lexicon      map[string]float64
	negations    map[string]struct{}
	intensifiers map[string]float64
}

func newSentimentScorer(r SentimentRules) *sentimentScorer {
	lex := make(map[string]float64, len(r.Lexicon))
	for k, v := range r.Lexicon {
		lex[strings.ToLower(k)] = v
	}
	inten := make(map[string]float64, len(r.Intensifier))
	for k, v := range r.Intensifier {
		inten[strings.ToLower(k)] = v
	}
	return &sentimentScorer{lexicon: lex, negations: toSet(r.Negations), intensifiers: inten}
}

// score returns a polarity in [-1, 1]. Each lexicon word's valence is
// boosted by a preceding intensifier and flipped (damped) when a negation
// occurs within the previous three tokens. Exclamation marks push the total
// further in its direction. The sum is squashed with x/sqrt(x²+15).
// Text with no lexicon words is neutral.
func (s *sentimentScorer) score(cleaned string, toks []string) float64 {
	total, hits := 0.0, 0
	for i, t := range toks {
		v, ok := s.lexicon[t]
		if !ok {
			continue
		}
		hits++
		if i > 0 {
			if boost, ok := s.intensifiers[toks[i-1]]; ok {
				if v > 0 {
					v += boost
				} else {
					v -= boost
				}
			}
		}
		for k := 1; k <= negationLookback && i-k >= 0; k++ {
			if _, neg := s.negations[toks[i-k]]; neg {
				v *= negationScalar
				break
			}
		}
		total += v
	}
	if hits == 0 || total == 0 {
		return 0
	}

	bangs := strings.Count(cleaned, "!")
	if bangs > exclaimMax {
		bangs = exclaimMax
	}
	if total > 0 {
		total += float64(bangs) * exclaimBoost
	} else {
		total -= float64(bangs) * exclaimBoost
	}

	c := total / math.Sqrt(total*total+normalizeAlpha)
	return math.Max(-1, math.Min(1, c))
}
