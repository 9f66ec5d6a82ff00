package content

import "unicode/utf8"

const (
	qualityTargetChars    = 200.0
	qualityTargetWords    = 20.0
	qualityTargetKeywords = 3.0
	qualitySpelling       = 0.8 // constant; no dictionary check is performed
	qualityFillerPenalty  = 0.15
	qualityFactors        = 4.0
)

type qualityScorer struct {
	keywords map[string]struct{}
	fillers  map[string]struct{}
}

func newQualityScorer(r QualityRules) *qualityScorer {
	return &qualityScorer{keywords: toSet(r.Keywords), fillers: toSet(r.Fillers)}
}

// score averages four factors (length, word count, teaching vocabulary and
// the spelling constant), less a penalty per low-effort filler word. Text
// without words scores 0.
func (q *qualityScorer) score(cleaned string, toks []string) float64 {
	if len(toks) == 0 {
		return 0
	}
	keywords, fillers := 0, 0
	for _, t := range toks {
		if _, ok := q.keywords[t]; ok {
			keywords++
		}
		if _, ok := q.fillers[t]; ok {
			fillers++
		}
	}

	sum := clamp01(float64(utf8.RuneCountInString(cleaned))/qualityTargetChars) +
		clamp01(float64(len(toks))/qualityTargetWords) +
		clamp01(float64(keywords)/qualityTargetKeywords) +
		qualitySpelling
	sum -= qualityFillerPenalty * float64(fillers)
	return clamp01(sum / qualityFactors)
}
