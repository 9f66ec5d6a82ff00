package content

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Rules holds the word lists the analyzer scores against. The zero value is
// empty; use DefaultRules for the built-in lists.
//
// A rules file is TOML:
//
//	replace = false            # true: file lists replace the defaults
//
//	[profanity]
//	words   = ["..."]
//	phrases = ["..."]
//
//	[spam]
//	promotional = ["click here", "discount"]
//	cheating    = ["write my essay"]
//
//	[quality]
//	keywords = ["lecture", "grading"]
//	fillers  = ["ok", "meh"]
//
//	[sentiment.lexicon]
//	brilliant = 3.0
type Rules struct {
	Replace   bool           `toml:"replace"`
	Profanity ProfanityRules `toml:"profanity"`
	Spam      SpamRules      `toml:"spam"`
	Quality   QualityRules   `toml:"quality"`
	Sentiment SentimentRules `toml:"sentiment"`
}

type ProfanityRules struct {
	Words   []string `toml:"words"`
	Phrases []string `toml:"phrases"`
}

type SpamRules struct {
	Promotional []string `toml:"promotional"`
	Cheating    []string `toml:"cheating"`
	Stopwords   []string `toml:"stopwords"`
}

type QualityRules struct {
	Keywords []string `toml:"keywords"`
	Fillers  []string `toml:"fillers"`
}

type SentimentRules struct {
	Lexicon     map[string]float64 `toml:"lexicon"`
	Negations   []string           `toml:"negations"`
	Intensifier map[string]float64 `toml:"intensifiers"`
}

// LoadRules reads a TOML rules file. Unless the file sets replace = true,
// its lists extend DefaultRules.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read content rules: %w", err)
	}
	var file Rules
	if err := toml.Unmarshal(raw, &file); err != nil {
		return Rules{}, fmt.Errorf("parse content rules %s: %w", path, err)
	}
	if file.Replace {
		return file, nil
	}
	return DefaultRules().merge(file), nil
}

func (r Rules) merge(o Rules) Rules {
	r.Profanity.Words = append(r.Profanity.Words, o.Profanity.Words...)
	r.Profanity.Phrases = append(r.Profanity.Phrases, o.Profanity.Phrases...)
	r.Spam.Promotional = append(r.Spam.Promotional, o.Spam.Promotional...)
	r.Spam.Cheating = append(r.Spam.Cheating, o.Spam.Cheating...)
	r.Spam.Stopwords = append(r.Spam.Stopwords, o.Spam.Stopwords...)
	r.Quality.Keywords = append(r.Quality.Keywords, o.Quality.Keywords...)
	r.Quality.Fillers = append(r.Quality.Fillers, o.Quality.Fillers...)
	r.Sentiment.Negations = append(r.Sentiment.Negations, o.Sentiment.Negations...)
	for k, v := range o.Sentiment.Lexicon {
		r.Sentiment.Lexicon[k] = v
	}
	for k, v := range o.Sentiment.Intensifier {
		r.Sentiment.Intensifier[k] = v
	}
	return r
}

// DefaultRules returns a fresh copy of the built-in lists.
func DefaultRules() Rules {
	lex := make(map[string]float64, len(defaultLexicon))
	for k, v := range defaultLexicon {
		lex[k] = v
	}
	inten := make(map[string]float64, len(defaultIntensifiers))
	for k, v := range defaultIntensifiers {
		inten[k] = v
	}
	return Rules{
		Profanity: ProfanityRules{
			Words:   append([]string(nil), defaultProfaneWords...),
			Phrases: append([]string(nil), defaultProfanePhrases...),
		},
		Spam: SpamRules{
			Promotional: append([]string(nil), defaultPromotional...),
			Cheating:    append([]string(nil), defaultCheating...),
			Stopwords:   append([]string(nil), defaultStopwords...),
		},
		Quality: QualityRules{
			Keywords: append([]string(nil), defaultQualityKeywords...),
			Fillers:  append([]string(nil), defaultFillers...),
		},
		Sentiment: SentimentRules{
			Lexicon:     lex,
			Negations:   append([]string(nil), defaultNegations...),
			Intensifier: inten,
		},
	}
}

var defaultProfaneWords = []string{
	"fuck", "fucking", "fucked", "fucker", "motherfucker", "shit", "shitty", "bullshit",
	"bitch", "bitchy", "bastard", "asshole", "ass", "dick", "dickhead", "prick", "cunt",
	"piss", "pissed", "crap", "crappy", "damn", "goddamn", "douche", "douchebag", "twat",
	"wanker", "slut", "whore", "retard", "retarded", "moron", "jackass", "dumbass",
	// informal / abbreviated
	"wtf", "stfu", "gtfo", "fml", "af", "bs", "fk", "fck", "fcking", "sh1t",
}

var defaultProfanePhrases = []string{
	"piece of shit", "son of a bitch", "shut up", "go to hell", "screw you", "kiss my ass",
}

var defaultPromotional = []string{
	"click here", "buy", "cheap", "discount", "free", "promo", "coupon", "deal", "offer",
	"order now", "limited time", "visit", "subscribe", "follow me", "contact me", "dm me",
	"email me", "call now", "whatsapp", "telegram", "earn money", "make money", "sale",
}

var defaultCheating = []string{
	"essay", "essays", "write my", "homework help", "assignment help", "exam answers",
	"test bank", "pay someone", "ghostwriter", "ghostwriting", "plagiarism free",
	"take my exam", "take my class", "do my homework", "answer key",
}

var defaultStopwords = []string{
	"the", "and", "that", "this", "with", "have", "from", "they", "were", "what", "when",
	"your", "about", "there", "their", "will", "would", "very", "really", "also", "just",
	"class", "professor", "course",
}

var defaultQualityKeywords = []string{
	"lecture", "lectures", "clear", "clearly", "grading", "graded", "fair", "exam", "exams",
	"homework", "assignment", "assignments", "helpful", "office", "hours", "explains",
	"explained", "knowledgeable", "organized", "feedback", "material", "materials",
	"engaging", "passionate", "syllabus", "textbook", "quiz", "quizzes", "project",
	"projects", "teaching", "teaches", "curriculum", "campus", "faculty", "professors",
	"resources", "advising", "labs", "workload", "difficulty", "responsive", "examples",
}

var defaultFillers = []string{
	"ok", "okay", "fine", "meh", "whatever", "idk", "k", "kk", "lol", "nothing", "good",
	"bad", "nice", "cool",
}

var defaultNegations = []string{
	"not", "no", "never", "none", "nobody", "nothing", "neither", "nor", "cannot",
	"dont", "don't", "doesnt", "doesn't", "didnt", "didn't", "isnt", "isn't", "wasnt",
	"wasn't", "aint", "ain't", "cant", "can't", "wont", "won't", "hardly", "barely",
}

var defaultIntensifiers = map[string]float64{
	"very": 0.3, "extremely": 0.5, "really": 0.3, "so": 0.25, "super": 0.3,
	"incredibly": 0.4, "absolutely": 0.4, "totally": 0.3, "truly": 0.3, "most": 0.3,
	"slightly": -0.3, "somewhat": -0.25, "kinda": -0.25, "barely": -0.4, "quite": 0.15,
}

// Polarity values on a -4..4 scale.
var defaultLexicon = map[string]float64{
	// positive
	"excellent": 3.2, "amazing": 3.0, "awesome": 3.0, "outstanding": 3.2, "fantastic": 3.2,
	"great": 3.0, "wonderful": 3.0, "brilliant": 3.0, "best": 3.2, "love": 3.0, "loved": 3.0,
	"good": 1.9, "nice": 1.8, "helpful": 2.0, "clear": 1.2, "fair": 1.3, "kind": 2.0,
	"friendly": 2.0, "engaging": 2.0, "passionate": 2.0, "knowledgeable": 2.0,
	"interesting": 1.7, "organized": 1.5, "easy": 1.2, "recommend": 1.8, "enjoyed": 2.2,
	"patient": 1.6, "supportive": 2.0, "caring": 2.0, "inspiring": 2.4, "approachable": 1.9,
	"understanding": 1.5, "respectful": 1.8, "thorough": 1.4, "fun": 2.3, "happy": 2.7,
	"glad": 2.0, "useful": 1.9, "insightful": 2.1, "generous": 2.3,
	// negative
	"bad": -2.5, "terrible": -3.2, "horrible": -3.3, "awful": -3.2, "worst": -3.5,
	"hate": -3.0, "hated": -3.0, "useless": -2.6, "boring": -2.2, "rude": -2.7,
	"unfair": -2.1, "confusing": -1.8, "disorganized": -2.0, "unhelpful": -2.2,
	"incompetent": -2.8, "arrogant": -2.4, "lazy": -2.3, "disrespectful": -2.6,
	"condescending": -2.4, "mean": -1.2, "hard": -0.4, "difficult": -0.8, "avoid": -1.8,
	"disaster": -3.1, "nightmare": -3.0, "pathetic": -3.0, "garbage": -3.0, "trash": -2.8,
	"stupid": -2.6, "disgusting": -3.2, "miserable": -3.0, "waste": -2.2, "poor": -2.1,
	"unprofessional": -2.4, "hostile": -2.5, "dreadful": -3.0, "abysmal": -3.3,
	"unbearable": -3.0, "sucks": -2.5, "sucked": -2.5, "annoying": -2.0, "incoherent": -2.0,
}
