package sentiment

import (
	"context"
	"strings"
)

// Lexicon word lists for crypto social chatter. Matching is on lowercased
// whole words after text cleaning.
var (
	positiveWords = map[string]struct{}{
		"moon": {}, "mooning": {}, "pump": {}, "pumping": {}, "bullish": {},
		"gem": {}, "100x": {}, "10x": {}, "ape": {}, "aping": {},
		"lfg": {}, "send": {}, "sending": {}, "buy": {}, "buying": {},
		"hold": {}, "holding": {}, "hodl": {}, "winner": {}, "huge": {},
		"early": {}, "alpha": {}, "solid": {}, "legit": {}, "based": {},
	}
	negativeWords = map[string]struct{}{
		"rug": {}, "rugged": {}, "rugpull": {}, "scam": {}, "scammer": {},
		"dump": {}, "dumping": {}, "dumped": {}, "honeypot": {}, "avoid": {},
		"bearish": {}, "sell": {}, "selling": {}, "dead": {}, "rekt": {},
		"exit": {}, "fake": {}, "warning": {}, "stay": {}, "away": {},
		"crash": {}, "crashing": {}, "drain": {}, "drained": {},
	}
)

// LexiconClassifier labels text by counting lexicon hits. The label with
// more hits wins; a tie or no hits reads as neutral. Confidence is the
// winning share of all hits.
type LexiconClassifier struct{}

// NewLexiconClassifier creates a LexiconClassifier.
func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{}
}

// Compile-time interface check.
var _ Classifier = (*LexiconClassifier)(nil)

// Classify labels a single text.
func (c *LexiconClassifier) Classify(ctx context.Context, text string) (Label, float64, error) {
	if err := ctx.Err(); err != nil {
		return LabelNeutral, 0, err
	}

	var pos, neg int
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?:;'\"()")
		if _, ok := positiveWords[word]; ok {
			pos++
		}
		if _, ok := negativeWords[word]; ok {
			neg++
		}
	}

	total := pos + neg
	if total == 0 || pos == neg {
		return LabelNeutral, 0.5, nil
	}
	if pos > neg {
		return LabelPositive, float64(pos) / float64(total), nil
	}
	return LabelNegative, float64(neg) / float64(total), nil
}
