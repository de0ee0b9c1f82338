package sentiment

import (
	"context"
	"log"
	"strings"
	"time"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/observability"
)

// maxBatchSize caps the number of texts sent to the classifier per token.
const maxBatchSize = 100

// maxTextLen caps individual text length before classification.
const maxTextLen = 512

// Aggregator runs the classifier over a batch of texts and folds the
// per-text labels into one SentimentResult.
type Aggregator struct {
	classifier Classifier
	logger     *log.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewAggregator creates an Aggregator. metrics may be nil.
func NewAggregator(classifier Classifier, logger *log.Logger, metrics *observability.Metrics) *Aggregator {
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{
		classifier: classifier,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Analyze classifies each text and aggregates label counts into
// percentages and an overall score in [0,1]. Classifier errors on
// individual texts count as neutral; if every text fails or the batch is
// empty, the neutral default is returned. Analyze never returns an error
// to the pipeline.
func (a *Aggregator) Analyze(ctx context.Context, token string, texts []string) *domain.SentimentResult {
	cleaned := make([]string, 0, len(texts))
	for _, t := range texts {
		if c := CleanText(t); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) > maxBatchSize {
		cleaned = cleaned[:maxBatchSize]
	}

	if len(cleaned) == 0 {
		a.logger.Printf("no usable texts for %s, defaulting to neutral", token)
		return a.neutral(token)
	}

	var positive, negative, neutral int
	for _, text := range cleaned {
		if ctx.Err() != nil {
			return a.neutral(token)
		}

		classifyStart := time.Now()
		label, _, err := a.classifier.Classify(ctx, text)
		if a.metrics != nil {
			a.metrics.ClassifierLatency.Observe(time.Since(classifyStart).Seconds())
		}
		if err != nil {
			// Conservative recovery: an unavailable classifier reads as
			// neutral, not as an analysis failure.
			neutral++
			continue
		}

		switch label {
		case LabelPositive:
			positive++
		case LabelNegative:
			negative++
		default:
			neutral++
		}
	}

	total := positive + negative + neutral
	posPct := float64(positive) / float64(total) * 100
	negPct := float64(negative) / float64(total) * 100
	neuPct := float64(neutral) / float64(total) * 100

	// Overall score: positive minus negative share, remapped from [-1,1]
	// into [0,1] so 0.5 is neutral.
	overall := ((posPct-negPct)/100 + 1) / 2

	result := &domain.SentimentResult{
		Token:              token,
		OverallScore:       overall,
		PositivePercentage: posPct,
		NegativePercentage: negPct,
		NeutralPercentage:  neuPct,
		SampleCount:        total,
		ComputedAt:         a.now().UnixMilli(),
	}

	a.logger.Printf("sentiment for %s: %.2f (+%.1f%% / -%.1f%%, %d samples)",
		token, overall, posPct, negPct, total)

	return result
}

// neutral is the fallback result when no analysis could run.
func (a *Aggregator) neutral(token string) *domain.SentimentResult {
	return &domain.SentimentResult{
		Token:              token,
		OverallScore:       0.5,
		PositivePercentage: 33.3,
		NegativePercentage: 33.3,
		NeutralPercentage:  33.3,
		SampleCount:        0,
		ComputedAt:         a.now().UnixMilli(),
	}
}

// CleanText strips URLs, @mentions and hashtag markers, collapses
// whitespace, and caps length for the classifier input window.
func CleanText(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, w := range fields {
		if strings.HasPrefix(w, "http") || strings.HasPrefix(w, "@") {
			continue
		}
		kept = append(kept, strings.ReplaceAll(w, "#", ""))
	}

	out := strings.Join(kept, " ")
	if len(out) > maxTextLen {
		out = out[:maxTextLen]
	}
	return strings.TrimSpace(out)
}
