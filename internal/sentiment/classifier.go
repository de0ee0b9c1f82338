// Package sentiment converts batches of raw social texts into one
// normalized score per token, with a TTL cache in front of the
// classifier collaborator.
package sentiment

import "context"

// Label is the classifier output class.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

// Classifier is the external text-classification collaborator. It may be
// slow or unreliable; callers treat failures as neutral, never fatal.
type Classifier interface {
	// Classify returns the label and a confidence in [0,1] for one text.
	Classify(ctx context.Context, text string) (Label, float64, error)
}
