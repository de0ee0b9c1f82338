package domain

// SentimentResult is the aggregated sentiment for one token.
// Owned by the sentiment cache; shared read-only within its TTL window.
type SentimentResult struct {
	Token              string
	OverallScore       float64 // 0..1, 0.5 is neutral
	PositivePercentage float64
	NegativePercentage float64
	NeutralPercentage  float64
	SampleCount        int
	ComputedAt         int64 // Unix timestamp in milliseconds
}

// LowConfidence reports whether the result was computed from fewer
// samples than the configured minimum. Callers may apply a stricter
// sentiment threshold in that case; the cache itself does not.
func (r *SentimentResult) LowConfidence(minSamples int) bool {
	return r.SampleCount < minSamples
}
