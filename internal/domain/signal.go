package domain

import (
	"fmt"
	"time"
)

// RugRisk is the categorical rug-pull risk assessment attached to a signal.
type RugRisk string

const (
	RugRiskLow    RugRisk = "low"
	RugRiskMedium RugRisk = "medium"
	RugRiskHigh   RugRisk = "high"
)

// ValidationError reports a field that failed constructor-time validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TradeSignal is an incoming market opportunity from the discovery feed.
// Immutable after ingest except SentimentScore and SocialMentions, which
// the sentiment stage fills in, and RejectReason set on rejection.
type TradeSignal struct {
	Token           string
	ContractAddress string
	LiquidityUSD    float64
	MarketCapUSD    float64
	HolderCount     int
	Volume24hUSD    float64
	Price           float64
	Timestamp       time.Time

	// Risk metrics from the vetting feed.
	HoneypotScore    float64 // 0..1
	RugPullRisk      RugRisk
	ContractVerified bool

	// Technical indicators.
	Momentum    float64
	VolumeRatio float64

	// Filled by the sentiment stage. Nil until enriched.
	SentimentScore *float64
	SocialMentions int

	// Set once if the pipeline rejects the signal.
	RejectReason string
}

// Validate checks the signal at ingest. Partially-invalid signals never
// enter the pipeline.
func (s *TradeSignal) Validate() error {
	if s.Token == "" {
		return &ValidationError{Field: "token", Reason: "empty"}
	}
	if s.HoneypotScore < 0 || s.HoneypotScore > 1 {
		return &ValidationError{Field: "honeypot_score", Reason: fmt.Sprintf("must be in [0,1], got %v", s.HoneypotScore)}
	}
	if s.LiquidityUSD < 0 {
		return &ValidationError{Field: "liquidity_usd", Reason: "negative"}
	}
	if s.MarketCapUSD < 0 {
		return &ValidationError{Field: "market_cap_usd", Reason: "negative"}
	}
	if s.Price <= 0 {
		return &ValidationError{Field: "price", Reason: "must be positive"}
	}
	if s.HolderCount < 0 {
		return &ValidationError{Field: "holder_count", Reason: "negative"}
	}
	switch s.RugPullRisk {
	case RugRiskLow, RugRiskMedium, RugRiskHigh:
	default:
		return &ValidationError{Field: "rug_pull_risk", Reason: fmt.Sprintf("unknown category %q", s.RugPullRisk)}
	}
	return nil
}
