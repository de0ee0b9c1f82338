package engine

import (
	"context"

	"sol-swarm/internal/domain"
)

// SocialFeed fetches recent social mentions for a token. The sentiment
// stage tolerates feed failures: an error falls back to an empty batch
// and a neutral score.
type SocialFeed interface {
	FetchMentions(ctx context.Context, token string) ([]string, error)
}

// ConsensusProvider votes on a signal that passed validation and
// sentiment enrichment. A false vote rejects the signal.
type ConsensusProvider interface {
	Vote(ctx context.Context, signal *domain.TradeSignal, decision *domain.AgentDecision) (bool, error)
}

// ExecutionProvider commits an approved decision into an open position.
type ExecutionProvider interface {
	Execute(ctx context.Context, signal *domain.TradeSignal, decision *domain.AgentDecision) (*domain.TradingPosition, error)
}

// PriceFeed supplies current prices for the position monitor tick.
type PriceFeed interface {
	Prices(ctx context.Context, tokens []string) (map[string]float64, error)
}
