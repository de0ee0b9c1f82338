package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/idhash"
)

// consensus vote parameters. The swarm vote blends the signal's
// sentiment with a fixed base conviction and approves above the
// threshold, so the vote is deterministic for a given signal.
const (
	consensusBaseConviction = 0.6
	consensusThreshold      = 0.65
	consensusNeutralScore   = 0.7
)

// SimulatedConsensus approves when (sentiment + base) / 2 clears the
// threshold. A missing sentiment score reads as mildly positive.
type SimulatedConsensus struct{}

var _ ConsensusProvider = (*SimulatedConsensus)(nil)

func (SimulatedConsensus) Vote(ctx context.Context, signal *domain.TradeSignal, _ *domain.AgentDecision) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	score := consensusNeutralScore
	if signal.SentimentScore != nil {
		score = *signal.SentimentScore
	}
	return (score+consensusBaseConviction)/2 > consensusThreshold, nil
}

// PaperExecution fills approved decisions at the signal price with no
// slippage. Quantity is the full allocated capital at that price.
type PaperExecution struct {
	now func() time.Time
}

// NewPaperExecution creates a PaperExecution.
func NewPaperExecution() *PaperExecution {
	return &PaperExecution{now: time.Now}
}

// NewPaperExecutionWithClock is NewPaperExecution with an injected
// clock, for tests.
func NewPaperExecutionWithClock(now func() time.Time) *PaperExecution {
	return &PaperExecution{now: now}
}

var _ ExecutionProvider = (*PaperExecution)(nil)

func (e *PaperExecution) Execute(ctx context.Context, signal *domain.TradeSignal, decision *domain.AgentDecision) (*domain.TradingPosition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if signal.Price <= 0 {
		return nil, fmt.Errorf("cannot fill %s at price %v", signal.Token, signal.Price)
	}

	openedAt := e.now().UnixMilli()
	return &domain.TradingPosition{
		PositionID: idhash.ComputePositionID(decision.SignalID, openedAt),
		Token:      signal.Token,
		EntryPrice: signal.Price,
		Quantity:   decision.Capital / signal.Price,
		Capital:    decision.Capital,
		OpenedAt:   openedAt,
		Status:     domain.PositionOpen,
	}, nil
}

// StaticSocialFeed serves mentions from a fixed in-memory map. Used by
// the paper runner and tests.
type StaticSocialFeed struct {
	mu       sync.RWMutex
	mentions map[string][]string
}

// NewStaticSocialFeed creates a StaticSocialFeed from the given map.
func NewStaticSocialFeed(mentions map[string][]string) *StaticSocialFeed {
	if mentions == nil {
		mentions = make(map[string][]string)
	}
	return &StaticSocialFeed{mentions: mentions}
}

var _ SocialFeed = (*StaticSocialFeed)(nil)

func (f *StaticSocialFeed) FetchMentions(ctx context.Context, token string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.mentions[token]))
	copy(out, f.mentions[token])
	return out, nil
}

// SetMentions replaces the mention list for a token.
func (f *StaticSocialFeed) SetMentions(token string, texts []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mentions[token] = texts
}
