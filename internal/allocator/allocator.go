// Package allocator implements the deterministic risk-scoring and
// capital-allocation decision for incoming trade signals.
package allocator

import (
	"fmt"
	"log"
	"time"

	"sol-swarm/internal/config"
	"sol-swarm/internal/domain"
	"sol-swarm/internal/state"
)

// Rejection reasons. These are user-visible and asserted by callers.
const (
	ReasonInsufficientLiquidity = "insufficient liquidity"
	ReasonHoneypotRisk          = "honeypot risk"
	ReasonRugPullRisk           = "rug pull risk"
	ReasonRiskTooHigh           = "risk too high"
	ReasonPositionLimit         = "position limit reached"
	ReasonTradingPaused         = "trading paused"
	ReasonRateLimit             = "trade rate limit reached"
	ReasonLossCooldown          = "loss cooldown active"
)

// Allocator evaluates signals against gate checks and a composite risk
// score, and sizes capital for approved trades. It reads SystemState but
// never mutates counters; the orchestrator owns counter updates.
type Allocator struct {
	cfg    config.Config
	state  *state.SystemState
	logger *log.Logger
}

// New creates an Allocator.
func New(cfg config.Config, st *state.SystemState, logger *log.Logger) *Allocator {
	if logger == nil {
		logger = log.Default()
	}
	return &Allocator{cfg: cfg, state: st, logger: logger}
}

// Allocate evaluates a signal and returns the decision. Gate checks
// short-circuit in a fixed order; the first failure wins.
func (a *Allocator) Allocate(signal *domain.TradeSignal) *domain.AgentDecision {
	// The circuit breaker blocks all new approvals regardless of score.
	if a.state.Paused() {
		return a.reject(signal, 100, ReasonTradingPaused)
	}

	if signal.LiquidityUSD < a.cfg.MinLiquidityUSD {
		a.logger.Printf("low liquidity for %s: $%.0f < $%.0f",
			signal.Token, signal.LiquidityUSD, a.cfg.MinLiquidityUSD)
		return a.reject(signal, 95, ReasonInsufficientLiquidity)
	}

	if signal.HoneypotScore > a.cfg.MaxHoneypotScore {
		a.logger.Printf("honeypot risk for %s: %.2f > %.2f",
			signal.Token, signal.HoneypotScore, a.cfg.MaxHoneypotScore)
		return a.reject(signal, 100, ReasonHoneypotRisk)
	}

	if signal.RugPullRisk == domain.RugRiskHigh {
		a.logger.Printf("high rug pull risk for %s", signal.Token)
		return a.reject(signal, 100, ReasonRugPullRisk)
	}

	riskScore := a.RiskScore(signal)
	if riskScore > a.cfg.RiskScoreCeiling {
		a.logger.Printf("risk score for %s: %d > ceiling %d",
			signal.Token, riskScore, a.cfg.RiskScoreCeiling)
		return a.reject(signal, riskScore, ReasonRiskTooHigh)
	}

	if a.state.ExecutionsInLastHour() >= a.cfg.MaxTradesPerHour {
		return a.reject(signal, riskScore, ReasonRateLimit)
	}

	if a.state.InLossCooldown(a.cfg.LossCooldown) {
		return a.reject(signal, riskScore, ReasonLossCooldown)
	}

	if a.state.OpenPositions() >= a.cfg.MaxConcurrentTrades {
		a.logger.Printf("at maximum concurrent trades (%d)", a.cfg.MaxConcurrentTrades)
		return a.reject(signal, riskScore, ReasonPositionLimit)
	}

	a.logger.Printf("approving %s: risk %d/100, capital $%.2f",
		signal.Token, riskScore, a.cfg.CapitalPerAgent)

	return &domain.AgentDecision{
		Token:     signal.Token,
		Approved:  true,
		RiskScore: riskScore,
		Capital:   a.cfg.CapitalPerAgent,
		Reason: fmt.Sprintf("signal validated: honeypot %.2f, liquidity $%.0f",
			signal.HoneypotScore, signal.LiquidityUSD),
		Action:    domain.ActionTrade,
		DecidedAt: time.Now().UnixMilli(),
	}
}

func (a *Allocator) reject(signal *domain.TradeSignal, riskScore int, reason string) *domain.AgentDecision {
	return &domain.AgentDecision{
		Token:     signal.Token,
		Approved:  false,
		RiskScore: riskScore,
		Reason:    reason,
		Action:    domain.ActionSkip,
		DecidedAt: time.Now().UnixMilli(),
	}
}
