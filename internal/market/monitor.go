// Package market tracks volatility and market-wide price change and
// drives the trading circuit breaker.
package market

import (
	"log"
	"time"

	"sol-swarm/internal/config"
	"sol-swarm/internal/domain"
	"sol-swarm/internal/state"
)

// PauseReasonCrash is the pause reason set when a crash is detected.
const PauseReasonCrash = "market crash detected"

// Monitor classifies market conditions and pauses trading on a crash.
// It never touches already-open positions; the pause flag only blocks
// new approvals in the allocator.
type Monitor struct {
	cfg    config.Config
	state  *state.SystemState
	logger *log.Logger
}

// NewMonitor creates a Monitor.
func NewMonitor(cfg config.Config, st *state.SystemState, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{cfg: cfg, state: st, logger: logger}
}

// Update classifies the condition from the latest readings:
// crash pauses trading for the configured duration, high volatility is
// logged but does not auto-pause, anything else is NORMAL.
func (m *Monitor) Update(volatilityPct, marketChangePct float64) domain.MarketCondition {
	m.logger.Printf("market update: volatility %.1f%%, change %.1f%%", volatilityPct, marketChangePct)

	switch {
	case marketChangePct <= m.cfg.MarketCrashThreshold:
		m.logger.Printf("market crash detected: change %.1f%% <= %.1f%%",
			marketChangePct, m.cfg.MarketCrashThreshold)
		m.state.SetMarketCondition(domain.MarketCrash)
		m.Pause(PauseReasonCrash, m.cfg.PauseDuration)
		return domain.MarketCrash

	case volatilityPct >= m.cfg.VolatilityAlert:
		m.logger.Printf("high volatility: %.1f%% >= %.1f%%", volatilityPct, m.cfg.VolatilityAlert)
		m.state.SetMarketCondition(domain.MarketVolatile)
		return domain.MarketVolatile

	default:
		m.state.SetMarketCondition(domain.MarketNormal)
		return domain.MarketNormal
	}
}

// Pause engages the circuit breaker. Idempotent.
func (m *Monitor) Pause(reason string, duration time.Duration) {
	m.logger.Printf("pausing trading: %s (duration %v)", reason, duration)
	m.state.Pause(reason, duration)
}

// Resume clears the circuit breaker. Resuming an active system is a
// no-op.
func (m *Monitor) Resume() {
	m.logger.Printf("resuming trading")
	m.state.Resume()
}
