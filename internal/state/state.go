// Package state holds the process-wide system state shared by the
// pipeline, the market monitor, and the position monitor. There are no
// hidden globals: one SystemState is constructed in main and passed to
// every component that needs it.
package state

import (
	"sync"
	"time"

	"sol-swarm/internal/domain"
)

// SystemState aggregates counters, the market condition, and the
// trading-paused circuit breaker. All access goes through methods that
// hold the single mutex, so read-modify-write sequences are atomic.
type SystemState struct {
	mu sync.Mutex

	signalsProcessed int
	tradesApproved   int
	tradesRejected   int
	tradesExecuted   int
	openPositions    int
	cumulativePnL    float64
	wins             int
	losses           int

	marketCondition domain.MarketCondition

	paused      bool
	pauseReason string
	resumeAt    time.Time

	// Rate-limit bookkeeping: execution timestamps within the last hour
	// and the time of the most recent losing close.
	executedAt []time.Time
	lastLossAt time.Time

	now func() time.Time
}

// New creates a SystemState with condition NORMAL.
func New() *SystemState {
	return &SystemState{
		marketCondition: domain.MarketNormal,
		now:             time.Now,
	}
}

// NewWithClock creates a SystemState with an injected clock, for tests.
func NewWithClock(now func() time.Time) *SystemState {
	s := New()
	s.now = now
	return s
}

// Snapshot is a read-only copy of the system state.
type Snapshot struct {
	SignalsProcessed int
	TradesApproved   int
	TradesRejected   int
	TradesExecuted   int
	OpenPositions    int
	CumulativePnL    float64
	WinRate          float64
	MarketCondition  domain.MarketCondition
	Paused           bool
	PauseReason      string
	ResumeAt         time.Time
}

// Snapshot returns the latest committed state.
func (s *SystemState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	winRate := 0.0
	if closed := s.wins + s.losses; closed > 0 {
		winRate = float64(s.wins) / float64(closed)
	}

	return Snapshot{
		SignalsProcessed: s.signalsProcessed,
		TradesApproved:   s.tradesApproved,
		TradesRejected:   s.tradesRejected,
		TradesExecuted:   s.tradesExecuted,
		OpenPositions:    s.openPositions,
		CumulativePnL:    s.cumulativePnL,
		WinRate:          winRate,
		MarketCondition:  s.marketCondition,
		Paused:           s.pausedLocked(),
		PauseReason:      s.pauseReason,
		ResumeAt:         s.resumeAt,
	}
}

// RecordSignal increments the processed-signals counter.
func (s *SystemState) RecordSignal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signalsProcessed++
}

// RecordApproval increments the approved-trades counter.
func (s *SystemState) RecordApproval() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tradesApproved++
}

// RecordRejection increments the rejected-trades counter.
func (s *SystemState) RecordRejection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tradesRejected++
}

// RecordExecution increments executed trades and open positions, and
// stamps the execution time for the hourly rate limit.
func (s *SystemState) RecordExecution() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tradesExecuted++
	s.openPositions++
	s.executedAt = append(s.executedAt, s.now())
}

// RecordClose applies a realized P&L to the cumulative total and the
// win/loss counters, and decrements open positions. Called exactly once
// per position by the position monitor.
func (s *SystemState) RecordClose(realizedPnL float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cumulativePnL += realizedPnL
	if s.openPositions > 0 {
		s.openPositions--
	}
	if realizedPnL >= 0 {
		s.wins++
	} else {
		s.losses++
		s.lastLossAt = s.now()
	}
}

// OpenPositions returns the current open-position count.
func (s *SystemState) OpenPositions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openPositions
}

// ExecutionsInLastHour counts executions within the trailing hour and
// prunes older entries.
func (s *SystemState) ExecutionsInLastHour() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-time.Hour)
	kept := s.executedAt[:0]
	for _, t := range s.executedAt {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.executedAt = kept
	return len(kept)
}

// InLossCooldown reports whether a losing close happened within d.
func (s *SystemState) InLossCooldown(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lastLossAt.IsZero() && s.now().Sub(s.lastLossAt) < d
}

// SetMarketCondition records the current market condition.
func (s *SystemState) SetMarketCondition(c domain.MarketCondition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marketCondition = c
}

// MarketCondition returns the current market condition.
func (s *SystemState) MarketCondition() domain.MarketCondition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marketCondition
}

// Pause engages the circuit breaker until now+duration. Pausing an
// already-paused system only extends the window; it is otherwise a no-op.
func (s *SystemState) Pause(reason string, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	s.pauseReason = reason
	until := s.now().Add(duration)
	if until.After(s.resumeAt) {
		s.resumeAt = until
	}
}

// Resume clears the circuit breaker unconditionally. Resuming an
// already-active system is a no-op.
func (s *SystemState) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	s.pauseReason = ""
	s.resumeAt = time.Time{}
}

// Paused reports whether new approvals are blocked. An elapsed resume
// deadline clears the pause lazily.
func (s *SystemState) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pausedLocked()
}

// pausedLocked checks the pause flag under s.mu, applying the time-based
// reset.
func (s *SystemState) pausedLocked() bool {
	if !s.paused {
		return false
	}
	if !s.resumeAt.IsZero() && !s.now().Before(s.resumeAt) {
		s.paused = false
		s.pauseReason = ""
		s.resumeAt = time.Time{}
		return false
	}
	return true
}
