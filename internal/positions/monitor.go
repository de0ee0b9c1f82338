// Package positions tracks open trading positions and applies the exit
// rules on every price tick.
package positions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"sol-swarm/internal/config"
	"sol-swarm/internal/domain"
	"sol-swarm/internal/state"
	"sol-swarm/internal/storage"
)

// Monitor owns every open position from registration until its terminal
// transition. Exit checks run in a fixed order per tick: stop-loss,
// take-profit, then timeout. A position that trips several rules on the
// same tick closes under the first one checked.
type Monitor struct {
	cfg    config.Config
	state  *state.SystemState
	store  storage.PositionStore
	logger *log.Logger
	now    func() time.Time

	mu   sync.Mutex
	open map[string]*domain.TradingPosition
}

// New creates a position monitor backed by store.
func New(cfg config.Config, st *state.SystemState, store storage.PositionStore, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{
		cfg:    cfg,
		state:  st,
		store:  store,
		logger: logger,
		now:    time.Now,
		open:   make(map[string]*domain.TradingPosition),
	}
}

// NewWithClock is New with an injected clock, for tests.
func NewWithClock(cfg config.Config, st *state.SystemState, store storage.PositionStore, logger *log.Logger, now func() time.Time) *Monitor {
	m := New(cfg, st, store, logger)
	m.now = now
	return m
}

// Register persists a freshly opened position and starts tracking it.
// Returns storage.ErrDuplicateKey when the position ID is already
// registered.
func (m *Monitor) Register(ctx context.Context, p *domain.TradingPosition) error {
	if p == nil || p.PositionID == "" {
		return storage.ErrInvalidInput
	}
	if p.Status != domain.PositionOpen {
		return storage.ErrInvalidInput
	}

	m.mu.Lock()
	if _, exists := m.open[p.PositionID]; exists {
		m.mu.Unlock()
		return storage.ErrDuplicateKey
	}
	m.mu.Unlock()

	if err := m.store.Insert(ctx, p); err != nil {
		return fmt.Errorf("persist position %s: %w", p.PositionID, err)
	}

	cp := *p
	m.mu.Lock()
	m.open[p.PositionID] = &cp
	m.mu.Unlock()

	m.logger.Printf("position opened: id=%s token=%s entry=%.8f qty=%.6f capital=%.2f",
		p.PositionID, p.Token, p.EntryPrice, p.Quantity, p.Capital)
	return nil
}

// Restore reloads open positions from storage into the tracking map.
// Used at startup so a restart does not orphan open positions.
func (m *Monitor) Restore(ctx context.Context) (int, error) {
	open, err := m.store.GetOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("load open positions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range open {
		if _, exists := m.open[p.PositionID]; exists {
			continue
		}
		cp := *p
		m.open[p.PositionID] = &cp
	}
	return len(open), nil
}

// OpenCount returns the number of tracked open positions.
func (m *Monitor) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// Open returns copies of all tracked open positions.
func (m *Monitor) Open() []*domain.TradingPosition {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.TradingPosition, 0, len(m.open))
	for _, p := range m.open {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// Tick applies current prices to every tracked position. Positions whose
// token has no price in the map keep their previous unrealized P&L and
// are still subject to the timeout rule. Returns the positions closed on
// this tick.
func (m *Monitor) Tick(ctx context.Context, prices map[string]float64) []*domain.TradingPosition {
	now := m.now()

	m.mu.Lock()
	tracked := make([]*domain.TradingPosition, 0, len(m.open))
	for _, p := range m.open {
		tracked = append(tracked, p)
	}
	m.mu.Unlock()

	var closed []*domain.TradingPosition
	for _, p := range tracked {
		price, ok := prices[p.Token]
		if ok {
			m.mu.Lock()
			p.UnrealizedPnL = p.Quantity * (price - p.EntryPrice)
			m.mu.Unlock()
		} else {
			// No quote this tick: exit checks fall back to entry price so
			// the timeout rule still fires.
			price = p.EntryPrice
		}

		status := m.exitStatus(p, price, ok, now)
		if status == domain.PositionOpen {
			continue
		}

		if out := m.close(ctx, p, status, price, now); out != nil {
			closed = append(closed, out)
		}
	}
	return closed
}

// exitStatus decides the terminal status for a position at price, or
// PositionOpen when no rule fires. hasQuote gates the price-based rules.
func (m *Monitor) exitStatus(p *domain.TradingPosition, price float64, hasQuote bool, now time.Time) domain.PositionStatus {
	if hasQuote {
		change := p.PctChange(price)
		if change <= m.cfg.StopLossPct {
			return domain.PositionClosedStopLoss
		}
		if change >= m.cfg.TakeProfitPct {
			return domain.PositionClosedTakeProfit
		}
	}

	age := now.Sub(time.UnixMilli(p.OpenedAt))
	if age >= m.cfg.MaxPositionAge {
		return domain.PositionClosedTimeout
	}
	return domain.PositionOpen
}

// CloseManual force-closes a tracked position at the given price.
// Returns storage.ErrNotFound if the position is not tracked.
func (m *Monitor) CloseManual(ctx context.Context, positionID string, price float64) (*domain.TradingPosition, error) {
	m.mu.Lock()
	p, ok := m.open[positionID]
	m.mu.Unlock()
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := m.close(ctx, p, domain.PositionClosedManual, price, m.now())
	if out == nil {
		return nil, storage.ErrAlreadyClosed
	}
	return out, nil
}

// close performs the terminal transition: exactly one realized P&L
// application per position, even if storage reports the position already
// closed by a concurrent path.
func (m *Monitor) close(ctx context.Context, p *domain.TradingPosition, status domain.PositionStatus, exitPrice float64, now time.Time) *domain.TradingPosition {
	m.mu.Lock()
	tracked, ok := m.open[p.PositionID]
	if !ok || tracked.Status.Terminal() {
		m.mu.Unlock()
		return nil
	}
	// Claim the transition before releasing the lock so a concurrent
	// closer backs off.
	tracked.Status = status
	m.mu.Unlock()

	realized := m.realizedPnL(p, exitPrice)
	closedAt := now.UnixMilli()

	err := m.store.Close(ctx, p.PositionID, status, exitPrice, realized, closedAt)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrAlreadyClosed):
		// Another path already closed it in storage; drop tracking
		// without double-applying P&L.
		m.forget(p.PositionID)
		return nil
	default:
		// Revert the claim so the next tick retries.
		m.mu.Lock()
		tracked.Status = domain.PositionOpen
		m.mu.Unlock()
		m.logger.Printf("close position %s failed: %v", p.PositionID, err)
		return nil
	}

	m.state.RecordClose(realized)
	m.forget(p.PositionID)

	cp := *tracked
	cp.ExitPrice = exitPrice
	cp.RealizedPnL = realized
	cp.ClosedAt = closedAt
	cp.UnrealizedPnL = 0

	m.logger.Printf("position closed: id=%s token=%s status=%s exit=%.8f pnl=%.2f",
		cp.PositionID, cp.Token, cp.Status, exitPrice, realized)
	return &cp
}

// realizedPnL is gross P&L minus fees on both the entry and exit
// notionals.
func (m *Monitor) realizedPnL(p *domain.TradingPosition, exitPrice float64) float64 {
	gross := p.Quantity * (exitPrice - p.EntryPrice)
	feeRate := m.cfg.TradeFeePct / 100
	fees := feeRate * (p.Quantity*p.EntryPrice + p.Quantity*exitPrice)
	return gross - fees
}

func (m *Monitor) forget(positionID string) {
	m.mu.Lock()
	delete(m.open, positionID)
	m.mu.Unlock()
}
