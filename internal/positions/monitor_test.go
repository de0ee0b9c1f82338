package positions

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"sol-swarm/internal/config"
	"sol-swarm/internal/domain"
	"sol-swarm/internal/state"
	"sol-swarm/internal/storage"
	"sol-swarm/internal/storage/memory"
)

func newTestMonitor(t *testing.T, cfg config.Config, now func() time.Time) (*Monitor, *state.SystemState, *memory.PositionStore) {
	t.Helper()
	st := state.NewWithClock(now)
	store := memory.NewPositionStore()
	m := NewWithClock(cfg, st, store, nil, now)
	return m, st, store
}

func openPosition(t *testing.T, m *Monitor, st *state.SystemState, id, token string, entry, capital float64, openedAt time.Time) {
	t.Helper()
	err := m.Register(context.Background(), &domain.TradingPosition{
		PositionID: id,
		Token:      token,
		EntryPrice: entry,
		Quantity:   capital / entry,
		Capital:    capital,
		OpenedAt:   openedAt.UnixMilli(),
		Status:     domain.PositionOpen,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	st.RecordExecution()
}

func TestRegister_DuplicateRejected(t *testing.T) {
	now := time.Now()
	m, st, _ := newTestMonitor(t, config.Default(), func() time.Time { return now })

	openPosition(t, m, st, "pos1", "TOK", 1.0, 1000, now)

	err := m.Register(context.Background(), &domain.TradingPosition{
		PositionID: "pos1", Token: "TOK", EntryPrice: 1.0, Quantity: 1000,
		Capital: 1000, OpenedAt: now.UnixMilli(), Status: domain.PositionOpen,
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
	if m.OpenCount() != 1 {
		t.Errorf("OpenCount = %d, want 1", m.OpenCount())
	}
}

func TestTick_StopLoss(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	m, st, store := newTestMonitor(t, cfg, func() time.Time { return now })

	openPosition(t, m, st, "pos1", "TOK", 1.0, 1000, now)

	// -6% trips the -5% stop.
	closed := m.Tick(context.Background(), map[string]float64{"TOK": 0.94})
	if len(closed) != 1 {
		t.Fatalf("closed %d positions, want 1", len(closed))
	}
	if closed[0].Status != domain.PositionClosedStopLoss {
		t.Errorf("Status = %s, want %s", closed[0].Status, domain.PositionClosedStopLoss)
	}
	if closed[0].RealizedPnL >= 0 {
		t.Errorf("RealizedPnL = %v, want negative", closed[0].RealizedPnL)
	}

	stored, err := store.GetByID(context.Background(), "pos1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != domain.PositionClosedStopLoss {
		t.Errorf("stored Status = %s, want %s", stored.Status, domain.PositionClosedStopLoss)
	}
}

func TestTick_TakeProfit(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	m, st, _ := newTestMonitor(t, cfg, func() time.Time { return now })

	openPosition(t, m, st, "pos1", "TOK", 1.0, 1000, now)

	closed := m.Tick(context.Background(), map[string]float64{"TOK": 1.30})
	if len(closed) != 1 {
		t.Fatalf("closed %d positions, want 1", len(closed))
	}
	if closed[0].Status != domain.PositionClosedTakeProfit {
		t.Errorf("Status = %s, want %s", closed[0].Status, domain.PositionClosedTakeProfit)
	}

	// Gross 300 minus 0.25% fees on both notionals (1000 + 1300).
	wantPnL := 300 - 0.0025*(1000+1300)
	if math.Abs(closed[0].RealizedPnL-wantPnL) > 1e-9 {
		t.Errorf("RealizedPnL = %v, want %v", closed[0].RealizedPnL, wantPnL)
	}

	snap := st.Snapshot()
	if math.Abs(snap.CumulativePnL-wantPnL) > 1e-9 {
		t.Errorf("CumulativePnL = %v, want %v", snap.CumulativePnL, wantPnL)
	}
	if snap.OpenPositions != 0 {
		t.Errorf("OpenPositions = %d, want 0", snap.OpenPositions)
	}
}

func TestTick_Timeout(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	clock := func() time.Time { return now }
	m, st, _ := newTestMonitor(t, cfg, clock)

	openPosition(t, m, st, "pos1", "TOK", 1.0, 1000, now)

	// Flat price, still young: stays open.
	if closed := m.Tick(context.Background(), map[string]float64{"TOK": 1.01}); len(closed) != 0 {
		t.Fatalf("closed %d positions early", len(closed))
	}

	now = now.Add(cfg.MaxPositionAge + time.Minute)
	closed := m.Tick(context.Background(), map[string]float64{"TOK": 1.01})
	if len(closed) != 1 {
		t.Fatalf("closed %d positions, want 1", len(closed))
	}
	if closed[0].Status != domain.PositionClosedTimeout {
		t.Errorf("Status = %s, want %s", closed[0].Status, domain.PositionClosedTimeout)
	}
}

func TestTick_StopLossBeforeTimeout(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	m, st, _ := newTestMonitor(t, cfg, func() time.Time { return now })

	openPosition(t, m, st, "pos1", "TOK", 1.0, 1000, now)

	// Both the stop and the timeout apply; the stop is checked first.
	now = now.Add(cfg.MaxPositionAge + time.Minute)
	closed := m.Tick(context.Background(), map[string]float64{"TOK": 0.90})
	if len(closed) != 1 {
		t.Fatalf("closed %d positions, want 1", len(closed))
	}
	if closed[0].Status != domain.PositionClosedStopLoss {
		t.Errorf("Status = %s, want %s", closed[0].Status, domain.PositionClosedStopLoss)
	}
}

func TestTick_NoQuoteStillTimesOut(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	m, st, _ := newTestMonitor(t, cfg, func() time.Time { return now })

	openPosition(t, m, st, "pos1", "TOK", 1.0, 1000, now)

	now = now.Add(cfg.MaxPositionAge + time.Minute)
	closed := m.Tick(context.Background(), nil)
	if len(closed) != 1 {
		t.Fatalf("closed %d positions, want 1", len(closed))
	}
	if closed[0].Status != domain.PositionClosedTimeout {
		t.Errorf("Status = %s, want %s", closed[0].Status, domain.PositionClosedTimeout)
	}
	// Without a quote the exit fills at entry; only fees are lost.
	wantPnL := -0.0025 * 2000
	if math.Abs(closed[0].RealizedPnL-wantPnL) > 1e-9 {
		t.Errorf("RealizedPnL = %v, want %v", closed[0].RealizedPnL, wantPnL)
	}
}

func TestTick_UpdatesUnrealizedPnL(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	m, st, _ := newTestMonitor(t, cfg, func() time.Time { return now })

	openPosition(t, m, st, "pos1", "TOK", 1.0, 1000, now)

	m.Tick(context.Background(), map[string]float64{"TOK": 1.10})

	open := m.Open()
	if len(open) != 1 {
		t.Fatalf("open = %d, want 1", len(open))
	}
	if math.Abs(open[0].UnrealizedPnL-100) > 1e-9 {
		t.Errorf("UnrealizedPnL = %v, want 100", open[0].UnrealizedPnL)
	}
}

func TestClose_ExactlyOnce(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	m, st, _ := newTestMonitor(t, cfg, func() time.Time { return now })

	openPosition(t, m, st, "pos1", "TOK", 1.0, 1000, now)

	first := m.Tick(context.Background(), map[string]float64{"TOK": 0.90})
	if len(first) != 1 {
		t.Fatalf("first tick closed %d, want 1", len(first))
	}

	// The same prices again must not close or apply P&L twice.
	second := m.Tick(context.Background(), map[string]float64{"TOK": 0.90})
	if len(second) != 0 {
		t.Fatalf("second tick closed %d, want 0", len(second))
	}

	snap := st.Snapshot()
	if math.Abs(snap.CumulativePnL-first[0].RealizedPnL) > 1e-9 {
		t.Errorf("CumulativePnL = %v, want single application %v", snap.CumulativePnL, first[0].RealizedPnL)
	}
}

func TestCloseManual(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	m, st, _ := newTestMonitor(t, cfg, func() time.Time { return now })

	openPosition(t, m, st, "pos1", "TOK", 1.0, 1000, now)

	p, err := m.CloseManual(context.Background(), "pos1", 1.05)
	if err != nil {
		t.Fatalf("CloseManual failed: %v", err)
	}
	if p.Status != domain.PositionClosedManual {
		t.Errorf("Status = %s, want %s", p.Status, domain.PositionClosedManual)
	}

	if _, err := m.CloseManual(context.Background(), "pos1", 1.05); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second CloseManual err = %v, want ErrNotFound", err)
	}
}

func TestRestore_ReloadsOpenPositions(t *testing.T) {
	cfg := config.Default()
	now := time.Now()
	st := state.NewWithClock(func() time.Time { return now })
	store := memory.NewPositionStore()

	seed := &domain.TradingPosition{
		PositionID: "pos1", Token: "TOK", EntryPrice: 1.0, Quantity: 1000,
		Capital: 1000, OpenedAt: now.UnixMilli(), Status: domain.PositionOpen,
	}
	if err := store.Insert(context.Background(), seed); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	m := NewWithClock(cfg, st, store, nil, func() time.Time { return now })
	n, err := m.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if n != 1 || m.OpenCount() != 1 {
		t.Errorf("restored %d, tracking %d, want 1 and 1", n, m.OpenCount())
	}
}
