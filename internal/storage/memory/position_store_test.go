package memory

import (
	"context"
	"errors"
	"testing"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/storage"
)

func testPosition(id string, openedAt int64) *domain.TradingPosition {
	return &domain.TradingPosition{
		PositionID: id,
		Token:      "BONKX",
		EntryPrice: 0.00045,
		Quantity:   2222222.22,
		Capital:    1000,
		OpenedAt:   openedAt,
		Status:     domain.PositionOpen,
	}
}

func TestPositionStore_InsertAndGet(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	p := testPosition("pos1", 1704067200000)
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "pos1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Token != p.Token || got.EntryPrice != p.EntryPrice {
		t.Errorf("got %+v, want %+v", got, p)
	}

	// Stored copy is isolated from caller mutation.
	p.EntryPrice = 999
	again, _ := store.GetByID(ctx, "pos1")
	if again.EntryPrice == 999 {
		t.Error("store must hold a copy, not the caller's pointer")
	}
}

func TestPositionStore_DuplicateKey(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testPosition("pos1", 1)); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testPosition("pos1", 2)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestPositionStore_InvalidInput(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil insert err = %v, want ErrInvalidInput", err)
	}
	if err := store.Insert(ctx, testPosition("", 1)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty id err = %v, want ErrInvalidInput", err)
	}
}

func TestPositionStore_GetOpen(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	store.Insert(ctx, testPosition("pos2", 200))
	store.Insert(ctx, testPosition("pos1", 100))
	store.Insert(ctx, testPosition("pos3", 300))
	store.Close(ctx, "pos3", domain.PositionClosedManual, 1, 0, 400)

	open, err := store.GetOpen(ctx)
	if err != nil {
		t.Fatalf("GetOpen failed: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("len = %d, want 2", len(open))
	}
	if open[0].PositionID != "pos1" || open[1].PositionID != "pos2" {
		t.Errorf("not ordered by opened_at: %s, %s", open[0].PositionID, open[1].PositionID)
	}
}

func TestPositionStore_Close(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	store.Insert(ctx, testPosition("pos1", 100))

	err := store.Close(ctx, "pos1", domain.PositionClosedTakeProfit, 0.0006, 294.25, 500)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "pos1")
	if got.Status != domain.PositionClosedTakeProfit {
		t.Errorf("Status = %s, want %s", got.Status, domain.PositionClosedTakeProfit)
	}
	if got.ExitPrice != 0.0006 || got.RealizedPnL != 294.25 || got.ClosedAt != 500 {
		t.Errorf("exit fields not set: %+v", got)
	}
}

func TestPositionStore_CloseTwice(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	store.Insert(ctx, testPosition("pos1", 100))
	store.Close(ctx, "pos1", domain.PositionClosedStopLoss, 0.0004, -120, 500)

	err := store.Close(ctx, "pos1", domain.PositionClosedTimeout, 0.0005, 10, 600)
	if !errors.Is(err, storage.ErrAlreadyClosed) {
		t.Fatalf("err = %v, want ErrAlreadyClosed", err)
	}

	// First close's fields stand.
	got, _ := store.GetByID(ctx, "pos1")
	if got.Status != domain.PositionClosedStopLoss || got.RealizedPnL != -120 {
		t.Errorf("second close overwrote the first: %+v", got)
	}
}

func TestPositionStore_CloseErrors(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	if err := store.Close(ctx, "missing", domain.PositionClosedManual, 1, 0, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	store.Insert(ctx, testPosition("pos1", 100))
	if err := store.Close(ctx, "pos1", domain.PositionOpen, 1, 0, 1); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("non-terminal close err = %v, want ErrInvalidInput", err)
	}
}
