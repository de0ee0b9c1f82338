package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/storage"
)

func createTestPosition(id string, openedAt int64) *domain.TradingPosition {
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

func TestPositionStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(pool)

	position := createTestPosition("pos-001", 1704067200000)

	err := store.Insert(ctx, position)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "pos-001")
	require.NoError(t, err)

	assert.Equal(t, position.PositionID, retrieved.PositionID)
	assert.Equal(t, position.Token, retrieved.Token)
	assert.InDelta(t, position.EntryPrice, retrieved.EntryPrice, 1e-9)
	assert.InDelta(t, position.Quantity, retrieved.Quantity, 0.01)
	assert.InDelta(t, position.Capital, retrieved.Capital, 0.0001)
	assert.Equal(t, position.OpenedAt, retrieved.OpenedAt)
	assert.Equal(t, domain.PositionOpen, retrieved.Status)
}

func TestPositionStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPositionStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPositionStore_Insert_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(pool)

	require.NoError(t, store.Insert(ctx, createTestPosition("pos-001", 100)))

	err := store.Insert(ctx, createTestPosition("pos-001", 200))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPositionStore_GetOpen(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(pool)

	require.NoError(t, store.Insert(ctx, createTestPosition("pos-002", 200)))
	require.NoError(t, store.Insert(ctx, createTestPosition("pos-001", 100)))
	require.NoError(t, store.Insert(ctx, createTestPosition("pos-003", 300)))
	require.NoError(t, store.Close(ctx, "pos-003", domain.PositionClosedManual, 0.0005, 10, 400))

	open, err := store.GetOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)

	assert.Equal(t, "pos-001", open[0].PositionID)
	assert.Equal(t, "pos-002", open[1].PositionID)
}

func TestPositionStore_Close(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(pool)

	require.NoError(t, store.Insert(ctx, createTestPosition("pos-001", 100)))

	err := store.Close(ctx, "pos-001", domain.PositionClosedTakeProfit, 0.0006, 294.25, 500)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "pos-001")
	require.NoError(t, err)

	assert.Equal(t, domain.PositionClosedTakeProfit, retrieved.Status)
	assert.InDelta(t, 0.0006, retrieved.ExitPrice, 1e-9)
	assert.InDelta(t, 294.25, retrieved.RealizedPnL, 0.0001)
	assert.Equal(t, int64(500), retrieved.ClosedAt)
}

func TestPositionStore_Close_ExactlyOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(pool)

	require.NoError(t, store.Insert(ctx, createTestPosition("pos-001", 100)))
	require.NoError(t, store.Close(ctx, "pos-001", domain.PositionClosedStopLoss, 0.0004, -120, 500))

	err := store.Close(ctx, "pos-001", domain.PositionClosedTimeout, 0.0005, 10, 600)
	assert.ErrorIs(t, err, storage.ErrAlreadyClosed)

	// First close's fields stand.
	retrieved, err := store.GetByID(ctx, "pos-001")
	require.NoError(t, err)
	assert.Equal(t, domain.PositionClosedStopLoss, retrieved.Status)
	assert.InDelta(t, -120.0, retrieved.RealizedPnL, 0.0001)
}

func TestPositionStore_Close_Errors(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(pool)

	err := store.Close(ctx, "missing", domain.PositionClosedManual, 1, 0, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Insert(ctx, createTestPosition("pos-001", 100)))
	err = store.Close(ctx, "pos-001", domain.PositionOpen, 1, 0, 1)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
