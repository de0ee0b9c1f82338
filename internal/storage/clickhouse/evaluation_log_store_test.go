package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/storage"
)

func createTestRecord(signalID, token string, evaluatedAt int64) *domain.EvaluationRecord {
	return &domain.EvaluationRecord{
		SignalID:       signalID,
		Token:          token,
		FinalStage:     domain.StageRejected,
		RejectedAt:     domain.StageValidated,
		Reason:         "honeypot risk",
		RiskScore:      100,
		SentimentScore: 0,
		DurationMs:     3,
		EvaluatedAt:    evaluatedAt,
	}
}

func TestEvaluationLogStore_InsertAndGetByToken(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEvaluationLogStore(conn)

	executed := createTestRecord("sig-002", "BONKX", 200)
	executed.FinalStage = domain.StageExecuted
	executed.RejectedAt = ""
	executed.Reason = ""
	executed.RiskScore = 32
	executed.SentimentScore = 0.85

	require.NoError(t, store.Insert(ctx, executed))
	require.NoError(t, store.Insert(ctx, createTestRecord("sig-001", "BONKX", 100)))
	require.NoError(t, store.Insert(ctx, createTestRecord("sig-003", "OTHER", 150)))

	records, err := store.GetByToken(ctx, "BONKX")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "sig-001", records[0].SignalID)
	assert.Equal(t, "sig-002", records[1].SignalID)

	assert.Equal(t, domain.StageRejected, records[0].FinalStage)
	assert.Equal(t, domain.StageValidated, records[0].RejectedAt)
	assert.Equal(t, "honeypot risk", records[0].Reason)
	assert.Equal(t, 100, records[0].RiskScore)

	assert.Equal(t, domain.StageExecuted, records[1].FinalStage)
	assert.Empty(t, records[1].RejectedAt)
	assert.Equal(t, 32, records[1].RiskScore)
	assert.InDelta(t, 0.85, records[1].SentimentScore, 0.0001)
}

func TestEvaluationLogStore_Insert_Duplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEvaluationLogStore(conn)

	require.NoError(t, store.Insert(ctx, createTestRecord("sig-001", "BONKX", 100)))

	err := store.Insert(ctx, createTestRecord("sig-001", "BONKX", 200))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestEvaluationLogStore_GetByToken_Empty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEvaluationLogStore(conn)

	records, err := store.GetByToken(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Empty(t, records)
}
