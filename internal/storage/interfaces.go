package storage

import (
	"context"

	"sol-swarm/internal/domain"
)

// DecisionStore provides access to agent_decisions storage.
// A signal has at most one decision: signal_id is the unique key.
type DecisionStore interface {
	// Insert adds a new decision. Returns ErrDuplicateKey if a decision
	// for the same signal_id exists.
	Insert(ctx context.Context, d *domain.AgentDecision) error

	// GetBySignalID retrieves the decision for a signal.
	// Returns ErrNotFound if not exists.
	GetBySignalID(ctx context.Context, signalID string) (*domain.AgentDecision, error)

	// GetByToken retrieves all decisions for a token, ordered by
	// decided_at ASC.
	GetByToken(ctx context.Context, token string) ([]*domain.AgentDecision, error)
}

// PositionStore provides access to trading_positions storage.
type PositionStore interface {
	// Insert adds a new open position. Returns ErrDuplicateKey if
	// position_id exists.
	Insert(ctx context.Context, p *domain.TradingPosition) error

	// GetByID retrieves a position by its ID. Returns ErrNotFound if not
	// exists.
	GetByID(ctx context.Context, positionID string) (*domain.TradingPosition, error)

	// GetOpen retrieves all positions with status OPEN, ordered by
	// opened_at ASC.
	GetOpen(ctx context.Context) ([]*domain.TradingPosition, error)

	// Close marks a position terminal with its exit fields. Returns
	// ErrNotFound if the position does not exist and ErrAlreadyClosed if
	// it is already terminal; in neither case is anything overwritten.
	Close(ctx context.Context, positionID string, status domain.PositionStatus, exitPrice, realizedPnL float64, closedAt int64) error
}

// EvaluationLogStore provides access to the append-only evaluation log.
type EvaluationLogStore interface {
	// Insert adds a new evaluation record. Returns ErrDuplicateKey if
	// signal_id exists.
	Insert(ctx context.Context, r *domain.EvaluationRecord) error

	// GetByToken retrieves all records for a token, ordered by
	// evaluated_at ASC.
	GetByToken(ctx context.Context, token string) ([]*domain.EvaluationRecord, error)
}
