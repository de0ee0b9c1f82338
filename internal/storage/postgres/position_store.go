package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new open position. Returns ErrDuplicateKey if
// position_id exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.TradingPosition) error {
	query := `
		INSERT INTO trading_positions (
			position_id, token, entry_price, quantity, capital, opened_at,
			status, unrealized_pnl, exit_price, realized_pnl, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PositionID,
		p.Token,
		p.EntryPrice,
		p.Quantity,
		p.Capital,
		p.OpenedAt,
		string(p.Status),
		p.UnrealizedPnL,
		p.ExitPrice,
		p.RealizedPnL,
		p.ClosedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not
// exists.
func (s *PositionStore) GetByID(ctx context.Context, positionID string) (*domain.TradingPosition, error) {
	query := `
		SELECT position_id, token, entry_price, quantity, capital, opened_at,
		       status, unrealized_pnl, exit_price, realized_pnl, closed_at
		FROM trading_positions
		WHERE position_id = $1
	`

	row := s.pool.QueryRow(ctx, query, positionID)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// GetOpen retrieves all positions with status OPEN, ordered by opened_at ASC.
func (s *PositionStore) GetOpen(ctx context.Context) ([]*domain.TradingPosition, error) {
	query := `
		SELECT position_id, token, entry_price, quantity, capital, opened_at,
		       status, unrealized_pnl, exit_price, realized_pnl, closed_at
		FROM trading_positions
		WHERE status = $1
		ORDER BY opened_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.PositionOpen))
	if err != nil {
		return nil, fmt.Errorf("get open positions: %w", err)
	}
	defer rows.Close()

	var positions []*domain.TradingPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}

	return positions, nil
}

// Close marks a position terminal with its exit fields. The guard on the
// current status makes the terminal transition exactly-once even under
// concurrent closers.
func (s *PositionStore) Close(ctx context.Context, positionID string, status domain.PositionStatus, exitPrice, realizedPnL float64, closedAt int64) error {
	if !status.Terminal() {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE trading_positions
		SET status = $2, exit_price = $3, realized_pnl = $4, closed_at = $5
		WHERE position_id = $1 AND status = $6
	`

	tag, err := s.pool.Exec(ctx, query,
		positionID,
		string(status),
		exitPrice,
		realizedPnL,
		closedAt,
		string(domain.PositionOpen),
	)
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish missing from already-terminal.
		if _, err := s.GetByID(ctx, positionID); err != nil {
			return err
		}
		return storage.ErrAlreadyClosed
	}
	return nil
}

// scanPosition scans a single row into a TradingPosition.
func scanPosition(row pgx.Row) (*domain.TradingPosition, error) {
	var p domain.TradingPosition
	var statusStr string

	err := row.Scan(
		&p.PositionID,
		&p.Token,
		&p.EntryPrice,
		&p.Quantity,
		&p.Capital,
		&p.OpenedAt,
		&statusStr,
		&p.UnrealizedPnL,
		&p.ExitPrice,
		&p.RealizedPnL,
		&p.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PositionStatus(statusStr)
	return &p, nil
}
