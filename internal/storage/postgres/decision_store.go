package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/storage"
)

// DecisionStore implements storage.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

// Insert adds a new decision. Returns ErrDuplicateKey if a decision for
// the same signal_id exists.
func (s *DecisionStore) Insert(ctx context.Context, d *domain.AgentDecision) error {
	query := `
		INSERT INTO agent_decisions (
			signal_id, token, approved, risk_score, capital, reason, action, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		d.SignalID,
		d.Token,
		d.Approved,
		d.RiskScore,
		d.Capital,
		d.Reason,
		string(d.Action),
		d.DecidedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// GetBySignalID retrieves the decision for a signal. Returns ErrNotFound
// if not exists.
func (s *DecisionStore) GetBySignalID(ctx context.Context, signalID string) (*domain.AgentDecision, error) {
	query := `
		SELECT signal_id, token, approved, risk_score, capital, reason, action, decided_at
		FROM agent_decisions
		WHERE signal_id = $1
	`

	row := s.pool.QueryRow(ctx, query, signalID)
	d, err := scanDecision(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get decision by signal id: %w", err)
	}
	return d, nil
}

// GetByToken retrieves all decisions for a token, ordered by decided_at ASC.
func (s *DecisionStore) GetByToken(ctx context.Context, token string) ([]*domain.AgentDecision, error) {
	query := `
		SELECT signal_id, token, approved, risk_score, capital, reason, action, decided_at
		FROM agent_decisions
		WHERE token = $1
		ORDER BY decided_at ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("get decisions by token: %w", err)
	}
	defer rows.Close()

	var decisions []*domain.AgentDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		decisions = append(decisions, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision rows: %w", err)
	}

	return decisions, nil
}

// scanDecision scans a single row into an AgentDecision.
func scanDecision(row pgx.Row) (*domain.AgentDecision, error) {
	var d domain.AgentDecision
	var actionStr string

	err := row.Scan(
		&d.SignalID,
		&d.Token,
		&d.Approved,
		&d.RiskScore,
		&d.Capital,
		&d.Reason,
		&actionStr,
		&d.DecidedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Action = domain.Action(actionStr)
	return &d, nil
}
