package clickhouse

import (
	"context"
	"fmt"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/storage"
)

// EvaluationLogStore implements storage.EvaluationLogStore using
// ClickHouse. The evaluation log is analytics data: append-only, queried
// offline, never the source of truth for positions or decisions.
type EvaluationLogStore struct {
	conn *Conn
}

// NewEvaluationLogStore creates a new EvaluationLogStore.
func NewEvaluationLogStore(conn *Conn) *EvaluationLogStore {
	return &EvaluationLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EvaluationLogStore = (*EvaluationLogStore)(nil)

// Insert adds a new evaluation record. Returns ErrDuplicateKey if
// signal_id exists.
func (s *EvaluationLogStore) Insert(ctx context.Context, r *domain.EvaluationRecord) error {
	exists, err := s.exists(ctx, r.SignalID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO evaluation_log (
			signal_id, token, final_stage, rejected_at, reason,
			risk_score, sentiment_score, duration_ms, evaluated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		r.SignalID,
		r.Token,
		r.FinalStage,
		r.RejectedAt,
		r.Reason,
		int32(r.RiskScore),
		r.SentimentScore,
		r.DurationMs,
		r.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation record: %w", err)
	}
	return nil
}

// GetByToken retrieves all records for a token, ordered by evaluated_at ASC.
func (s *EvaluationLogStore) GetByToken(ctx context.Context, token string) ([]*domain.EvaluationRecord, error) {
	query := `
		SELECT signal_id, token, final_stage, rejected_at, reason,
		       risk_score, sentiment_score, duration_ms, evaluated_at
		FROM evaluation_log
		WHERE token = ?
		ORDER BY evaluated_at ASC
	`

	rows, err := s.conn.Query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("get evaluation records by token: %w", err)
	}
	defer rows.Close()

	var records []*domain.EvaluationRecord
	for rows.Next() {
		var r domain.EvaluationRecord
		var riskScore int32

		err := rows.Scan(
			&r.SignalID,
			&r.Token,
			&r.FinalStage,
			&r.RejectedAt,
			&r.Reason,
			&riskScore,
			&r.SentimentScore,
			&r.DurationMs,
			&r.EvaluatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation row: %w", err)
		}

		r.RiskScore = int(riskScore)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluation rows: %w", err)
	}

	return records, nil
}

// exists checks whether a record with the given signal_id is present.
func (s *EvaluationLogStore) exists(ctx context.Context, signalID string) (bool, error) {
	query := `SELECT count() FROM evaluation_log WHERE signal_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, signalID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
