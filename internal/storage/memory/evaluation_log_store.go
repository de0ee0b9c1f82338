package memory

import (
	"context"
	"sort"
	"sync"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/storage"
)

// EvaluationLogStore is an in-memory implementation of
// storage.EvaluationLogStore.
type EvaluationLogStore struct {
	mu   sync.RWMutex
	data map[string]*domain.EvaluationRecord // keyed by signal_id
}

// NewEvaluationLogStore creates a new in-memory evaluation log store.
func NewEvaluationLogStore() *EvaluationLogStore {
	return &EvaluationLogStore{
		data: make(map[string]*domain.EvaluationRecord),
	}
}

// Insert adds a new evaluation record. Returns ErrDuplicateKey if
// signal_id exists.
func (s *EvaluationLogStore) Insert(_ context.Context, r *domain.EvaluationRecord) error {
	if r == nil || r.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *r
	s.data[r.SignalID] = &recordCopy
	return nil
}

// GetByToken retrieves all records for a token, ordered by evaluated_at ASC.
func (s *EvaluationLogStore) GetByToken(_ context.Context, token string) ([]*domain.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EvaluationRecord
	for _, r := range s.data {
		if r.Token == token {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EvaluatedAt < result[j].EvaluatedAt
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.EvaluationLogStore = (*EvaluationLogStore)(nil)
