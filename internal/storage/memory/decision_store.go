package memory

import (
	"context"
	"sort"
	"sync"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/storage"
)

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AgentDecision // keyed by signal_id
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data: make(map[string]*domain.AgentDecision),
	}
}

// Insert adds a new decision. Returns ErrDuplicateKey if a decision for
// the same signal_id exists.
func (s *DecisionStore) Insert(_ context.Context, d *domain.AgentDecision) error {
	if d == nil || d.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	decisionCopy := *d
	s.data[d.SignalID] = &decisionCopy
	return nil
}

// GetBySignalID retrieves the decision for a signal. Returns ErrNotFound
// if not exists.
func (s *DecisionStore) GetBySignalID(_ context.Context, signalID string) (*domain.AgentDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	decisionCopy := *d
	return &decisionCopy, nil
}

// GetByToken retrieves all decisions for a token, ordered by decided_at ASC.
func (s *DecisionStore) GetByToken(_ context.Context, token string) ([]*domain.AgentDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AgentDecision
	for _, d := range s.data {
		if d.Token == token {
			decisionCopy := *d
			result = append(result, &decisionCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DecidedAt < result[j].DecidedAt
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.DecisionStore = (*DecisionStore)(nil)
