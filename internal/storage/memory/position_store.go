package memory

import (
	"context"
	"sort"
	"sync"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradingPosition // keyed by position_id
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.TradingPosition),
	}
}

// Insert adds a new open position. Returns ErrDuplicateKey if
// position_id exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.TradingPosition) error {
	if p == nil || p.PositionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; exists {
		return storage.ErrDuplicateKey
	}

	positionCopy := *p
	s.data[p.PositionID] = &positionCopy
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not
// exists.
func (s *PositionStore) GetByID(_ context.Context, positionID string) (*domain.TradingPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[positionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	positionCopy := *p
	return &positionCopy, nil
}

// GetOpen retrieves all positions with status OPEN, ordered by opened_at ASC.
func (s *PositionStore) GetOpen(_ context.Context) ([]*domain.TradingPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradingPosition
	for _, p := range s.data {
		if p.Status == domain.PositionOpen {
			positionCopy := *p
			result = append(result, &positionCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenedAt < result[j].OpenedAt
	})

	return result, nil
}

// Close marks a position terminal with its exit fields. Returns
// ErrNotFound if the position does not exist and ErrAlreadyClosed if it
// is already terminal.
func (s *PositionStore) Close(_ context.Context, positionID string, status domain.PositionStatus, exitPrice, realizedPnL float64, closedAt int64) error {
	if !status.Terminal() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[positionID]
	if !exists {
		return storage.ErrNotFound
	}
	if p.Status.Terminal() {
		return storage.ErrAlreadyClosed
	}

	p.Status = status
	p.ExitPrice = exitPrice
	p.RealizedPnL = realizedPnL
	p.ClosedAt = closedAt
	return nil
}

// Verify interface compliance at compile time.
var _ storage.PositionStore = (*PositionStore)(nil)
