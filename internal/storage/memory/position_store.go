package memory

import (
	"context"
	"sort"
	"sync"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by position id
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Upsert writes the snapshot, inserting or replacing by position id.
func (s *PositionStore) Upsert(_ context.Context, p *domain.Position) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	cp.TakeProfitLevels = append([]domain.TakeProfitLevel(nil), p.TakeProfitLevels...)
	s.data[p.ID] = &cp
	return nil
}

// GetByID retrieves a position by id. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(_ context.Context, id string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *p
	cp.TakeProfitLevels = append([]domain.TakeProfitLevel(nil), p.TakeProfitLevels...)
	return &cp, nil
}

// LoadOpen retrieves every position not yet closed.
func (s *PositionStore) LoadOpen(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Position
	for _, p := range s.data {
		if p.Status == domain.PositionClosed {
			continue
		}
		cp := *p
		cp.TakeProfitLevels = append([]domain.TakeProfitLevel(nil), p.TakeProfitLevels...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryAt.Before(out[j].EntryAt) })
	return out, nil
}
