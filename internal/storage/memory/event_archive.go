package memory

import (
	"context"
	"sort"
	"sync"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/storage"
)

// EventArchive is an in-memory implementation of storage.EventArchive.
type EventArchive struct {
	mu     sync.RWMutex
	events []domain.PipelineEvent
}

// NewEventArchive creates a new in-memory event archive.
func NewEventArchive() *EventArchive {
	return &EventArchive{}
}

// Compile-time interface check.
var _ storage.EventArchive = (*EventArchive)(nil)

// Append writes a batch of events.
func (s *EventArchive) Append(_ context.Context, events []*domain.PipelineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range events {
		if ev == nil {
			return storage.ErrInvalidInput
		}
		s.events = append(s.events, *ev)
	}
	return nil
}

// GetByMint retrieves archived events for a mint, ordered by time ASC.
func (s *EventArchive) GetByMint(_ context.Context, mint string) ([]*domain.PipelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PipelineEvent
	for i := range s.events {
		if s.events[i].Mint == mint {
			cp := s.events[i]
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}
