package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure EventStore implements the interface
var _ repositories.EventRepository = (*EventStore)(nil)

// EventStore is the in-memory event seen-set. Entries older than the
// window are pruned lazily on insert.
type EventStore struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

// NewEventStore creates an EventStore with the given dedup window
func NewEventStore(window time.Duration) *EventStore {
	return &EventStore{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// MarkSeen records the event id, reporting false when it was already
// recorded inside the window.
func (s *EventStore) MarkSeen(ctx context.Context, eventID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := at.Add(-s.window)
	for id, seenAt := range s.seen {
		if seenAt.Before(cutoff) {
			delete(s.seen, id)
		}
	}

	if _, ok := s.seen[eventID]; ok {
		return false, nil
	}
	s.seen[eventID] = at
	return true, nil
}

// Forget releases an event id so a redelivery can be applied
func (s *EventStore) Forget(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.seen, eventID)
	return nil
}
