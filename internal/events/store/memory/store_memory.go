package memory

import (
	"context"
	"sync"

	"tessera/internal/events"
)

type InMemoryStore struct {
	mu  sync.RWMutex
	all []events.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = nil
}

func (s *InMemoryStore) Append(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, event)
	return nil
}

// List returns events whose subject matches, or every event when subject is
// empty. Order is insertion order.
func (s *InMemoryStore) List(_ context.Context, subject string) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if subject == "" {
		return append([]events.Event{}, s.all...), nil
	}
	var out []events.Event
	for _, e := range s.all {
		if string(e.Subject) == subject {
			out = append(out, e)
		}
	}
	return out, nil
}
