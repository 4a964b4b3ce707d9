package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	audit "communiserver/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[uuid.UUID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[uuid.UUID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ActorID] = append(s.events[event.ActorID], event)
	return nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actorID uuid.UUID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[actorID]...), nil
}

// ListRecent returns the most recent events across all actors, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, actorEvents := range s.events {
		all = append(all, actorEvents...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

var _ audit.Store = (*InMemoryStore)(nil)
