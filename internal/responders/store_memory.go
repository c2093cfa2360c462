package responders

import (
	"context"
	"sync"

	"beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// Store is the read contract the lifecycle engine depends on.
type Store interface {
	FindByID(ctx context.Context, id domain.ResponderID) (Responder, error)
}

// InMemoryStore is a mutex-guarded responder directory for tests and
// single-process setups.
type InMemoryStore struct {
	mu         sync.RWMutex
	responders map[domain.ResponderID]Responder
}

// NewInMemoryStore creates an empty in-memory responder store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{responders: make(map[domain.ResponderID]Responder)}
}

// Save upserts a responder. Test seeding helper; production writes go
// through the rostering service, not this core.
func (s *InMemoryStore) Save(_ context.Context, r Responder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responders[r.ID] = r
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ResponderID) (Responder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.responders[id]
	if !ok {
		return Responder{}, sentinel.ErrNotFound
	}
	return r, nil
}

// All returns every stored responder. Used by the in-memory locator.
func (s *InMemoryStore) All(_ context.Context) ([]Responder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Responder, 0, len(s.responders))
	for _, r := range s.responders {
		out = append(out, r)
	}
	return out, nil
}
