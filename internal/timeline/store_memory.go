package timeline

import (
	"context"
	"sync"

	"beacon/pkg/domain"
)

// InMemoryStore keeps timeline entries per case. Used in tests and
// single-process setups.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.CaseID][]Entry
}

// NewInMemoryStore creates an empty in-memory timeline store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[domain.CaseID][]Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.CaseID] = append(s.entries[entry.CaseID], entry)
	return nil
}

func (s *InMemoryStore) ListByCase(_ context.Context, caseID domain.CaseID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries[caseID]...), nil
}

// Clear drops all entries. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[domain.CaseID][]Entry)
}
