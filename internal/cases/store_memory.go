package cases

import (
	"context"
	"sort"
	"sync"
	"time"

	"beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// InMemoryStore implements Store with a mutex-guarded map. The version
// check runs under the same lock as the write, giving the same
// compare-and-swap semantics as the conditional UPDATE in Postgres.
type InMemoryStore struct {
	mu        sync.RWMutex
	cases     map[domain.CaseID]Case
	sequences map[string]int
}

// NewInMemoryStore creates an empty in-memory case store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		cases:     make(map[domain.CaseID]Case),
		sequences: make(map[string]int),
	}
}

func (s *InMemoryStore) NextSequence(_ context.Context, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := day.UTC().Format("20060102")
	s.sequences[key]++
	return s.sequences[key], nil
}

func (s *InMemoryStore) Create(_ context.Context, c Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.cases[c.ID] = c
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.CaseID) (Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return Case{}, sentinel.ErrNotFound
	}
	return c, nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Case
	for _, c := range s.cases {
		if filter.ReporterID != nil && (c.ReporterID == nil || *c.ReporterID != *filter.ReporterID) {
			continue
		}
		if filter.ResponderID != nil && (c.AssignedResponderID == nil || *c.AssignedResponderID != *filter.ResponderID) {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, c Case, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.cases[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	c.Version = expectedVersion + 1
	s.cases[c.ID] = c
	return nil
}

// InMemoryVerificationStore persists verification records per case.
type InMemoryVerificationStore struct {
	mu      sync.RWMutex
	records map[domain.CaseID][]ResponderVerification
}

// NewInMemoryVerificationStore creates an empty verification store.
func NewInMemoryVerificationStore() *InMemoryVerificationStore {
	return &InMemoryVerificationStore{records: make(map[domain.CaseID][]ResponderVerification)}
}

func (s *InMemoryVerificationStore) Create(_ context.Context, v ResponderVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[v.CaseID] = append(s.records[v.CaseID], v)
	return nil
}

func (s *InMemoryVerificationStore) ListByCase(_ context.Context, caseID domain.CaseID) ([]ResponderVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ResponderVerification{}, s.records[caseID]...), nil
}
