// Package noncestore provides consume-once storage for verification token
// nonces. Memory for single-instance deployments and tests, Redis for
// anything distributed.
package noncestore

import (
	"context"
	"sync"
	"time"

	"beacon/pkg/platform/sentinel"
)

// Memory is a mutex-guarded consume-once set with per-entry expiry.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemory creates an empty in-memory nonce store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// NewMemoryWithClock creates a store with an injected time source for tests.
func NewMemoryWithClock(now func() time.Time) *Memory {
	s := NewMemory()
	s.now = now
	return s
}

// Consume marks the nonce used, failing with sentinel.ErrAlreadyUsed when a
// live entry already exists. Check and set happen under one lock.
func (s *Memory) Consume(ctx context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, ok := s.entries[nonce]; ok && now.Before(expiry) {
		return sentinel.ErrAlreadyUsed
	}
	s.entries[nonce] = now.Add(ttl)
	s.sweep(now)
	return nil
}

// sweep drops expired entries. Called under the lock; the map stays bounded
// by the number of tokens minted per TTL window.
func (s *Memory) sweep(now time.Time) {
	for nonce, expiry := range s.entries {
		if now.After(expiry) {
			delete(s.entries, nonce)
		}
	}
}
