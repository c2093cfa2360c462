// Package ratelimit guards case intake against panic-button spam with a
// sliding-window limiter keyed by reporting device.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result describes a limiter decision.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// Limiter is a sliding-window rate limiter. The window is evaluated over
// actual request timestamps, so bursts straddling a fixed-window boundary
// cannot double the effective limit.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
}

func (w *slidingWindow) cleanup(cutoff time.Time) {
	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept
}

// New builds a limiter allowing limit requests per window per key.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*slidingWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// NewWithClock builds a limiter with an injected time source, for tests.
func NewWithClock(limit int, window time.Duration, now func() time.Time) *Limiter {
	l := New(limit, window)
	l.now = now
	return l
}

// Allow records a request under key and reports whether it fits the window.
func (l *Limiter) Allow(_ context.Context, key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.buckets[key]
	if w == nil {
		w = &slidingWindow{}
		l.buckets[key] = w
	}
	w.cleanup(now.Add(-l.window))

	if len(w.timestamps)+1 > l.limit {
		return Result{
			Allowed: false,
			ResetAt: w.timestamps[0].Add(l.window),
			Limit:   l.limit,
		}
	}

	w.timestamps = append(w.timestamps, now)
	return Result{
		Allowed:   true,
		Remaining: l.limit - len(w.timestamps),
		ResetAt:   w.timestamps[0].Add(l.window),
		Limit:     l.limit,
	}
}

// Reset clears the window for a key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}
