package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/notify"
	"beacon/internal/notify/outbox"
	"beacon/pkg/domain"
)

type fakePublisher struct {
	mu        sync.Mutex
	published [][]byte
	failLeft  int
}

func (f *fakePublisher) Publish(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLeft > 0 {
		f.failLeft--
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, payload)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enqueueEvent(t *testing.T, store outbox.Store) notify.Event {
	t.Helper()
	event := notify.NewEvent(notify.EventCaseCreated, domain.NewCaseID(), domain.FormatCaseUID(time.Now(), 1))
	d := notify.NewOutboxDispatcher(store)
	require.NoError(t, d.Notify(context.Background(), event))
	return event
}

func TestWorker_PublishesAndMarks(t *testing.T) {
	store := outbox.NewInMemoryStore()
	pub := &fakePublisher{}
	w := New(store, pub, testLogger(), time.Second)

	enqueueEvent(t, store)
	enqueueEvent(t, store)

	w.drain(context.Background())

	assert.Equal(t, 2, pub.count())
	pending, err := store.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWorker_FailureLeavesEntryQueued(t *testing.T) {
	store := outbox.NewInMemoryStore()
	pub := &fakePublisher{failLeft: 1}
	w := New(store, pub, testLogger(), time.Second)

	enqueueEvent(t, store)

	w.drain(context.Background())
	pending, err := store.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)

	// Next round succeeds and clears the queue.
	w.drain(context.Background())
	pending, err = store.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, 1, pub.count())
}

func TestWorker_OpenBreakerProbesSingleEntry(t *testing.T) {
	store := outbox.NewInMemoryStore()
	// Enough failures to trip the breaker (threshold 5).
	pub := &fakePublisher{failLeft: 5}
	w := New(store, pub, testLogger(), time.Second)

	for range 8 {
		enqueueEvent(t, store)
	}

	// First round: five failures open the breaker mid-batch.
	w.drain(context.Background())
	assert.True(t, w.breaker.IsOpen())

	// With the breaker open a round publishes at most one probe entry.
	before := pub.count()
	w.drain(context.Background())
	assert.LessOrEqual(t, pub.count()-before, 1)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	store := outbox.NewInMemoryStore()
	w := New(store, &fakePublisher{}, testLogger(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
