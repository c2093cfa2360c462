// Package worker drains the notification outbox in the background. Publish
// failures never propagate to the request path; entries stay queued and are
// retried on later rounds, with a circuit breaker keeping a dead broker
// from being hammered.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"beacon/internal/notify/outbox"
	"beacon/pkg/platform/circuit"
)

var (
	publishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_notifications_published_total",
		Help: "Outbox entries successfully published to the broker",
	})
	publishFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_notifications_publish_failed_total",
		Help: "Outbox publish attempts that failed",
	})
)

// Publisher is the broker-facing half the worker drives.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Worker polls the outbox and publishes pending entries.
type Worker struct {
	store     outbox.Store
	publisher Publisher
	logger    *slog.Logger
	breaker   *circuit.Breaker
	interval  time.Duration
	batchSize int
}

// New creates a worker polling at the given interval.
func New(store outbox.Store, publisher Publisher, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Worker{
		store:     store,
		publisher: publisher,
		logger:    logger,
		breaker:   circuit.New("notify-broker", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		interval:  interval,
		batchSize: 100,
	}
}

// Run drains the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain publishes one batch. All errors are logged and absorbed; the next
// round retries whatever is still unpublished.
func (w *Worker) drain(ctx context.Context) {
	entries, err := w.store.FetchUnpublished(ctx, w.batchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "fetch outbox entries", "error", err)
		return
	}

	for _, entry := range entries {
		if w.breaker.IsOpen() {
			// Probe with a single entry; leave the rest queued.
			w.tryPublish(ctx, entry)
			return
		}
		w.tryPublish(ctx, entry)
	}
}

func (w *Worker) tryPublish(ctx context.Context, entry outbox.Entry) {
	if err := w.publisher.Publish(ctx, entry.AggregateID, entry.Payload); err != nil {
		publishFailedTotal.Inc()
		_, change := w.breaker.RecordFailure()
		if change.Opened {
			w.logger.WarnContext(ctx, "notification breaker opened", "entry_id", entry.ID)
		}
		w.logger.ErrorContext(ctx, "publish notification",
			"entry_id", entry.ID,
			"event_type", entry.EventType,
			"attempts", entry.Attempts+1,
			"error", err,
		)
		if err := w.store.MarkAttempt(ctx, entry.ID); err != nil {
			w.logger.ErrorContext(ctx, "mark outbox attempt", "entry_id", entry.ID, "error", err)
		}
		return
	}

	publishedTotal.Inc()
	if _, change := w.breaker.RecordSuccess(); change.Closed {
		w.logger.InfoContext(ctx, "notification breaker closed")
	}
	if err := w.store.MarkPublished(ctx, entry.ID); err != nil {
		w.logger.ErrorContext(ctx, "mark outbox entry published", "entry_id", entry.ID, "error", err)
	}
}
