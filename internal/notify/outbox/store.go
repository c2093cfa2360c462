// Package outbox implements the transactional outbox the notification
// worker drains. Events are enqueued inside the same transaction as the
// case mutation that caused them; the broker hears about them afterwards.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one queued notification event.
type Entry struct {
	ID          uuid.UUID
	EventType   string
	AggregateID string
	Payload     []byte
	Attempts    int
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// Store is the outbox persistence contract.
type Store interface {
	// Enqueue appends an entry; it joins an ambient transaction when one
	// is present in the context.
	Enqueue(ctx context.Context, entry Entry) error
	// FetchUnpublished returns up to limit unpublished entries, oldest
	// first.
	FetchUnpublished(ctx context.Context, limit int) ([]Entry, error)
	// MarkPublished records successful delivery to the broker.
	MarkPublished(ctx context.Context, id uuid.UUID) error
	// MarkAttempt bumps the attempt counter after a failed publish.
	MarkAttempt(ctx context.Context, id uuid.UUID) error
}
