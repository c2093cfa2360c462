package timeline

import (
	"context"
	"time"

	"beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// Store is the persistence contract for timeline entries. Append-only: there
// is deliberately no update or delete.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByCase(ctx context.Context, caseID domain.CaseID) ([]Entry, error)
}

// Publisher records timeline entries. It uses the storage layer for
// persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

// NewPublisher creates a timeline publisher over the given store.
func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit appends one entry, stamping the time when the caller left it zero.
func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.CaseID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "timeline entry requires a case id")
	}
	if !entry.Action.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid timeline action")
	}
	if entry.Actor.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "timeline entry requires an actor")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return p.store.Append(ctx, entry)
}

// ListByCase returns a case's entries oldest first.
func (p *Publisher) ListByCase(ctx context.Context, caseID domain.CaseID) ([]Entry, error) {
	return p.store.ListByCase(ctx, caseID)
}
