package cases

import (
	"context"
	"time"

	"beacon/pkg/domain"
)

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	ReporterID  *domain.UserID
	ResponderID *domain.ResponderID
	Status      *domain.CaseStatus
	Limit       int
}

// Store is the case persistence contract.
//
// Update is a conditional write: it succeeds only when the stored version
// still equals expectedVersion, bumping the version by one, and returns
// sentinel.ErrConflict otherwise. That makes every state mutation a
// compare-and-swap and surfaces racing writers instead of silently losing
// one of them.
type Store interface {
	// NextSequence allocates the next per-day case number used in the
	// human-readable case uid. Allocation is atomic per day.
	NextSequence(ctx context.Context, day time.Time) (int, error)

	Create(ctx context.Context, c Case) error
	Get(ctx context.Context, id domain.CaseID) (Case, error)
	List(ctx context.Context, filter Filter) ([]Case, error)
	Update(ctx context.Context, c Case, expectedVersion int) error
}

// VerificationStore persists successful responder verifications.
type VerificationStore interface {
	Create(ctx context.Context, v ResponderVerification) error
	ListByCase(ctx context.Context, caseID domain.CaseID) ([]ResponderVerification, error)
}
