// Package location provides the nearest-responder lookup consumed by
// auto-assignment. Absence of a match is a normal outcome, not an error;
// callers bound lookups with a context timeout and degrade to leaving the
// case pending.
package location

import (
	"context"

	"beacon/internal/responders"
	"beacon/pkg/domain"
)

// Locator finds the nearest assignable responder covering an incident type.
// A nil responder with nil error means no match within service range.
type Locator interface {
	FindNearest(ctx context.Context, loc domain.Location, incidentType domain.IncidentType) (*responders.Responder, error)
}
