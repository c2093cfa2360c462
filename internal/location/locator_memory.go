package location

import (
	"context"
	"math"

	"beacon/internal/responders"
	"beacon/pkg/domain"
)

// responderLister is the slice of the responder store the memory locator
// needs.
type responderLister interface {
	All(ctx context.Context) ([]responders.Responder, error)
}

// MemoryLocator scans the in-memory responder directory with a haversine
// distance check. Test and single-process implementation; production uses
// the PostGIS locator.
type MemoryLocator struct {
	store responderLister
}

// NewMemoryLocator creates a locator over the given responder lister.
func NewMemoryLocator(store responderLister) *MemoryLocator {
	return &MemoryLocator{store: store}
}

func (l *MemoryLocator) FindNearest(ctx context.Context, loc domain.Location, incidentType domain.IncidentType) (*responders.Responder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := l.store.All(ctx)
	if err != nil {
		return nil, err
	}

	var (
		best     *responders.Responder
		bestDist float64
	)
	for i := range all {
		r := all[i]
		if !r.Assignable() || !r.Handles(incidentType) || r.LastLocation == nil {
			continue
		}
		dist := haversineKm(loc, *r.LastLocation)
		if dist > r.ServiceRadiusKm {
			continue
		}
		if best == nil || dist < bestDist {
			best = &r
			bestDist = dist
		}
	}
	return best, nil
}

const earthRadiusKm = 6371.0

func haversineKm(a, b domain.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
