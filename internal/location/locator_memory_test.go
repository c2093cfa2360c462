package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/responders"
	"beacon/pkg/domain"
)

// Coordinates around central Berlin; distances small enough that the
// haversine approximation is exact for test purposes.
var (
	alexanderplatz = domain.Location{Lat: 52.5219, Lng: 13.4132}
	tiergarten     = domain.Location{Lat: 52.5145, Lng: 13.3501} // ~4.3 km away
	potsdam        = domain.Location{Lat: 52.3906, Lng: 13.0645} // ~28 km away
)

func seedResponder(t *testing.T, store *responders.InMemoryStore, loc domain.Location, radiusKm float64, types ...domain.IncidentType) responders.Responder {
	t.Helper()
	r := responders.Responder{
		ID:              domain.NewResponderID(),
		UserID:          domain.NewUserID(),
		Name:            "unit",
		Role:            domain.RoleResponder,
		Active:          true,
		IncidentTypes:   types,
		LastLocation:    &loc,
		ServiceRadiusKm: radiusKm,
	}
	require.NoError(t, store.Save(context.Background(), r))
	return r
}

func TestMemoryLocator_PicksNearestMatching(t *testing.T) {
	store := responders.NewInMemoryStore()
	locator := NewMemoryLocator(store)

	near := seedResponder(t, store, tiergarten, 50, domain.IncidentMedical)
	seedResponder(t, store, potsdam, 50, domain.IncidentMedical)

	got, err := locator.FindNearest(context.Background(), alexanderplatz, domain.IncidentMedical)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, near.ID, got.ID)
}

func TestMemoryLocator_NoMatchIsNotAnError(t *testing.T) {
	store := responders.NewInMemoryStore()
	locator := NewMemoryLocator(store)

	got, err := locator.FindNearest(context.Background(), alexanderplatz, domain.IncidentFire)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryLocator_RespectsServiceRadius(t *testing.T) {
	store := responders.NewInMemoryStore()
	locator := NewMemoryLocator(store)

	// ~4.3 km away but only covers 2 km.
	seedResponder(t, store, tiergarten, 2, domain.IncidentPolice)

	got, err := locator.FindNearest(context.Background(), alexanderplatz, domain.IncidentPolice)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryLocator_FiltersInactiveAndWrongType(t *testing.T) {
	store := responders.NewInMemoryStore()
	locator := NewMemoryLocator(store)

	inactive := seedResponder(t, store, tiergarten, 50, domain.IncidentMedical)
	inactive.Active = false
	require.NoError(t, store.Save(context.Background(), inactive))

	seedResponder(t, store, tiergarten, 50, domain.IncidentFire)

	got, err := locator.FindNearest(context.Background(), alexanderplatz, domain.IncidentMedical)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryLocator_CancelledContext(t *testing.T) {
	store := responders.NewInMemoryStore()
	locator := NewMemoryLocator(store)
	seedResponder(t, store, tiergarten, 50, domain.IncidentMedical)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := locator.FindNearest(ctx, alexanderplatz, domain.IncidentMedical)
	require.Error(t, err)
}

func TestHaversineKm(t *testing.T) {
	// Alexanderplatz to Tiergarten is roughly 4.3 km.
	d := haversineKm(alexanderplatz, tiergarten)
	assert.InDelta(t, 4.3, d, 0.5)

	// Zero distance.
	assert.InDelta(t, 0, haversineKm(alexanderplatz, alexanderplatz), 1e-9)
}
