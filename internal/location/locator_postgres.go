package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"beacon/internal/responders"
	"beacon/pkg/domain"
)

// PostgresLocator queries the responders table with PostGIS. The coordinate
// is always bound as query parameters through ST_MakePoint, never
// interpolated into the SQL text.
type PostgresLocator struct {
	db    *sql.DB
	store *responders.PostgresStore
}

// NewPostgresLocator creates a PostGIS-backed locator.
func NewPostgresLocator(db *sql.DB, store *responders.PostgresStore) *PostgresLocator {
	return &PostgresLocator{db: db, store: store}
}

func (l *PostgresLocator) FindNearest(ctx context.Context, loc domain.Location, incidentType domain.IncidentType) (*responders.Responder, error) {
	// ST_DWithin prefilters by each responder's own service radius (meters)
	// using the geography cast, then the closest match wins.
	query := `
		SELECT id
		FROM responders
		WHERE active
		  AND role = 'responder'
		  AND last_location IS NOT NULL
		  AND incident_types @> $3::jsonb
		  AND ST_DWithin(
		        last_location,
		        ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
		        service_radius_km * 1000)
		ORDER BY last_location <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
		LIMIT 1
	`
	var id uuid.UUID
	err := l.db.QueryRowContext(ctx, query, loc.Lng, loc.Lat, fmt.Sprintf("[%q]", incidentType.String())).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nearest responder query: %w", err)
	}

	r, err := l.store.FindByID(ctx, domain.ResponderID(id))
	if err != nil {
		return nil, err
	}
	return &r, nil
}
