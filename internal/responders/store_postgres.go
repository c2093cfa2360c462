package responders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"beacon/internal/crypto/password"
	"beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
	txcontext "beacon/pkg/platform/tx"
)

// PostgresStore reads the responders table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL responder store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) rowQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ResponderID) (Responder, error) {
	query := `
		SELECT id, user_id, name, role, active, agency_id, station_id,
		       incident_types, service_radius_km,
		       shared_code_hash, shared_code_salt, shared_code_algorithm, shared_code_iterations,
		       ST_Y(last_location::geometry), ST_X(last_location::geometry)
		FROM responders
		WHERE id = $1
	`
	var (
		r                        Responder
		rID, rUser, rAgency, rSt uuid.UUID
		role                     string
		types                    []byte
		codeHash, codeSalt       sql.NullString
		codeAlg                  sql.NullString
		codeIters                sql.NullInt64
		lat, lng                 sql.NullFloat64
	)
	err := s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&rID, &rUser, &r.Name, &role, &r.Active, &rAgency, &rSt,
		&types, &r.ServiceRadiusKm,
		&codeHash, &codeSalt, &codeAlg, &codeIters,
		&lat, &lng,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Responder{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Responder{}, fmt.Errorf("query responder: %w", err)
	}

	r.ID = domain.ResponderID(rID)
	r.UserID = domain.UserID(rUser)
	r.AgencyID = domain.AgencyID(rAgency)
	r.StationID = domain.StationID(rSt)

	parsedRole, err := domain.ParseRole(role)
	if err != nil {
		return Responder{}, fmt.Errorf("parse responder role: %w", err)
	}
	r.Role = parsedRole

	if len(types) > 0 {
		var names []string
		if err := json.Unmarshal(types, &names); err != nil {
			return Responder{}, fmt.Errorf("unmarshal incident_types: %w", err)
		}
		for _, name := range names {
			it, err := domain.ParseIncidentType(name)
			if err != nil {
				return Responder{}, err
			}
			r.IncidentTypes = append(r.IncidentTypes, it)
		}
	}

	if codeHash.Valid && codeSalt.Valid && codeAlg.Valid && codeIters.Valid {
		r.SharedCode = &password.Hash{
			Hash:       codeHash.String,
			Salt:       codeSalt.String,
			Algorithm:  codeAlg.String,
			Iterations: int(codeIters.Int64),
		}
	}
	if lat.Valid && lng.Valid {
		loc, err := domain.ParseLocation(lat.Float64, lng.Float64, nil)
		if err != nil {
			return Responder{}, fmt.Errorf("parse responder location: %w", err)
		}
		r.LastLocation = &loc
	}
	return r, nil
}
