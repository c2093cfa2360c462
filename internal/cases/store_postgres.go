package cases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
	txcontext "beacon/pkg/platform/tx"
)

// PostgresStore persists cases in the cases and case_sequences tables.
// Every mutation is a conditional write on version so racing writers
// surface as sentinel.ErrConflict instead of overwriting each other.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL case store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// NextSequence allocates the next per-day case number via an upsert, so
// concurrent creators on the same day never receive the same value.
func (s *PostgresStore) NextSequence(ctx context.Context, day time.Time) (int, error) {
	query := `
		INSERT INTO case_sequences (day, value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET value = case_sequences.value + 1
		RETURNING value
	`
	var seq int
	if err := s.execer(ctx).QueryRowContext(ctx, query, day.UTC().Format("2006-01-02")).Scan(&seq); err != nil {
		return 0, fmt.Errorf("allocate case sequence: %w", err)
	}
	return seq, nil
}

func (s *PostgresStore) Create(ctx context.Context, c Case) error {
	query := `
		INSERT INTO cases (
			id, case_uid, reporter_id, anonymous, device_id,
			incident_type, priority, status, title, description,
			assigned_responder_id, assigned_agency_id, assigned_station_id,
			initial_location, location_accuracy_m,
			en_route_at, response_time_seconds,
			version, created_at, updated_at, closed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13,
			CASE WHEN $14::float8 IS NULL THEN NULL
			     ELSE ST_SetSRID(ST_MakePoint($15::float8, $14::float8), 4326)::geography END,
			$16,
			$17, $18,
			$19, $20, $21, $22
		)
	`
	var lat, lng, accuracy *float64
	if c.InitialLocation != nil {
		lat, lng, accuracy = &c.InitialLocation.Lat, &c.InitialLocation.Lng, c.InitialLocation.Accuracy
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		c.CaseUID.String(),
		nullableUUID((*uuid.UUID)(c.ReporterID)),
		c.Anonymous,
		c.DeviceID,
		string(c.IncidentType),
		string(c.Priority),
		string(c.Status),
		c.Title,
		c.Description,
		nullableUUID((*uuid.UUID)(c.AssignedResponderID)),
		nullableUUID((*uuid.UUID)(c.AssignedAgencyID)),
		nullableUUID((*uuid.UUID)(c.AssignedStationID)),
		lat, lng, accuracy,
		c.EnRouteAt,
		c.ResponseTimeSeconds,
		c.Version,
		c.CreatedAt,
		c.UpdatedAt,
		c.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

const caseColumns = `
	id, case_uid, reporter_id, anonymous, device_id,
	incident_type, priority, status, title, description,
	assigned_responder_id, assigned_agency_id, assigned_station_id,
	ST_Y(initial_location::geometry), ST_X(initial_location::geometry), location_accuracy_m,
	en_route_at, response_time_seconds,
	version, created_at, updated_at, closed_at
`

func (s *PostgresStore) Get(ctx context.Context, id domain.CaseID) (Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id))
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Case{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Case{}, fmt.Errorf("query case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE 1=1`
	var args []any
	if filter.ReporterID != nil {
		args = append(args, uuid.UUID(*filter.ReporterID))
		query += fmt.Sprintf(" AND reporter_id = $%d", len(args))
	}
	if filter.ResponderID != nil {
		args = append(args, uuid.UUID(*filter.ResponderID))
		query += fmt.Sprintf(" AND assigned_responder_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update writes the mutable case fields only when the stored version still
// equals expectedVersion, bumping version by one in the same statement.
func (s *PostgresStore) Update(ctx context.Context, c Case, expectedVersion int) error {
	query := `
		UPDATE cases SET
			status = $1,
			assigned_responder_id = $2,
			assigned_agency_id = $3,
			assigned_station_id = $4,
			en_route_at = $5,
			response_time_seconds = $6,
			updated_at = $7,
			closed_at = $8,
			version = version + 1
		WHERE id = $9 AND version = $10
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		string(c.Status),
		nullableUUID((*uuid.UUID)(c.AssignedResponderID)),
		nullableUUID((*uuid.UUID)(c.AssignedAgencyID)),
		nullableUUID((*uuid.UUID)(c.AssignedStationID)),
		c.EnRouteAt,
		c.ResponseTimeSeconds,
		c.UpdatedAt,
		c.ClosedAt,
		uuid.UUID(c.ID),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case rows affected: %w", err)
	}
	if affected == 0 {
		// The row is either gone or on a newer version; distinguish
		// so callers can surface the right error.
		var exists bool
		if err := s.execer(ctx).QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM cases WHERE id = $1)`, uuid.UUID(c.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("check case existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (Case, error) {
	var (
		c                  Case
		id                 uuid.UUID
		caseUID            string
		reporter           uuid.NullUUID
		incidentType       string
		priority           string
		status             string
		responder          uuid.NullUUID
		agency             uuid.NullUUID
		station            uuid.NullUUID
		lat, lng, accuracy sql.NullFloat64
	)
	if err := row.Scan(
		&id, &caseUID, &reporter, &c.Anonymous, &c.DeviceID,
		&incidentType, &priority, &status, &c.Title, &c.Description,
		&responder, &agency, &station,
		&lat, &lng, &accuracy,
		&c.EnRouteAt, &c.ResponseTimeSeconds,
		&c.Version, &c.CreatedAt, &c.UpdatedAt, &c.ClosedAt,
	); err != nil {
		return Case{}, err
	}

	c.ID = domain.CaseID(id)
	uid, err := domain.ParseCaseUID(caseUID)
	if err != nil {
		return Case{}, fmt.Errorf("parse case uid: %w", err)
	}
	c.CaseUID = uid
	if reporter.Valid {
		rid := domain.UserID(reporter.UUID)
		c.ReporterID = &rid
	}
	it, err := domain.ParseIncidentType(incidentType)
	if err != nil {
		return Case{}, err
	}
	c.IncidentType = it
	p, err := domain.ParsePriority(priority)
	if err != nil {
		return Case{}, err
	}
	c.Priority = p
	st, err := domain.ParseCaseStatus(status)
	if err != nil {
		return Case{}, err
	}
	c.Status = st
	if responder.Valid {
		rid := domain.ResponderID(responder.UUID)
		c.AssignedResponderID = &rid
	}
	if agency.Valid {
		aid := domain.AgencyID(agency.UUID)
		c.AssignedAgencyID = &aid
	}
	if station.Valid {
		sid := domain.StationID(station.UUID)
		c.AssignedStationID = &sid
	}
	if lat.Valid && lng.Valid {
		var acc *float64
		if accuracy.Valid {
			acc = &accuracy.Float64
		}
		loc, err := domain.ParseLocation(lat.Float64, lng.Float64, acc)
		if err != nil {
			return Case{}, fmt.Errorf("parse case location: %w", err)
		}
		c.InitialLocation = &loc
	}
	return c, nil
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

// PostgresVerificationStore persists responder verifications.
type PostgresVerificationStore struct {
	db *sql.DB
}

// NewPostgresVerifications creates a PostgreSQL verification store.
func NewPostgresVerifications(db *sql.DB) *PostgresVerificationStore {
	return &PostgresVerificationStore{db: db}
}

func (s *PostgresVerificationStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresVerificationStore) Create(ctx context.Context, v ResponderVerification) error {
	query := `
		INSERT INTO responder_verifications (
			id, case_id, responder_id, method, raw_code, qr_payload,
			verifier_id, location, verified_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			CASE WHEN $8::float8 IS NULL THEN NULL
			     ELSE ST_SetSRID(ST_MakePoint($9::float8, $8::float8), 4326)::geography END,
			$10
		)
	`
	var lat, lng *float64
	if v.Location != nil {
		lat, lng = &v.Location.Lat, &v.Location.Lng
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(v.CaseID),
		uuid.UUID(v.ResponderID),
		string(v.Method),
		v.RawCode,
		v.QRPayload,
		uuid.UUID(v.VerifierID),
		lat, lng,
		v.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("insert responder verification: %w", err)
	}
	return nil
}

func (s *PostgresVerificationStore) ListByCase(ctx context.Context, caseID domain.CaseID) ([]ResponderVerification, error) {
	query := `
		SELECT responder_id, method, raw_code, qr_payload, verifier_id,
		       ST_Y(location::geometry), ST_X(location::geometry), verified_at
		FROM responder_verifications
		WHERE case_id = $1
		ORDER BY verified_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("query responder verifications: %w", err)
	}
	defer rows.Close()

	var out []ResponderVerification
	for rows.Next() {
		var (
			v          ResponderVerification
			responder  uuid.UUID
			verifier   uuid.UUID
			method     string
			latV, lngV sql.NullFloat64
		)
		if err := rows.Scan(&responder, &method, &v.RawCode, &v.QRPayload, &verifier, &latV, &lngV, &v.VerifiedAt); err != nil {
			return nil, fmt.Errorf("scan responder verification: %w", err)
		}
		v.CaseID = caseID
		v.ResponderID = domain.ResponderID(responder)
		v.VerifierID = domain.UserID(verifier)
		v.Method = VerificationMethod(method)
		if latV.Valid && lngV.Valid {
			loc, err := domain.ParseLocation(latV.Float64, lngV.Float64, nil)
			if err != nil {
				return nil, fmt.Errorf("parse verification location: %w", err)
			}
			v.Location = &loc
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
