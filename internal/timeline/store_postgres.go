package timeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"beacon/pkg/domain"
	txcontext "beacon/pkg/platform/tx"
)

// PostgresStore persists timeline entries in the case_timeline table. It
// joins an ambient transaction from context so an entry commits atomically
// with the case mutation that caused it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL timeline store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal timeline metadata: %w", err)
	}

	query := `
		INSERT INTO case_timeline (id, case_id, actor, action, description, old_value, new_value, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(entry.CaseID),
		entry.Actor.String(),
		string(entry.Action),
		entry.Description,
		entry.OldValue,
		entry.NewValue,
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert timeline entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCase(ctx context.Context, caseID domain.CaseID) ([]Entry, error) {
	query := `
		SELECT actor, action, description, old_value, new_value, metadata, created_at
		FROM case_timeline
		WHERE case_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry    Entry
			actorRaw string
			metaRaw  []byte
		)
		entry.CaseID = caseID
		if err := rows.Scan(&actorRaw, &entry.Action, &entry.Description, &entry.OldValue, &entry.NewValue, &metaRaw, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline entry: %w", err)
		}
		actor, err := domain.ParseActor(actorRaw)
		if err != nil {
			return nil, fmt.Errorf("parse timeline actor: %w", err)
		}
		entry.Actor = actor
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal timeline metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
