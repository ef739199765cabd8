package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"privacore/internal/audit"
	"privacore/pkg/domain"
)

// schema is applied at construction. The table is append-only by contract;
// nothing in this package issues UPDATE or DELETE against it.
const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id          UUID PRIMARY KEY,
	operation   TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	actor       TEXT NOT NULL DEFAULT '',
	entity_id   TEXT NOT NULL DEFAULT '',
	trace_id    TEXT NOT NULL DEFAULT '',
	fields      JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS audit_entries_occurred_at_idx ON audit_entries (occurred_at DESC);
CREATE INDEX IF NOT EXISTS audit_entries_actor_idx ON audit_entries (actor);
CREATE INDEX IF NOT EXISTS audit_entries_entity_id_idx ON audit_entries (entity_id);
`

// PostgresStore persists the trail in PostgreSQL. The UUID primary key makes
// concurrent appends collision-free without coordination.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres builds a postgres-backed audit store and ensures the schema.
func NewPostgres(db *sql.DB) (*PostgresStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply audit schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Append(ctx context.Context, entry audit.Entry) error {
	fields, err := json.Marshal(entry.Fields)
	if err != nil {
		return fmt.Errorf("marshal audit fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, operation, occurred_at, actor, entity_id, trace_id, fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, string(entry.Operation), entry.Timestamp, entry.User, entry.EntityID, entry.TraceID, fields)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, occurred_at, actor, entity_id, trace_id, fields
		FROM audit_entries
		ORDER BY occurred_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ByUser(ctx context.Context, user string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, occurred_at, actor, entity_id, trace_id, fields
		FROM audit_entries
		WHERE actor = $1
		ORDER BY occurred_at DESC, id
	`, user)
	if err != nil {
		return nil, fmt.Errorf("audit entries by user: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ByEntity(ctx context.Context, entityID domain.EntityID) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, occurred_at, actor, entity_id, trace_id, fields
		FROM audit_entries
		WHERE entity_id = $1
		ORDER BY occurred_at DESC, id
	`, entityID.String())
	if err != nil {
		return nil, fmt.Errorf("audit entries by entity: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var (
			entry  audit.Entry
			op     string
			fields []byte
		)
		if err := rows.Scan(&entry.ID, &op, &entry.Timestamp, &entry.User, &entry.EntityID, &entry.TraceID, &fields); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Operation = audit.Operation(op)
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &entry.Fields); err != nil {
				return nil, fmt.Errorf("unmarshal audit fields: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
