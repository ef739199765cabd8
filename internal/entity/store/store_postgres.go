package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"privacore/internal/entity/models"
	"privacore/internal/linker"
	"privacore/pkg/domain"
)

// schema is applied at construction. CREATE IF NOT EXISTS keeps startup
// idempotent; the FK from fragments to entities backs the referential
// integrity invariant at the database level.
const schema = `
CREATE TABLE IF NOT EXISTS entities (
	entity_id      TEXT PRIMARY KEY,
	confidence     DOUBLE PRECISION NOT NULL,
	fragment_count INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS fragments (
	frag_id    BIGSERIAL PRIMARY KEY,
	entity_id  TEXT NOT NULL REFERENCES entities(entity_id),
	kind       TEXT NOT NULL,
	value      TEXT NOT NULL,
	source     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS fragments_entity_id_idx ON fragments (entity_id);

CREATE TABLE IF NOT EXISTS erasures (
	id           BIGSERIAL PRIMARY KEY,
	entity_id    TEXT NOT NULL,
	requested_by TEXT NOT NULL,
	reason       TEXT NOT NULL,
	erased_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entity_seq (
	id      SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	max_seq INTEGER NOT NULL
);

INSERT INTO entity_seq (id, max_seq) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
`

// PostgresStore persists golden records in PostgreSQL. Each mutating
// operation runs in a single transaction so concurrent readers see either
// the pre- or post-state, never a partially applied one.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres builds a postgres-backed store and ensures the schema exists.
func NewPostgres(db *sql.DB) (*PostgresStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply entity schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveMapping(ctx context.Context, clusters []*linker.Cluster) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save mapping: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, cluster := range clusters {
		// Insert-if-missing: an existing entity keeps its confidence when a
		// merge grows it (similarity at creation time).
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entities (entity_id, confidence, fragment_count)
			VALUES ($1, $2, 0)
			ON CONFLICT (entity_id) DO NOTHING
		`, cluster.EntityID.String(), cluster.Confidence)
		if err != nil {
			return fmt.Errorf("insert entity %s: %w", cluster.EntityID, err)
		}

		for _, member := range cluster.Members {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO fragments (entity_id, kind, value, source)
				VALUES ($1, $2, $3, $4)
			`, cluster.EntityID.String(), member.Kind.String(), member.Value, member.Source)
			if err != nil {
				return fmt.Errorf("insert fragment for %s: %w", cluster.EntityID, err)
			}
		}

		// Authoritative recount; the caller's member count is never trusted.
		_, err = tx.ExecContext(ctx, `
			UPDATE entities
			SET fragment_count = (SELECT COUNT(*) FROM fragments WHERE fragments.entity_id = entities.entity_id)
			WHERE entity_id = $1
		`, cluster.EntityID.String())
		if err != nil {
			return fmt.Errorf("recount fragments for %s: %w", cluster.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save mapping: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEntity(ctx context.Context, id domain.EntityID) (*models.EntityDetail, error) {
	detail := &models.EntityDetail{}
	err := s.db.QueryRowContext(ctx, `
		SELECT entity_id, confidence, fragment_count, created_at
		FROM entities WHERE entity_id = $1
	`, id.String()).Scan(
		&detail.Entity.EntityID,
		&detail.Entity.Confidence,
		&detail.Entity.FragmentCount,
		&detail.Entity.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get entity %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT frag_id, entity_id, kind, value, source, created_at
		FROM fragments WHERE entity_id = $1 ORDER BY frag_id
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("get fragments for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var f models.Fragment
		if err := rows.Scan(&f.ID, &f.EntityID, &f.Kind, &f.Value, &f.Source, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		detail.Fragments = append(detail.Fragments, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fragments: %w", err)
	}
	return detail, nil
}

func (s *PostgresStore) SearchEntities(ctx context.Context, query string) ([]models.Entity, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT e.entity_id, e.confidence, e.fragment_count, e.created_at
		FROM entities e
		JOIN fragments f ON e.entity_id = f.entity_id
		WHERE f.value ILIKE $1 OR f.source ILIKE $1
		ORDER BY e.created_at DESC, e.entity_id DESC
		LIMIT $2
	`, pattern, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func (s *PostgresStore) ListEntities(ctx context.Context, limit int) ([]models.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, confidence, fragment_count, created_at
		FROM entities
		ORDER BY created_at DESC, entity_id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func (s *PostgresStore) EraseEntity(ctx context.Context, id domain.EntityID, requestedBy, reason string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin erase: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the entity row so a concurrent SaveMapping against the same
	// entity serializes behind the erasure.
	var exists string
	err = tx.QueryRowContext(ctx,
		`SELECT entity_id FROM entities WHERE entity_id = $1 FOR UPDATE`,
		id.String()).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lock entity %s: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM fragments WHERE entity_id = $1`, id.String())
	if err != nil {
		return 0, fmt.Errorf("delete fragments for %s: %w", id, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted fragments: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE entity_id = $1`, id.String()); err != nil {
		return 0, fmt.Errorf("delete entity %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO erasures (entity_id, requested_by, reason) VALUES ($1, $2, $3)
	`, id.String(), requestedBy, reason)
	if err != nil {
		return 0, fmt.Errorf("insert erasure record for %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit erase: %w", err)
	}
	return int(deleted), nil
}

func (s *PostgresStore) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	stats := &models.Statistics{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM entities),
			(SELECT COUNT(*) FROM fragments),
			(SELECT COALESCE(AVG(fragment_count), 0) FROM entities),
			(SELECT COUNT(*) FROM erasures)
	`).Scan(
		&stats.TotalEntities,
		&stats.TotalFragments,
		&stats.AvgFragmentsPerEntity,
		&stats.ErasuresPerformed,
	)
	if err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) ExportGoldenRecords(ctx context.Context) ([]models.GoldenRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.entity_id, e.confidence, e.created_at, f.kind, f.value, f.source
		FROM entities e
		LEFT JOIN fragments f ON e.entity_id = f.entity_id
		ORDER BY e.entity_id, f.frag_id
	`)
	if err != nil {
		return nil, fmt.Errorf("export golden records: %w", err)
	}
	defer rows.Close()

	var records []models.GoldenRecord
	var current *models.GoldenRecord
	for rows.Next() {
		var (
			entityID   string
			confidence float64
			createdAt  sql.NullTime
			kind       sql.NullString
			value      sql.NullString
			source     sql.NullString
		)
		if err := rows.Scan(&entityID, &confidence, &createdAt, &kind, &value, &source); err != nil {
			return nil, fmt.Errorf("scan golden record row: %w", err)
		}
		if current == nil || current.EntityID.String() != entityID {
			records = append(records, models.GoldenRecord{
				EntityID:   domain.EntityID(entityID),
				Confidence: confidence,
				CreatedAt:  createdAt.Time,
			})
			current = &records[len(records)-1]
		}
		if kind.Valid {
			current.Fragments = append(current.Fragments, models.GoldenFragment{
				Kind:   domain.FragmentKind(kind.String),
				Value:  value.String,
				Source: source.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate golden records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) AllocateEntitySeq(ctx context.Context, n int) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("allocate entity seq: size %d must be positive", n)
	}
	// A single UPDATE on the counter row; concurrent callers serialize on
	// the row lock, so a reservation is never handed out twice. GREATEST
	// against the stored high-water mark absorbs rows written with explicit
	// IDs and pre-existing databases; the subquery spans live and erased
	// entities so erased IDs are never minted again.
	var last int
	err := s.db.QueryRowContext(ctx, `
		UPDATE entity_seq
		SET max_seq = GREATEST(
			max_seq,
			(SELECT COALESCE(MAX(CAST(SUBSTRING(entity_id FROM 3) AS INTEGER)), 0)
			 FROM (
				SELECT entity_id FROM entities
				UNION ALL
				SELECT entity_id FROM erasures
			 ) ids)
		) + $1
		WHERE id = 1
		RETURNING max_seq
	`, n).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("allocate entity seq: %w", err)
	}
	return last - n + 1, nil
}

func scanEntities(rows *sql.Rows) ([]models.Entity, error) {
	var entities []models.Entity
	for rows.Next() {
		var e models.Entity
		if err := rows.Scan(&e.EntityID, &e.Confidence, &e.FragmentCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
