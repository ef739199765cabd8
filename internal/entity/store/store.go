// Package store persists golden records. Two implementations share one
// contract: an in-memory store for unit tests and small deployments, and a
// PostgreSQL store for durable operation. Every mutating operation is
// transactional: it either fully applies or leaves no visible effect.
package store

import (
	"context"

	"privacore/internal/entity/models"
	"privacore/internal/linker"
	"privacore/pkg/domain"
	dErrors "privacore/pkg/domain-errors"
)

// ErrNotFound keeps store-level 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "entity not found")

// searchLimit bounds search payloads.
const searchLimit = 50

// Store owns the durable representation of entities, fragments, and erasure
// records. Implementations must uphold referential integrity: a fragment's
// entity_id always references an existing entity, never transiently broken
// for concurrent readers.
type Store interface {
	// SaveMapping persists one clustering result. Entities are created if
	// absent; an existing entity's confidence is never overwritten on merge
	// (similarity at creation time). fragment_count is recomputed for every
	// touched entity from an authoritative count, never trusted from the
	// caller. Applies atomically.
	SaveMapping(ctx context.Context, clusters []*linker.Cluster) error

	// GetEntity returns an entity with its fragments, or ErrNotFound.
	GetEntity(ctx context.Context, id domain.EntityID) (*models.EntityDetail, error)

	// SearchEntities returns summaries of entities whose fragment values or
	// sources contain query case-insensitively, most recent first, capped at
	// 50 rows.
	SearchEntities(ctx context.Context, query string) ([]models.Entity, error)

	// ListEntities returns up to limit summaries, most recent first.
	ListEntities(ctx context.Context, limit int) ([]models.Entity, error)

	// EraseEntity deletes all fragments and the entity row and inserts
	// exactly one erasure record, all-or-nothing. Returns the number of
	// fragments deleted, or ErrNotFound with no effects when the entity does
	// not exist.
	EraseEntity(ctx context.Context, id domain.EntityID, requestedBy, reason string) (int, error)

	// GetStatistics computes aggregates from authoritative queries on every
	// call.
	GetStatistics(ctx context.Context) (*models.Statistics, error)

	// ExportGoldenRecords returns the read-only entity/fragment join for
	// downstream export.
	ExportGoldenRecords(ctx context.Context) ([]models.GoldenRecord, error)

	// AllocateEntitySeq atomically reserves n consecutive entity sequence
	// numbers and returns the first. A reservation is never handed out
	// twice, even across concurrent callers, and the high-water mark covers
	// erased entities, so an entity ID is never reissued after erasure.
	// Reserved numbers that go unused (a failed save) leave gaps, which is
	// acceptable.
	AllocateEntitySeq(ctx context.Context, n int) (int, error)
}
