// Package store persists audit entries. Appends are the only mutation; the
// trail has no update or delete path in any implementation.
package store

import (
	"context"

	"privacore/internal/audit"
	"privacore/pkg/domain"
)

// Store is the append-only audit sink with its read contracts.
type Store interface {
	// Append writes exactly one new entry. Implementations must never
	// collide on identity under concurrent appenders.
	Append(ctx context.Context, entry audit.Entry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)

	// ByUser returns the entries recorded for one user, newest first.
	ByUser(ctx context.Context, user string) ([]audit.Entry, error)

	// ByEntity returns the entries touching one entity, newest first.
	ByEntity(ctx context.Context, entityID domain.EntityID) ([]audit.Entry, error)
}
