// Package models holds the golden-record domain types owned by the entity
// store.
package models

import (
	"time"

	"privacore/pkg/domain"
)

// Entity is a golden record: the durable cluster row. FragmentCount is
// derived from the fragment rows and recomputed on every mutation; it is
// never settable by callers. Confidence is the similarity score at creation
// time and is not updated when later batches merge fragments in.
type Entity struct {
	EntityID      domain.EntityID `json:"entity_id"`
	Confidence    float64         `json:"confidence"`
	FragmentCount int             `json:"fragment_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Fragment is a persisted PII mention linked to an entity.
type Fragment struct {
	ID        int64               `json:"frag_id"`
	EntityID  domain.EntityID     `json:"entity_id"`
	Kind      domain.FragmentKind `json:"kind"`
	Value     string              `json:"value"`
	Source    string              `json:"source"`
	CreatedAt time.Time           `json:"created_at"`
}

// EntityDetail is an entity with its linked fragments, as returned by
// lookups.
type EntityDetail struct {
	Entity    Entity     `json:"entity"`
	Fragments []Fragment `json:"fragments"`
}

// Erasure is the immutable proof that an entity was deleted. Created exactly
// once per erasure, never updated or removed.
type Erasure struct {
	ID          int64           `json:"id"`
	EntityID    domain.EntityID `json:"entity_id"`
	RequestedBy string          `json:"requested_by"`
	Reason      string          `json:"reason"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Statistics is computed from live aggregate queries on every call, never
// cached.
type Statistics struct {
	TotalEntities         int     `json:"total_entities"`
	TotalFragments        int     `json:"total_fragments"`
	AvgFragmentsPerEntity float64 `json:"avg_fragments_per_entity"`
	ErasuresPerformed     int     `json:"erasures_performed"`
}

// GoldenRecord is the read-only export projection joining an entity to its
// fragments. It is derived state for downstream consumers, not a mutable
// representation.
type GoldenRecord struct {
	EntityID   domain.EntityID  `json:"entity_id"`
	Confidence float64          `json:"confidence"`
	CreatedAt  time.Time        `json:"created_at"`
	Fragments  []GoldenFragment `json:"fragments"`
}

// GoldenFragment is the exported view of a fragment.
type GoldenFragment struct {
	Kind   domain.FragmentKind `json:"kind"`
	Value  string              `json:"value"`
	Source string              `json:"source"`
}
