package linker

import (
	"time"

	"privacore/pkg/domain"
)

// Fragment is a single detected PII mention handed over by the detection
// subsystem. It is immutable once persisted, except for deletion during
// erasure.
type Fragment struct {
	Value  string
	Kind   domain.FragmentKind
	Source string
}

// Member is a fragment placed in a cluster, with the similarity score at
// which it joined. The first member of a cluster always carries score 1.0.
type Member struct {
	Fragment
	Score float64
}

// Cluster groups fragments believed to describe one real-world subject.
// Confidence is the similarity score at which the cluster was created; it is
// deliberately not updated when later fragments merge in (similarity at
// creation time).
type Cluster struct {
	EntityID   domain.EntityID
	Confidence float64
	Members    []Member
	CreatedAt  time.Time
}

// Result is the outcome of one clustering pass. Assignments maps the index
// of each usable input fragment to its entity; Skipped lists the indexes of
// fragments that had no usable value and were excluded from clustering.
// Clusters are ordered by creation.
type Result struct {
	Assignments map[int]domain.EntityID
	Clusters    []*Cluster
	Skipped     []int
}
