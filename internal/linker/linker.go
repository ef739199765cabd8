// Package linker clusters PII fragments into entity candidates. It is a pure
// in-memory transform: it owns no durable state, and a single Cluster call is
// inherently sequential because each fragment's assignment depends on the
// clusters built from the fragments before it. Independent batches may run in
// parallel.
package linker

import (
	"fmt"
	"strings"
	"time"

	"privacore/pkg/domain"
	dErrors "privacore/pkg/domain-errors"
)

// Linker performs greedy first-match clustering. A fragment joins the FIRST
// existing cluster, in creation order, whose similarity to any current member
// meets the threshold; it does not search for the globally best cluster.
// Callers expecting best-match semantics must not use this type as-is. The
// heuristic is deliberately cheap and order-sensitive, and its output is
// stable: the same fragments, threshold, and start sequence always yield the
// same clusters and entity numbering.
type Linker struct {
	sim        Similarity
	startSeq   int
	maxCompare int
}

// Option configures a Linker.
type Option func(*Linker)

// WithSimilarity swaps the similarity function. It must be deterministic,
// symmetric, and satisfy sim(x,x) == 1.
func WithSimilarity(sim Similarity) Option {
	return func(l *Linker) { l.sim = sim }
}

// WithStartSeq sets the first entity sequence number to mint. The store owns
// the high-water mark so erased IDs are never reissued.
func WithStartSeq(seq int) Option {
	return func(l *Linker) { l.startSeq = seq }
}

// WithMaxComparisons caps how many members of a cluster are scored per
// candidate fragment. The default (0) compares against all members, which is
// O(n²) in the worst case of a single pathological cluster; a bounded cap
// trades exactness for cost on large batches.
func WithMaxComparisons(n int) Option {
	return func(l *Linker) { l.maxCompare = n }
}

// New builds a Linker with the default sequence-matcher similarity.
func New(opts ...Option) *Linker {
	l := &Linker{sim: Ratio, startSeq: 1}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cluster assigns each fragment to an entity. Fragments are processed in
// input order; values are compared lower-cased. Fragments with a blank value
// are skipped and reported in Result.Skipped, never silently dropped.
//
// An empty input yields an empty Result. A threshold outside (0,1] is a
// caller contract violation and is rejected before any work.
func (l *Linker) Cluster(fragments []Fragment, threshold float64) (*Result, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("threshold must be in (0,1], got %g", threshold))
	}

	result := &Result{Assignments: make(map[int]domain.EntityID)}
	seq := l.startSeq
	now := time.Now().UTC()

	for i, frag := range fragments {
		value := strings.ToLower(strings.TrimSpace(frag.Value))
		if value == "" {
			result.Skipped = append(result.Skipped, i)
			continue
		}

		if cluster, score, ok := l.match(result.Clusters, value, threshold); ok {
			cluster.Members = append(cluster.Members, Member{Fragment: frag, Score: score})
			result.Assignments[i] = cluster.EntityID
			continue
		}

		cluster := &Cluster{
			EntityID:   domain.NewEntityID(seq),
			Confidence: 1.0,
			Members:    []Member{{Fragment: frag, Score: 1.0}},
			CreatedAt:  now,
		}
		seq++
		result.Clusters = append(result.Clusters, cluster)
		result.Assignments[i] = cluster.EntityID
	}

	return result, nil
}

// match scans clusters in creation order and returns the first whose members
// contain a close enough value. The reported score is the best similarity
// found within the matching cluster, not across all clusters.
func (l *Linker) match(clusters []*Cluster, value string, threshold float64) (*Cluster, float64, bool) {
	for _, cluster := range clusters {
		members := cluster.Members
		if l.maxCompare > 0 && len(members) > l.maxCompare {
			members = members[:l.maxCompare]
		}
		best := 0.0
		for _, m := range members {
			if score := l.sim(value, strings.ToLower(m.Value)); score > best {
				best = score
			}
		}
		if best >= threshold {
			return cluster, best, true
		}
	}
	return nil, 0, false
}
