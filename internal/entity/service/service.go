// Package service orchestrates the scan→link→persist pipeline and the
// compliance operations against the golden record store. Handlers stay thin;
// all validation and audit wiring lives here.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"privacore/internal/audit"
	"privacore/internal/entity/models"
	"privacore/internal/linker"
	"privacore/internal/platform/metrics"
	"privacore/pkg/domain"
	dErrors "privacore/pkg/domain-errors"
)

// Store is the persistence contract this service needs. Declared on the
// consumer side so tests can swap implementations.
type Store interface {
	SaveMapping(ctx context.Context, clusters []*linker.Cluster) error
	GetEntity(ctx context.Context, id domain.EntityID) (*models.EntityDetail, error)
	SearchEntities(ctx context.Context, query string) ([]models.Entity, error)
	ListEntities(ctx context.Context, limit int) ([]models.Entity, error)
	EraseEntity(ctx context.Context, id domain.EntityID, requestedBy, reason string) (int, error)
	GetStatistics(ctx context.Context) (*models.Statistics, error)
	ExportGoldenRecords(ctx context.Context) ([]models.GoldenRecord, error)
	AllocateEntitySeq(ctx context.Context, n int) (int, error)
}

// Trail records privileged operations.
type Trail interface {
	Record(ctx context.Context, entry audit.Entry) (*audit.Entry, error)
}

// Service wires the linker, the store, and the audit trail.
type Service struct {
	store      Store
	trail      Trail
	logger     *slog.Logger
	metrics    *metrics.Metrics
	linkerOpts []linker.Option
}

// New builds the service. metrics may be nil in tests. linkerOpts lets the
// caller tune similarity or comparison caps without changing pipeline
// semantics.
func New(store Store, trail Trail, logger *slog.Logger, m *metrics.Metrics, linkerOpts ...linker.Option) *Service {
	return &Service{
		store:      store,
		trail:      trail,
		logger:     logger,
		metrics:    m,
		linkerOpts: linkerOpts,
	}
}

// IngestResult summarizes one persisted batch.
type IngestResult struct {
	EntitiesCreated int                     `json:"entities_created"`
	FragmentsLinked int                     `json:"fragments_linked"`
	SkippedIndexes  []int                   `json:"skipped_indexes,omitempty"`
	ProofHash       string                  `json:"proof_hash"`
	Assignments     map[int]domain.EntityID `json:"assignments"`
}

// IngestBatch clusters the fragments, persists the mapping, and records scan
// and link audit entries. The audit entries are written only after the save
// commits, so a failed save leaves no trace in the trail. The linker mints
// provisional IDs; the final IDs come from an atomic store reservation, so
// concurrent batches can never collide on an entity ID and erased IDs are
// never reissued.
func (s *Service) IngestBatch(ctx context.Context, user string, fragments []linker.Fragment, threshold float64) (*IngestResult, error) {
	result, err := linker.New(s.linkerOpts...).Cluster(fragments, threshold)
	if err != nil {
		return nil, err
	}

	if len(result.Clusters) > 0 {
		start, err := s.store.AllocateEntitySeq(ctx, len(result.Clusters))
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "allocate entity sequence", err)
		}
		remap := make(map[domain.EntityID]domain.EntityID, len(result.Clusters))
		for i, cluster := range result.Clusters {
			final := domain.NewEntityID(start + i)
			remap[cluster.EntityID] = final
			cluster.EntityID = final
		}
		for idx, provisional := range result.Assignments {
			result.Assignments[idx] = remap[provisional]
		}
		if err := s.store.SaveMapping(ctx, result.Clusters); err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "persist mapping", err)
		}
	}

	proofHash, err := batchProofHash(fragments)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "hash fragment batch", err)
	}

	linked := len(result.Assignments)
	scanEntry := audit.NewScanEntry(user, proofHash, len(fragments), len(fragments), sourceFiles(fragments))
	if _, err := s.trail.Record(ctx, scanEntry); err != nil {
		return nil, err
	}
	linkEntry := audit.NewLinkEntry(user, threshold, len(result.Clusters), linked)
	if _, err := s.trail.Record(ctx, linkEntry); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordScan(len(result.Clusters), linked)
	}
	s.logger.InfoContext(ctx, "batch ingested",
		"user", user,
		"fragments", len(fragments),
		"entities_created", len(result.Clusters),
		"skipped", len(result.Skipped),
	)

	return &IngestResult{
		EntitiesCreated: len(result.Clusters),
		FragmentsLinked: linked,
		SkippedIndexes:  result.Skipped,
		ProofHash:       proofHash,
		Assignments:     result.Assignments,
	}, nil
}

// GetEntity returns an entity with its fragments and records an access audit
// entry. Unknown entities yield a not-found error and no entry: nothing was
// disclosed.
func (s *Service) GetEntity(ctx context.Context, user, rawID, purpose string) (*models.EntityDetail, error) {
	id, err := domain.ParseEntityID(rawID)
	if err != nil {
		return nil, err
	}
	detail, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.trail.Record(ctx, audit.NewAccessEntry(user, id, purpose)); err != nil {
		return nil, err
	}
	return detail, nil
}

// SearchEntities returns matching entity summaries, recency descending.
func (s *Service) SearchEntities(ctx context.Context, query string) ([]models.Entity, error) {
	if query == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "search query must not be empty")
	}
	return s.store.SearchEntities(ctx, query)
}

// ListEntities returns up to limit summaries, recency descending.
func (s *Service) ListEntities(ctx context.Context, limit int) ([]models.Entity, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListEntities(ctx, limit)
}

// EraseResult reports what an erasure removed.
type EraseResult struct {
	EntityID         domain.EntityID `json:"entity_id"`
	FragmentsDeleted int             `json:"fragments_deleted"`
}

// EraseEntity deletes the entity, its fragments, and writes the erasure
// record atomically, then records the erasure audit entry. An unknown entity
// is a not-found error with no store mutation and no audit entry.
func (s *Service) EraseEntity(ctx context.Context, user, rawID, requestedBy, reason string) (*EraseResult, error) {
	id, err := domain.ParseEntityID(rawID)
	if err != nil {
		return nil, err
	}
	if requestedBy == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "requested_by must not be empty")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "reason must not be empty")
	}

	deleted, err := s.store.EraseEntity(ctx, id, requestedBy, reason)
	if err != nil {
		return nil, err
	}

	if _, err := s.trail.Record(ctx, audit.NewErasureEntry(user, id, deleted, requestedBy, reason)); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordErasure()
	}
	s.logger.InfoContext(ctx, "entity erased",
		"entity_id", id.String(),
		"fragments_deleted", deleted,
		"requested_by", requestedBy,
	)
	return &EraseResult{EntityID: id, FragmentsDeleted: deleted}, nil
}

// GetStatistics computes live aggregates.
func (s *Service) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	return s.store.GetStatistics(ctx)
}

// ExportGoldenRecords returns the read-only export projection.
func (s *Service) ExportGoldenRecords(ctx context.Context) ([]models.GoldenRecord, error) {
	return s.store.ExportGoldenRecords(ctx)
}

// batchProofHash hashes the canonical JSON of the batch so the scan audit
// entry can prove what was processed.
func batchProofHash(fragments []linker.Fragment) (string, error) {
	payload, err := json.Marshal(fragments)
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// sourceFiles lists the distinct fragment sources, sorted for stable audit
// payloads.
func sourceFiles(fragments []linker.Fragment) []string {
	seen := make(map[string]bool, len(fragments))
	var sources []string
	for _, f := range fragments {
		if f.Source == "" || seen[f.Source] {
			continue
		}
		seen[f.Source] = true
		sources = append(sources, f.Source)
	}
	sort.Strings(sources)
	return sources
}
