package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"privacore/internal/entity/models"
	"privacore/internal/linker"
	"privacore/pkg/domain"
	dErrors "privacore/pkg/domain-errors"
)

// MemoryStore is a mutex-guarded in-memory Store. Writers take the exclusive
// lock so readers observe either the pre- or post-state of a mutation, never
// a partial one.
type MemoryStore struct {
	mu        sync.RWMutex
	entities  map[domain.EntityID]models.Entity
	fragments []models.Fragment
	erasures  []models.Erasure
	nextFrag  int64
	maxSeq    int
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities: make(map[domain.EntityID]models.Entity),
		nextFrag: 1,
	}
}

func (s *MemoryStore) SaveMapping(ctx context.Context, clusters []*linker.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	touched := make(map[domain.EntityID]bool, len(clusters))

	for _, cluster := range clusters {
		if _, exists := s.entities[cluster.EntityID]; !exists {
			createdAt := cluster.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			s.entities[cluster.EntityID] = models.Entity{
				EntityID:   cluster.EntityID,
				Confidence: cluster.Confidence,
				CreatedAt:  createdAt,
			}
			if seq := cluster.EntityID.Seq(); seq > s.maxSeq {
				s.maxSeq = seq
			}
		}
		for _, member := range cluster.Members {
			s.fragments = append(s.fragments, models.Fragment{
				ID:        s.nextFrag,
				EntityID:  cluster.EntityID,
				Kind:      member.Kind,
				Value:     member.Value,
				Source:    member.Source,
				CreatedAt: now,
			})
			s.nextFrag++
		}
		touched[cluster.EntityID] = true
	}

	for id := range touched {
		s.recountLocked(id)
	}
	return nil
}

// recountLocked recomputes fragment_count for one entity from the fragment
// rows. Callers hold the write lock.
func (s *MemoryStore) recountLocked(id domain.EntityID) {
	count := 0
	for _, f := range s.fragments {
		if f.EntityID == id {
			count++
		}
	}
	entity := s.entities[id]
	entity.FragmentCount = count
	s.entities[id] = entity
}

func (s *MemoryStore) GetEntity(ctx context.Context, id domain.EntityID) (*models.EntityDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	detail := &models.EntityDetail{Entity: entity}
	for _, f := range s.fragments {
		if f.EntityID == id {
			detail.Fragments = append(detail.Fragments, f)
		}
	}
	return detail, nil
}

func (s *MemoryStore) SearchEntities(ctx context.Context, query string) ([]models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	matched := make(map[domain.EntityID]bool)
	for _, f := range s.fragments {
		if strings.Contains(strings.ToLower(f.Value), needle) ||
			strings.Contains(strings.ToLower(f.Source), needle) {
			matched[f.EntityID] = true
		}
	}

	results := make([]models.Entity, 0, len(matched))
	for id := range matched {
		results = append(results, s.entities[id])
	}
	sortByRecency(results)
	if len(results) > searchLimit {
		results = results[:searchLimit]
	}
	return results, nil
}

func (s *MemoryStore) ListEntities(ctx context.Context, limit int) ([]models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.Entity, 0, len(s.entities))
	for _, entity := range s.entities {
		results = append(results, entity)
	}
	sortByRecency(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryStore) EraseEntity(ctx context.Context, id domain.EntityID, requestedBy, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[id]; !ok {
		return 0, ErrNotFound
	}

	kept := s.fragments[:0]
	deleted := 0
	for _, f := range s.fragments {
		if f.EntityID == id {
			deleted++
			continue
		}
		kept = append(kept, f)
	}
	s.fragments = kept
	delete(s.entities, id)
	s.erasures = append(s.erasures, models.Erasure{
		ID:          int64(len(s.erasures) + 1),
		EntityID:    id,
		RequestedBy: requestedBy,
		Reason:      reason,
		Timestamp:   time.Now().UTC(),
	})
	return deleted, nil
}

func (s *MemoryStore) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.Statistics{
		TotalEntities:     len(s.entities),
		TotalFragments:    len(s.fragments),
		ErasuresPerformed: len(s.erasures),
	}
	if stats.TotalEntities > 0 {
		stats.AvgFragmentsPerEntity = float64(stats.TotalFragments) / float64(stats.TotalEntities)
	}
	return stats, nil
}

func (s *MemoryStore) ExportGoldenRecords(ctx context.Context) ([]models.GoldenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.GoldenRecord, 0, len(s.entities))
	for _, entity := range s.entities {
		record := models.GoldenRecord{
			EntityID:   entity.EntityID,
			Confidence: entity.Confidence,
			CreatedAt:  entity.CreatedAt,
		}
		for _, f := range s.fragments {
			if f.EntityID == entity.EntityID {
				record.Fragments = append(record.Fragments, models.GoldenFragment{
					Kind:   f.Kind,
					Value:  f.Value,
					Source: f.Source,
				})
			}
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].EntityID < records[j].EntityID
	})
	return records, nil
}

func (s *MemoryStore) AllocateEntitySeq(ctx context.Context, n int) (int, error) {
	if n < 1 {
		return 0, dErrors.New(dErrors.CodeInternal, "allocation size must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.maxSeq + 1
	s.maxSeq += n
	return start, nil
}

// CheckIntegrity verifies the derived-count and referential invariants. It
// is used by tests and returns a CodeIntegrity error on the first violation.
func (s *MemoryStore) CheckIntegrity(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.EntityID]int)
	for _, f := range s.fragments {
		if _, ok := s.entities[f.EntityID]; !ok {
			return dErrors.New(dErrors.CodeIntegrity,
				"fragment references missing entity "+f.EntityID.String())
		}
		counts[f.EntityID]++
	}
	for id, entity := range s.entities {
		if entity.FragmentCount != counts[id] {
			return dErrors.New(dErrors.CodeIntegrity,
				"fragment_count drift for entity "+id.String())
		}
	}
	return nil
}

func sortByRecency(entities []models.Entity) {
	sort.Slice(entities, func(i, j int) bool {
		if !entities[i].CreatedAt.Equal(entities[j].CreatedAt) {
			return entities[i].CreatedAt.After(entities[j].CreatedAt)
		}
		return entities[i].EntityID.Seq() > entities[j].EntityID.Seq()
	})
}
