package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"privacore/internal/entity/models"
	"privacore/internal/linker"
	"privacore/pkg/domain"
	dErrors "privacore/pkg/domain-errors"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.ctx = context.Background()
}

func cluster(id domain.EntityID, confidence float64, members ...linker.Fragment) *linker.Cluster {
	c := &linker.Cluster{EntityID: id, Confidence: confidence, CreatedAt: time.Now().UTC()}
	for _, m := range members {
		c.Members = append(c.Members, linker.Member{Fragment: m, Score: 1.0})
	}
	return c
}

func (s *MemoryStoreSuite) seedTwoEntities() {
	err := s.store.SaveMapping(s.ctx, []*linker.Cluster{
		cluster("E-000001", 1.0,
			linker.Fragment{Value: "john@x.com", Kind: domain.KindEmail, Source: "a.txt"},
			linker.Fragment{Value: "john@x.com", Kind: domain.KindEmail, Source: "b.txt"},
		),
		cluster("E-000002", 1.0,
			linker.Fragment{Value: "jane@y.com", Kind: domain.KindEmail, Source: "c.txt"},
		),
	})
	s.Require().NoError(err)
}

func (s *MemoryStoreSuite) TestSaveMappingRecountsFragments() {
	s.seedTwoEntities()

	first, err := s.store.GetEntity(s.ctx, "E-000001")
	s.Require().NoError(err)
	s.Equal(2, first.Entity.FragmentCount)
	s.Len(first.Fragments, 2)

	second, err := s.store.GetEntity(s.ctx, "E-000002")
	s.Require().NoError(err)
	s.Equal(1, second.Entity.FragmentCount)

	s.NoError(s.store.CheckIntegrity(s.ctx))
}

func (s *MemoryStoreSuite) TestSaveMappingMergeKeepsConfidence() {
	s.seedTwoEntities()

	// Confidence is similarity at creation time; a merge must not rewrite it.
	err := s.store.SaveMapping(s.ctx, []*linker.Cluster{
		cluster("E-000001", 0.42,
			linker.Fragment{Value: "j.smith@x.com", Kind: domain.KindEmail, Source: "d.txt"},
		),
	})
	s.Require().NoError(err)

	detail, err := s.store.GetEntity(s.ctx, "E-000001")
	s.Require().NoError(err)
	s.Equal(1.0, detail.Entity.Confidence)
	s.Equal(3, detail.Entity.FragmentCount)
	s.NoError(s.store.CheckIntegrity(s.ctx))
}

func (s *MemoryStoreSuite) TestGetEntityNotFound() {
	_, err := s.store.GetEntity(s.ctx, "E-999999")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *MemoryStoreSuite) TestSearchEntities() {
	s.seedTwoEntities()

	s.Run("matches value case-insensitively", func() {
		results, err := s.store.SearchEntities(s.ctx, "JOHN")
		s.Require().NoError(err)
		s.Require().Len(results, 1)
		s.Equal(domain.EntityID("E-000001"), results[0].EntityID)
	})

	s.Run("matches source", func() {
		results, err := s.store.SearchEntities(s.ctx, "c.txt")
		s.Require().NoError(err)
		s.Require().Len(results, 1)
		s.Equal(domain.EntityID("E-000002"), results[0].EntityID)
	})

	s.Run("no match yields empty result, not error", func() {
		results, err := s.store.SearchEntities(s.ctx, "nobody")
		s.Require().NoError(err)
		s.Empty(results)
	})
}

func (s *MemoryStoreSuite) TestListEntitiesMostRecentFirst() {
	s.seedTwoEntities()

	results, err := s.store.ListEntities(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal(domain.EntityID("E-000002"), results[0].EntityID)
	s.Equal(domain.EntityID("E-000001"), results[1].EntityID)

	limited, err := s.store.ListEntities(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func (s *MemoryStoreSuite) TestEraseEntity() {
	s.seedTwoEntities()

	deleted, err := s.store.EraseEntity(s.ctx, "E-000001", "dpo@corp.dk", "GDPR art. 17 request")
	s.Require().NoError(err)
	s.Equal(2, deleted)

	_, err = s.store.GetEntity(s.ctx, "E-000001")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	// The other entity and its fragments survive untouched.
	remaining, err := s.store.GetEntity(s.ctx, "E-000002")
	s.Require().NoError(err)
	s.Equal(1, remaining.Entity.FragmentCount)

	stats, err := s.store.GetStatistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.TotalEntities)
	s.Equal(1, stats.TotalFragments)
	s.Equal(1, stats.ErasuresPerformed)
	s.NoError(s.store.CheckIntegrity(s.ctx))
}

func (s *MemoryStoreSuite) TestEraseUnknownEntityHasNoEffects() {
	s.seedTwoEntities()

	_, err := s.store.EraseEntity(s.ctx, "E-999999", "dpo@corp.dk", "cleanup")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	stats, err := s.store.GetStatistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.TotalEntities)
	s.Equal(3, stats.TotalFragments)
	s.Equal(0, stats.ErasuresPerformed)
}

func (s *MemoryStoreSuite) TestErasedIDNeverReissued() {
	s.seedTwoEntities()

	_, err := s.store.EraseEntity(s.ctx, "E-000002", "dpo@corp.dk", "request")
	s.Require().NoError(err)

	seq, err := s.store.AllocateEntitySeq(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(3, seq)
}

func (s *MemoryStoreSuite) TestAllocateEntitySeqReservesRanges() {
	s.seedTwoEntities()

	// Two reservations taken before either batch is saved must not overlap.
	first, err := s.store.AllocateEntitySeq(s.ctx, 2)
	s.Require().NoError(err)
	second, err := s.store.AllocateEntitySeq(s.ctx, 1)
	s.Require().NoError(err)

	s.Equal(3, first)
	s.Equal(5, second)
}

func (s *MemoryStoreSuite) TestGetStatistics() {
	stats, err := s.store.GetStatistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(&models.Statistics{}, stats)

	s.seedTwoEntities()

	stats, err = s.store.GetStatistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.TotalEntities)
	s.Equal(3, stats.TotalFragments)
	s.InDelta(1.5, stats.AvgFragmentsPerEntity, 1e-9)
}

func (s *MemoryStoreSuite) TestExportGoldenRecords() {
	s.seedTwoEntities()

	records, err := s.store.ExportGoldenRecords(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(domain.EntityID("E-000001"), records[0].EntityID)
	s.Len(records[0].Fragments, 2)
	s.Equal(domain.EntityID("E-000002"), records[1].EntityID)
	s.Len(records[1].Fragments, 1)
}
