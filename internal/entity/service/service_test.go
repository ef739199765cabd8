package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"privacore/internal/audit"
	auditStore "privacore/internal/audit/store"
	"privacore/internal/entity/service"
	entityStore "privacore/internal/entity/store"
	"privacore/internal/linker"
	"privacore/pkg/domain"
	dErrors "privacore/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctx   context.Context
	store *entityStore.MemoryStore
	audit *auditStore.MemoryStore
	svc   *service.Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = entityStore.NewMemoryStore()
	s.audit = auditStore.NewMemoryStore()
	trail := audit.NewTrail(s.audit)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = service.New(s.store, trail, logger, nil)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func frag(value, kind, source string) linker.Fragment {
	k, _ := domain.ParseFragmentKind(kind)
	return linker.Fragment{Value: value, Kind: k, Source: source}
}

// The canonical flow: two near-duplicate emails collapse into one entity,
// the third stands alone, and every step leaves a verifiable audit trail.
func (s *ServiceSuite) TestIngestBatch_FullPipeline() {
	fragments := []linker.Fragment{
		frag("john.smith@corp.dk", "EMAIL", "crm_export.csv"),
		frag("John.Smith@corp.dk", "EMAIL", "mail_sys.csv"),
		frag("jane.doe@corp.dk", "EMAIL", "crm_export.csv"),
	}

	result, err := s.svc.IngestBatch(s.ctx, "dpo@corp.dk", fragments, 0.85)
	s.Require().NoError(err)
	s.Equal(2, result.EntitiesCreated)
	s.Equal(3, result.FragmentsLinked)
	s.NotEmpty(result.ProofHash)
	s.Len(result.ProofHash, 64)

	s.Run("both similar fragments share one entity", func() {
		s.Equal(result.Assignments[0], result.Assignments[1])
		s.NotEqual(result.Assignments[0], result.Assignments[2])
	})

	s.Run("statistics reflect the persisted mapping", func() {
		stats, err := s.svc.GetStatistics(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, stats.TotalEntities)
		s.Equal(3, stats.TotalFragments)
		s.InDelta(1.5, stats.AvgFragmentsPerEntity, 0.0001)
		s.Equal(0, stats.ErasuresPerformed)
	})

	s.Run("scan and link entries recorded in order", func() {
		entries, err := s.audit.Recent(s.ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(audit.OperationLink, entries[0].Operation)
		s.Equal(audit.OperationScan, entries[1].Operation)
		s.Equal(result.ProofHash, entries[1].Fields["proof_hash"])
		s.Equal([]string{"crm_export.csv", "mail_sys.csv"}, entries[1].Fields["source_files"])
	})
}

func (s *ServiceSuite) TestIngestBatch_SkipsBlankValues() {
	fragments := []linker.Fragment{
		frag("", "EMAIL", "a.csv"),
		frag("john@corp.dk", "EMAIL", "a.csv"),
		frag("   ", "EMAIL", "a.csv"),
	}

	result, err := s.svc.IngestBatch(s.ctx, "dpo@corp.dk", fragments, 0.85)
	s.Require().NoError(err)
	s.Equal(1, result.EntitiesCreated)
	s.Equal(1, result.FragmentsLinked)
	s.Equal([]int{0, 2}, result.SkippedIndexes)
}

func (s *ServiceSuite) TestIngestBatch_RejectsBadThreshold() {
	_, err := s.svc.IngestBatch(s.ctx, "dpo@corp.dk", []linker.Fragment{frag("x", "EMAIL", "a.csv")}, 1.5)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))

	entries, auditErr := s.audit.Recent(s.ctx, 10)
	s.Require().NoError(auditErr)
	s.Empty(entries, "a rejected batch must leave no audit trace")
}

func (s *ServiceSuite) TestIngestBatch_SecondBatchContinuesNumbering() {
	_, err := s.svc.IngestBatch(s.ctx, "dpo@corp.dk", []linker.Fragment{frag("aaaa@corp.dk", "EMAIL", "a.csv")}, 0.85)
	s.Require().NoError(err)

	result, err := s.svc.IngestBatch(s.ctx, "dpo@corp.dk", []linker.Fragment{frag("zzzz@mail.dk", "EMAIL", "b.csv")}, 0.85)
	s.Require().NoError(err)
	s.Equal(domain.EntityID("E-000002"), result.Assignments[0])
}

// Two batches ingested at the same time must land on distinct entities.
// Each ID comes from an atomic store reservation, so no interleaving can
// merge unrelated subjects under one golden record.
func (s *ServiceSuite) TestIngestBatch_ConcurrentBatchesStayIsolated() {
	batches := [][]linker.Fragment{
		{frag("john@x.com", "EMAIL", "a.csv")},
		{frag("completely.different.person@y.org", "EMAIL", "b.csv")},
	}

	var wg sync.WaitGroup
	results := make([]*service.IngestResult, len(batches))
	errs := make([]error, len(batches))
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []linker.Fragment) {
			defer wg.Done()
			results[i], errs[i] = s.svc.IngestBatch(s.ctx, "dpo@corp.dk", batch, 0.85)
		}(i, batch)
	}
	wg.Wait()

	s.Require().NoError(errs[0])
	s.Require().NoError(errs[1])
	s.NotEqual(results[0].Assignments[0], results[1].Assignments[0],
		"unrelated batches must never share an entity ID")

	for i, want := range []string{"john@x.com", "completely.different.person@y.org"} {
		detail, err := s.svc.GetEntity(s.ctx, "dpo@corp.dk", results[i].Assignments[0].String(), "verification")
		s.Require().NoError(err)
		s.Require().Len(detail.Fragments, 1)
		s.Equal(want, detail.Fragments[0].Value)
	}
}

func (s *ServiceSuite) TestGetEntity_RecordsAccess() {
	ingest, err := s.svc.IngestBatch(s.ctx, "dpo@corp.dk", []linker.Fragment{frag("john@corp.dk", "EMAIL", "a.csv")}, 0.85)
	s.Require().NoError(err)
	id := ingest.Assignments[0]

	detail, err := s.svc.GetEntity(s.ctx, "analyst@corp.dk", id.String(), "dsar")
	s.Require().NoError(err)
	s.Equal(id, detail.Entity.EntityID)
	s.Len(detail.Fragments, 1)

	entries, err := s.audit.ByUser(s.ctx, "analyst@corp.dk")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.OperationAccess, entries[0].Operation)
	s.Equal(id.String(), entries[0].EntityID)
	s.Equal("dsar", entries[0].Fields["purpose"])
}

func (s *ServiceSuite) TestGetEntity_UnknownLeavesNoAccessEntry() {
	_, err := s.svc.GetEntity(s.ctx, "analyst@corp.dk", "E-999999", "dsar")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	entries, auditErr := s.audit.Recent(s.ctx, 10)
	s.Require().NoError(auditErr)
	s.Empty(entries)
}

func (s *ServiceSuite) TestGetEntity_MalformedID() {
	_, err := s.svc.GetEntity(s.ctx, "analyst@corp.dk", "banana", "dsar")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestEraseEntity() {
	ingest, err := s.svc.IngestBatch(s.ctx, "dpo@corp.dk", []linker.Fragment{
		frag("john.smith@corp.dk", "EMAIL", "a.csv"),
		frag("John.Smith@corp.dk", "EMAIL", "b.csv"),
	}, 0.85)
	s.Require().NoError(err)
	id := ingest.Assignments[0]

	result, err := s.svc.EraseEntity(s.ctx, "dpo@corp.dk", id.String(), "subject@mail.dk", "gdpr article 17")
	s.Require().NoError(err)
	s.Equal(id, result.EntityID)
	s.Equal(2, result.FragmentsDeleted)

	s.Run("entity is gone", func() {
		_, err := s.svc.GetEntity(s.ctx, "dpo@corp.dk", id.String(), "verify")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("erasure counted in statistics", func() {
		stats, err := s.svc.GetStatistics(s.ctx)
		s.Require().NoError(err)
		s.Equal(0, stats.TotalEntities)
		s.Equal(1, stats.ErasuresPerformed)
	})

	s.Run("erasure audit entry carries the justification", func() {
		entries, err := s.audit.ByEntity(s.ctx, id)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(audit.OperationErasure, entries[0].Operation)
		s.Equal("subject@mail.dk", entries[0].Fields["requested_by"])
		s.Equal("gdpr article 17", entries[0].Fields["reason"])
	})
}

func (s *ServiceSuite) TestEraseEntity_UnknownHasNoEffects() {
	_, err := s.svc.EraseEntity(s.ctx, "dpo@corp.dk", "E-424242", "subject@mail.dk", "gdpr article 17")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	entries, auditErr := s.audit.Recent(s.ctx, 10)
	s.Require().NoError(auditErr)
	s.Empty(entries, "failed erasure must not be recorded")

	stats, statsErr := s.svc.GetStatistics(s.ctx)
	s.Require().NoError(statsErr)
	s.Equal(0, stats.ErasuresPerformed)
}

func (s *ServiceSuite) TestEraseEntity_RequiresJustification() {
	for _, tc := range []struct {
		name        string
		requestedBy string
		reason      string
	}{
		{"missing requested_by", "", "gdpr article 17"},
		{"missing reason", "subject@mail.dk", ""},
	} {
		s.Run(tc.name, func() {
			_, err := s.svc.EraseEntity(s.ctx, "dpo@corp.dk", "E-000001", tc.requestedBy, tc.reason)
			s.Require().Error(err)
			s.True(dErrors.Is(err, dErrors.CodeBadRequest))
		})
	}
}

func (s *ServiceSuite) TestEraseEntity_IDNeverReissued() {
	ingest, err := s.svc.IngestBatch(s.ctx, "dpo@corp.dk", []linker.Fragment{frag("john@corp.dk", "EMAIL", "a.csv")}, 0.85)
	s.Require().NoError(err)
	id := ingest.Assignments[0]

	_, err = s.svc.EraseEntity(s.ctx, "dpo@corp.dk", id.String(), "subject@mail.dk", "gdpr article 17")
	s.Require().NoError(err)

	next, err := s.svc.IngestBatch(s.ctx, "dpo@corp.dk", []linker.Fragment{frag("completely@different.dk", "EMAIL", "b.csv")}, 0.85)
	s.Require().NoError(err)
	s.NotEqual(id, next.Assignments[0])
	s.Equal(domain.EntityID("E-000002"), next.Assignments[0])
}

func (s *ServiceSuite) TestSearchEntities_RejectsEmptyQuery() {
	_, err := s.svc.SearchEntities(s.ctx, "")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestExportGoldenRecords() {
	_, err := s.svc.IngestBatch(s.ctx, "dpo@corp.dk", []linker.Fragment{
		frag("john.smith@corp.dk", "EMAIL", "a.csv"),
		frag("John.Smith@corp.dk", "EMAIL", "b.csv"),
	}, 0.85)
	s.Require().NoError(err)

	records, err := s.svc.ExportGoldenRecords(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Len(records[0].Fragments, 2)
}
