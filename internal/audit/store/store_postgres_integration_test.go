//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"privacore/internal/audit"
	"privacore/internal/audit/store"
	"privacore/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())

	var err error
	s.store, err = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(err)
}

func (s *PostgresAuditSuite) SetupTest() {
	err := s.postgres.TruncateAll(s.ctx, "audit_entries")
	s.Require().NoError(err)
}

func (s *PostgresAuditSuite) entry(op audit.Operation, user, entityID string, at time.Time) audit.Entry {
	return audit.Entry{
		ID:        uuid.New(),
		Operation: op,
		Timestamp: at,
		User:      user,
		EntityID:  entityID,
		Fields:    map[string]any{"purpose": "dsar"},
	}
}

func (s *PostgresAuditSuite) TestAppendAndRecent() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.store.Append(s.ctx, s.entry(audit.OperationScan, "dpo@corp.dk", "", base.Add(time.Duration(i)*time.Minute)))
		s.Require().NoError(err)
	}

	entries, err := s.store.Recent(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.True(entries[0].Timestamp.After(entries[1].Timestamp), "newest first")
	s.Equal("dsar", entries[0].Fields["purpose"])
}

func (s *PostgresAuditSuite) TestByUser() {
	now := time.Now().UTC()
	s.Require().NoError(s.store.Append(s.ctx, s.entry(audit.OperationAccess, "alice@corp.dk", "E-000001", now)))
	s.Require().NoError(s.store.Append(s.ctx, s.entry(audit.OperationAccess, "bob@corp.dk", "E-000001", now)))

	entries, err := s.store.ByUser(s.ctx, "alice@corp.dk")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("alice@corp.dk", entries[0].User)
}

func (s *PostgresAuditSuite) TestByEntity() {
	now := time.Now().UTC()
	s.Require().NoError(s.store.Append(s.ctx, s.entry(audit.OperationAccess, "alice@corp.dk", "E-000001", now)))
	s.Require().NoError(s.store.Append(s.ctx, s.entry(audit.OperationErasure, "alice@corp.dk", "E-000002", now)))

	entries, err := s.store.ByEntity(s.ctx, "E-000002")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.OperationErasure, entries[0].Operation)
}

func (s *PostgresAuditSuite) TestAppendPreservesTraceID() {
	e := s.entry(audit.OperationErasure, "dpo@corp.dk", "E-000001", time.Now().UTC())
	e.TraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	s.Require().NoError(s.store.Append(s.ctx, e))

	entries, err := s.store.Recent(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(e.TraceID, entries[0].TraceID)
}
