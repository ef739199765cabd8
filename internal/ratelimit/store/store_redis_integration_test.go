//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"privacore/internal/ratelimit/store"
	"privacore/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisStoreSuite) TestAllowWithinLimit() {
	for i := 0; i < 3; i++ {
		result, err := s.store.Allow(s.ctx, "dpo@corp.dk", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
	}

	result, err := s.store.Allow(s.ctx, "dpo@corp.dk", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)

	// ResetAt derives from the oldest recorded score; a parse failure
	// there would collapse it to the epoch.
	s.True(result.ResetAt.After(time.Now()), "ResetAt must be in the future, got %v", result.ResetAt)
	s.WithinDuration(time.Now().Add(time.Minute), result.ResetAt, 10*time.Second)
}

func (s *RedisStoreSuite) TestKeysAreIndependent() {
	_, err := s.store.Allow(s.ctx, "alice", 1, time.Minute)
	s.Require().NoError(err)

	result, err := s.store.Allow(s.ctx, "bob", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisStoreSuite) TestReset() {
	_, err := s.store.Allow(s.ctx, "dpo@corp.dk", 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(s.ctx, "dpo@corp.dk"))

	result, err := s.store.Allow(s.ctx, "dpo@corp.dk", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

// TestConcurrentAllow verifies the limit holds under concurrent callers:
// the total allowed never exceeds the limit.
func (s *RedisStoreSuite) TestConcurrentAllow() {
	const goroutines = 50
	limit := 10

	var wg sync.WaitGroup
	var allowed atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.store.Allow(s.ctx, "concurrent", limit, time.Minute)
			s.Require().NoError(err)
			if result.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(limit, int(allowed.Load()))
}
