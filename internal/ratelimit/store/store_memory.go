package store

import (
	"context"
	"sync"
	"time"

	"privacore/internal/ratelimit/models"
)

// MemoryStore implements BucketStore with in-process sliding windows.
// Suitable for single-instance deployments; use RedisStore when the
// limit must hold across replicas.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*window
}

type window struct {
	timestamps []time.Time
	span       time.Duration
}

func NewMemory() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*window)}
}

func (s *MemoryStore) Allow(ctx context.Context, key string, limit int, span time.Duration) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w := s.buckets[key]
	if w == nil {
		w = &window{span: span}
		s.buckets[key] = w
	}
	w.prune(now)

	if len(w.timestamps) >= limit {
		return &models.Result{
			Allowed: false,
			Limit:   limit,
			ResetAt: w.timestamps[0].Add(span),
		}, nil
	}

	w.timestamps = append(w.timestamps, now)
	return &models.Result{
		Allowed:   true,
		Remaining: limit - len(w.timestamps),
		Limit:     limit,
		ResetAt:   w.timestamps[0].Add(span),
	}, nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for ; i < len(w.timestamps); i++ {
		if w.timestamps[i].After(cutoff) {
			break
		}
	}
	w.timestamps = w.timestamps[i:]
}
