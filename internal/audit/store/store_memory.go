package store

import (
	"context"
	"sync"

	"privacore/internal/audit"
	"privacore/pkg/domain"
)

// MemoryStore keeps entries in an append-only slice. Reads copy out so a
// returned slice never aliases the trail and appends never block readers for
// longer than the copy.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

// NewMemoryStore builds an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]audit.Entry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *MemoryStore) ByUser(ctx context.Context, user string) ([]audit.Entry, error) {
	return s.filter(func(e audit.Entry) bool { return e.User == user })
}

func (s *MemoryStore) ByEntity(ctx context.Context, entityID domain.EntityID) ([]audit.Entry, error) {
	return s.filter(func(e audit.Entry) bool { return e.EntityID == entityID.String() })
}

func (s *MemoryStore) filter(keep func(audit.Entry) bool) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if keep(s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}
