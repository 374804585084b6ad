package rbac

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// ProfileStore persists user permission profiles.
// The Resolver keeps the authoritative copy in memory and writes through
// the store asynchronously; the store is read only at startup.
type ProfileStore interface {
	SaveProfile(ctx context.Context, p Profile) error
	DeleteProfile(ctx context.Context, userID string) error
	LoadProfiles(ctx context.Context) ([]Profile, error)
}

// MemoryProfileStore is a ProfileStore for tests and single-process setups.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]Profile)}
}

func (s *MemoryProfileStore) SaveProfile(ctx context.Context, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *MemoryProfileStore) DeleteProfile(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
	return nil
}

func (s *MemoryProfileStore) LoadProfiles(ctx context.Context) ([]Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := slices.Sorted(maps.Keys(s.profiles))
	out := make([]Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.profiles[id])
	}
	return out, nil
}

// Len returns the number of stored profiles.
func (s *MemoryProfileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
