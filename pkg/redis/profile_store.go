package redis

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/portalgate/pkg/rbac"
)

// ProfileStore keeps every permission profile in one hash,
// <prefix>rbac:profiles, keyed by user id.
type ProfileStore struct {
	db  redis.UniversalClient
	key string
}

// NewProfileStore creates an rbac.ProfileStore backed by client.
func NewProfileStore(client redis.UniversalClient, cfg Config) *ProfileStore {
	return &ProfileStore{db: client, key: cfg.KeyPrefix + "rbac:profiles"}
}

func (s *ProfileStore) SaveProfile(ctx context.Context, p rbac.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.HSet(ctx, s.key, p.UserID, data).Err()
}

func (s *ProfileStore) DeleteProfile(ctx context.Context, userID string) error {
	return s.db.HDel(ctx, s.key, userID).Err()
}

// LoadProfiles returns all profiles ordered by user id.
func (s *ProfileStore) LoadProfiles(ctx context.Context) ([]rbac.Profile, error) {
	all, err := s.db.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]rbac.Profile, 0, len(all))
	for userID, raw := range all {
		var p rbac.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, errors.Join(ErrDecode, errors.New(userID), err)
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b rbac.Profile) int { return strings.Compare(a.UserID, b.UserID) })
	return out, nil
}
