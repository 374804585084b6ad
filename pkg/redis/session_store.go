package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/portalgate/pkg/session"
)

// SessionStore keeps session records as JSON strings under
// <prefix>session:<id>, each expiring with the session itself.
type SessionStore struct {
	db            redis.UniversalClient
	prefix        string
	scanBatchSize int64
	now           func() time.Time
}

// NewSessionStore creates a session.Store backed by client.
func NewSessionStore(client redis.UniversalClient, cfg Config) *SessionStore {
	batch := int64(cfg.ScanBatchSize)
	if batch <= 0 {
		batch = 1000
	}
	return &SessionStore{
		db:            client,
		prefix:        cfg.KeyPrefix + "session:",
		scanBatchSize: batch,
		now:           time.Now,
	}
}

func (s *SessionStore) key(id string) string {
	return s.prefix + id
}

// Save writes rec with a TTL ending at rec.ExpiresAt. A record that is
// already past its expiry is removed instead.
func (s *SessionStore) Save(ctx context.Context, rec session.Record) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, rec.ID)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Set(ctx, s.key(rec.ID), data, ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.db.Del(ctx, s.key(id)).Err()
}

// LoadAll scans the session keyspace. Keys that vanish between SCAN and
// MGET are skipped.
func (s *SessionStore) LoadAll(ctx context.Context) ([]session.Record, error) {
	var (
		out    []session.Record
		cursor uint64
	)
	for {
		keys, next, err := s.db.Scan(ctx, cursor, s.prefix+"*", s.scanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		if len(keys) > 0 {
			vals, err := s.db.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, err
			}
			for i, v := range vals {
				raw, ok := v.(string)
				if !ok {
					continue
				}
				var rec session.Record
				if err := json.Unmarshal([]byte(raw), &rec); err != nil {
					return nil, errors.Join(ErrDecode, errors.New(keys[i]), err)
				}
				out = append(out, rec)
			}
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}
