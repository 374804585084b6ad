package pg

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/portalgate/pkg/rbac"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

// DB is the part of *pgxpool.Pool the stores use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SessionStore implements session.Store on the sessions table.
type SessionStore struct {
	db  DB
	now func() time.Time
}

func NewSessionStore(db DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

const upsertSession = `
INSERT INTO sessions (id, user_id, data, expires_at, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE
SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = now()`

func (s *SessionStore) Save(ctx context.Context, rec session.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, upsertSession, rec.ID, rec.UserID, data, rec.ExpiresAt)
	return err
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// LoadAll returns the records that have not expired yet.
func (s *SessionStore) LoadAll(ctx context.Context) ([]session.Record, error) {
	rows, err := s.db.Query(ctx, `SELECT data FROM sessions WHERE expires_at > $1 ORDER BY id`, s.now())
	if err != nil {
		return nil, err
	}
	return collectJSON[session.Record](rows)
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ProfileStore implements rbac.ProfileStore on the rbac_profiles table.
type ProfileStore struct {
	db DB
}

func NewProfileStore(db DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const upsertProfile = `
INSERT INTO rbac_profiles (user_id, data, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE
SET data = EXCLUDED.data, updated_at = now()`

func (s *ProfileStore) SaveProfile(ctx context.Context, p rbac.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, upsertProfile, p.UserID, data)
	return err
}

func (s *ProfileStore) DeleteProfile(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM rbac_profiles WHERE user_id = $1`, userID)
	return err
}

func (s *ProfileStore) LoadProfiles(ctx context.Context) ([]rbac.Profile, error) {
	rows, err := s.db.Query(ctx, `SELECT data FROM rbac_profiles ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	return collectJSON[rbac.Profile](rows)
}

func collectJSON[T any](rows pgx.Rows) ([]T, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
		var (
			raw []byte
			v   T
		)
		if err := row.Scan(&raw); err != nil {
			return v, err
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return v, errors.Join(ErrDecode, err)
		}
		return v, nil
	})
}
