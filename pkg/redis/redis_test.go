package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/portalgate/pkg/rbac"
	"github.com/dmitrymomot/portalgate/pkg/redis"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

func setup(t *testing.T) (*miniredis.Miniredis, *goredis.Client, redis.Config) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cfg := redis.Config{
		ConnectionURL:  "redis://" + mr.Addr() + "/0",
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: time.Second,
		KeyPrefix:      "test:",
		ScanBatchSize:  2,
	}
	return mr, client, cfg
}

func TestConnect(t *testing.T) {
	t.Parallel()

	_, _, cfg := setup(t)
	client, err := redis.Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, redis.Healthcheck(client)(context.Background()))
}

func TestConnect_Errors(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{ConnectionURL: "://bad", ConnectTimeout: time.Second})
	assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "redis://" + addr,
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: time.Second,
	})
	assert.ErrorIs(t, err, redis.ErrRedisNotReady)
}

func TestSessionStore(t *testing.T) {
	t.Parallel()

	mr, client, cfg := setup(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	store := redis.NewSessionStore(client, cfg)
	store.SetClock(func() time.Time { return now })

	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, store.Save(ctx, session.Record{
			ID:           id,
			UserID:       "user-1",
			Role:         "investor",
			CreatedAt:    now,
			LastActivity: now,
			ExpiresAt:    now.Add(8 * time.Hour),
			Permissions:  []string{"documents:view"},
		}))
	}

	assert.True(t, mr.Exists("test:session:s1"))
	assert.Equal(t, 8*time.Hour, mr.TTL("test:session:s1"))

	recs, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "user-1", recs[0].UserID)
	assert.Equal(t, []string{"documents:view"}, recs[0].Permissions)

	require.NoError(t, store.Delete(ctx, "s2"))
	require.NoError(t, store.Delete(ctx, "missing"))
	recs, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	mr.FastForward(9 * time.Hour)
	recs, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSessionStore_SaveExpiredDeletes(t *testing.T) {
	t.Parallel()

	mr, client, cfg := setup(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store := redis.NewSessionStore(client, cfg)
	store.SetClock(func() time.Time { return now })

	rec := session.Record{ID: "s1", UserID: "u", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.Save(ctx, rec))
	require.True(t, mr.Exists("test:session:s1"))

	rec.ExpiresAt = now
	require.NoError(t, store.Save(ctx, rec))
	assert.False(t, mr.Exists("test:session:s1"))
}

func TestSessionStore_ManagerRestore(t *testing.T) {
	t.Parallel()

	_, client, cfg := setup(t)
	ctx := context.Background()
	store := redis.NewSessionStore(client, cfg)

	m1 := session.New(session.WithStore(store))
	id, err := m1.CreateSession(ctx, session.Data{UserID: "user-1", Role: "manager"})
	require.NoError(t, err)
	require.NoError(t, m1.Close(ctx))

	m2 := session.New(session.WithStore(store))
	require.NoError(t, m2.Load(ctx))
	rec := m2.ValidateSession(ctx, id)
	require.NotNil(t, rec)
	assert.Equal(t, "manager", rec.Role)
	require.NoError(t, m2.Close(ctx))
}

func TestProfileStore(t *testing.T) {
	t.Parallel()

	_, client, cfg := setup(t)
	ctx := context.Background()
	store := redis.NewProfileStore(client, cfg)

	reg, err := rbac.NewRegistry(ctx, rbac.NewDefaultRoleSource())
	require.NoError(t, err)

	r1 := rbac.NewResolver(reg, rbac.WithStore(store))
	require.NoError(t, r1.AssignRole("bob", "manager"))
	require.NoError(t, r1.DenyPermission("bob", rbac.DocumentsEdit))
	require.NoError(t, r1.GrantContextualPermission("alice", "data_room", "dr-1", rbac.DocumentsDownload))
	require.NoError(t, r1.Close(ctx))

	profiles, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "alice", profiles[0].UserID)
	assert.Equal(t, "bob", profiles[1].UserID)

	r2 := rbac.NewResolver(reg, rbac.WithStore(store))
	require.NoError(t, r2.Load(ctx))
	assert.True(t, r2.Can("bob", rbac.DocumentsView))
	assert.False(t, r2.Can("bob", rbac.DocumentsEdit))
	assert.True(t, r2.HasPermission("alice", rbac.PermissionContext{
		ResourceType: "data_room", ResourceID: "dr-1", Action: rbac.DocumentsDownload,
	}))

	require.NoError(t, store.DeleteProfile(ctx, "alice"))
	profiles, err = store.LoadProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}
