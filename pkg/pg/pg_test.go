package pg_test

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/portalgate/pkg/logger"
	"github.com/dmitrymomot/portalgate/pkg/pg"
	"github.com/dmitrymomot/portalgate/pkg/rbac"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB records Exec calls and answers Query with canned JSON rows.
type fakeDB struct {
	execs []execCall
	rows  [][]byte
	tag   string
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag(f.tag), nil
}

func (f *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return &fakeRows{data: f.rows, pos: -1}, nil
}

type fakeRows struct {
	data [][]byte
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return []any{r.data[r.pos]}, nil }
func (r *fakeRows) RawValues() [][]byte                          { return [][]byte{r.data[r.pos]} }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	p, ok := dest[0].(*[]byte)
	if !ok {
		return errors.New("unexpected scan target")
	}
	*p = r.data[r.pos]
	return nil
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestSessionStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	exp := time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)
	rec := session.Record{ID: "s1", UserID: "user-1", Role: "investor", ExpiresAt: exp}

	db := &fakeDB{rows: [][]byte{mustJSON(t, rec)}, tag: "DELETE 4"}
	store := pg.NewSessionStore(db)

	require.NoError(t, store.Save(ctx, rec))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "INSERT INTO sessions")
	assert.Equal(t, "s1", db.execs[0].args[0])
	assert.Equal(t, "user-1", db.execs[0].args[1])
	assert.Equal(t, exp, db.execs[0].args[3])

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.Contains(t, db.execs[1].sql, "DELETE FROM sessions")

	recs, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "investor", recs[0].Role)

	n, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestProfileStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := rbac.Profile{UserID: "bob", Roles: []string{"manager"}, Denied: []rbac.Permission{rbac.DocumentsEdit}}
	db := &fakeDB{rows: [][]byte{mustJSON(t, p)}}
	store := pg.NewProfileStore(db)

	require.NoError(t, store.SaveProfile(ctx, p))
	assert.Contains(t, db.execs[0].sql, "INSERT INTO rbac_profiles")
	require.NoError(t, store.DeleteProfile(ctx, "bob"))
	assert.Equal(t, []any{"bob"}, db.execs[1].args)

	got, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rbac.Profile{p}, got)
}

func TestLoadDecodeError(t *testing.T) {
	t.Parallel()

	store := pg.NewProfileStore(&fakeDB{rows: [][]byte{[]byte("{not json")}})
	_, err := store.LoadProfiles(context.Background())
	assert.ErrorIs(t, err, pg.ErrDecode)
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, pg.IsDuplicateKeyError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, pg.IsDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, pg.IsDuplicateKeyError(nil))
	assert.True(t, pg.IsNotFoundError(errors.Join(errors.New("ctx"), pgx.ErrNoRows)))
}

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	files, err := fs.Glob(pg.Migrations(), "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(pg.Migrations(), files[0])
	require.NoError(t, err)
	s := string(body)
	assert.True(t, strings.HasPrefix(s, "-- +goose Up"))
	assert.Contains(t, s, "-- +goose Down")
	assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS sessions")
	assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS rbac_profiles")
}

// TestPostgres runs against a real server when PG_TEST_URL is set.
func TestPostgres(t *testing.T) {
	url := os.Getenv("PG_TEST_URL")
	if url == "" {
		t.Skip("PG_TEST_URL not set")
	}

	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: url,
		MaxOpenConns:     4,
		MaxIdleConns:     1,
		RetryAttempts:    1,
		RetryInterval:    time.Second,
		MigrationsTable:  "portalgate_test_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, pg.Healthcheck(pool)(ctx))
	require.NoError(t, pg.Migrate(ctx, pool, cfg, logger.Discard()))

	store := pg.NewSessionStore(pool)
	m := session.New(session.WithStore(store))
	id, err := m.CreateSession(ctx, session.Data{UserID: "pg-user"})
	require.NoError(t, err)
	require.NoError(t, m.Close(ctx))

	recs, err := store.LoadAll(ctx)
	require.NoError(t, err)
	var found bool
	for _, r := range recs {
		found = found || r.ID == id
	}
	assert.True(t, found)
	require.NoError(t, store.Delete(ctx, id))
}
