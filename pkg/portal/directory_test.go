package portal_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/portalgate/pkg/portal"
)

func TestYAMLDirectory(t *testing.T) {
	t.Parallel()

	h, err := portal.HashPassword("s3cret-pass")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - id: u1
    email: LP@example.com
    role: investor
    password_hash: "`+h+`"
  - id: u2
    email: nopass@example.com
    role: viewer
`), 0o600))

	dir, err := portal.NewYAMLDirectory(path)
	require.NoError(t, err)
	ctx := context.Background()

	u, err := dir.Authenticate(ctx, " lp@EXAMPLE.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.False(t, u.MFAEnrolled())

	_, err = dir.Authenticate(ctx, "lp@example.com", "wrong")
	assert.ErrorIs(t, err, portal.ErrInvalidCredentials)

	_, err = dir.Authenticate(ctx, "nopass@example.com", "")
	assert.ErrorIs(t, err, portal.ErrInvalidCredentials)

	got, err := dir.User(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "viewer", got.Role)

	_, err = dir.User(ctx, "missing")
	assert.ErrorIs(t, err, portal.ErrUserNotFound)
}

func TestYAMLDirectory_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"duplicate id":    "users:\n  - {id: a, email: a@x.io}\n  - {id: a, email: b@x.io}\n",
		"duplicate email": "users:\n  - {id: a, email: a@x.io}\n  - {id: b, email: A@x.io}\n",
		"missing email":   "users:\n  - {id: a}\n",
		"unknown field":   "users:\n  - {id: a, email: a@x.io, admin: true}\n",
	}
	for name, doc := range tests {
		_, err := portal.NewYAMLDirectoryFromReader(strings.NewReader(doc))
		assert.ErrorIs(t, err, portal.ErrInvalidDirectory, name)
	}

	_, err := portal.NewYAMLDirectory(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, portal.ErrInvalidDirectory)

	empty, err := portal.NewYAMLDirectoryFromReader(strings.NewReader(""))
	require.NoError(t, err)
	_, err = empty.User(context.Background(), "x")
	assert.ErrorIs(t, err, portal.ErrUserNotFound)
}
