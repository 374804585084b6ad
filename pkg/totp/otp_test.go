package totp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/portalgate/pkg/totp"
)

// RFC 6238 appendix B secret "12345678901234567890" in Base32.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerate_RFCVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}

	for _, tt := range tests {
		got, err := totp.Generate(rfcSecret, time.Unix(tt.unix, 0))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "t=%d", tt.unix)
	}
}

func TestGenerate_InvalidSecret(t *testing.T) {
	t.Parallel()

	_, err := totp.Generate("not base32!", time.Now())
	assert.ErrorIs(t, err, totp.ErrInvalidSecret)

	lower, err := totp.Generate("gezdgnbvgy3tqojqgezdgnbvgy3tqojq", time.Unix(59, 0))
	require.NoError(t, err)
	assert.Equal(t, "287082", lower)
}

func TestVerifier(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	codeAt := func(d time.Duration) string {
		c, err := totp.Generate(rfcSecret, now.Add(d))
		require.NoError(t, err)
		return c
	}

	t.Run("current and adjacent periods", func(t *testing.T) {
		for _, d := range []time.Duration{-totp.Period, 0, totp.Period} {
			v := totp.NewVerifier(totp.WithClock(func() time.Time { return now }))
			ok, err := v.Verify("u", rfcSecret, codeAt(d))
			require.NoError(t, err)
			assert.True(t, ok, "offset %s", d)
		}
	})

	t.Run("outside skew", func(t *testing.T) {
		v := totp.NewVerifier(totp.WithClock(func() time.Time { return now }))
		ok, err := v.Verify("u", rfcSecret, codeAt(3*totp.Period))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("zero skew", func(t *testing.T) {
		v := totp.NewVerifier(totp.WithSkew(0), totp.WithClock(func() time.Time { return now }))
		ok, _ := v.Verify("u", rfcSecret, codeAt(-totp.Period))
		assert.False(t, ok)
	})

	t.Run("replay rejected per account", func(t *testing.T) {
		v := totp.NewVerifier(totp.WithClock(func() time.Time { return now }))
		code := codeAt(0)

		ok, _ := v.Verify("u", rfcSecret, code)
		require.True(t, ok)
		ok, _ = v.Verify("u", rfcSecret, code)
		assert.False(t, ok)

		ok, _ = v.Verify("other", rfcSecret, code)
		assert.True(t, ok)

		// earlier periods are also closed once a later one was used
		ok, _ = v.Verify("u", rfcSecret, codeAt(-totp.Period))
		assert.False(t, ok)
	})

	t.Run("malformed input", func(t *testing.T) {
		v := totp.NewVerifier()
		_, err := v.Verify("u", rfcSecret, "12345")
		assert.ErrorIs(t, err, totp.ErrInvalidCode)
		_, err = v.Verify("u", "lower-case-1", "123456")
		assert.ErrorIs(t, err, totp.ErrInvalidSecret)
	})
}
