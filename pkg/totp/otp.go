package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	Digits = 6
	Period = 30 * time.Second
)

var (
	secretPattern = regexp.MustCompile("^[A-Z2-7]+=*$")
	codePattern   = regexp.MustCompile(`^\d{6}$`)
	encoding      = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// Generate returns the code for the period containing t.
func Generate(secret string, t time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return format(hotp(key, counterAt(t))), nil
}

func normalizeSecret(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func decodeSecret(secret string) ([]byte, error) {
	secret = normalizeSecret(secret)
	if !secretPattern.MatchString(secret) {
		return nil, ErrInvalidSecret
	}
	key, err := encoding.DecodeString(strings.TrimRight(secret, "="))
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	return key, nil
}

func counterAt(t time.Time) int64 {
	return t.Unix() / int64(Period/time.Second)
}

func format(code int) string {
	return fmt.Sprintf("%0*d", Digits, code)
}

// hotp implements RFC 4226 with HMAC-SHA1 and dynamic truncation.
func hotp(key []byte, counter int64) int {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return int(code % 1_000_000)
}
