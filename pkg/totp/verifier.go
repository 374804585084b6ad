package totp

import (
	"crypto/subtle"
	"strings"
	"sync"
	"time"
)

// Verifier checks TOTP codes and rejects a code that was already accepted
// for the same account, so an intercepted code cannot be replayed within
// its validity window.
type Verifier struct {
	skew int
	now  func() time.Time

	mu   sync.Mutex
	last map[string]int64
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithSkew accepts codes from n periods before and after the current one.
func WithSkew(n int) Option {
	return func(v *Verifier) {
		if n >= 0 {
			v.skew = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier creates a Verifier accepting one period of clock drift by default.
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{skew: 1, now: time.Now, last: make(map[string]int64)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify reports whether code is valid for secret now. account scopes
// replay protection and is usually the user id.
func (v *Verifier) Verify(account, secret, code string) (bool, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return false, err
	}
	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		return false, ErrInvalidCode
	}

	current := counterAt(v.now())

	v.mu.Lock()
	defer v.mu.Unlock()

	for i := -v.skew; i <= v.skew; i++ {
		counter := current + int64(i)
		if last, seen := v.last[account]; seen && counter <= last {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(format(hotp(key, counter))), []byte(code)) == 1 {
			v.last[account] = counter
			return true, nil
		}
	}
	return false, nil
}
