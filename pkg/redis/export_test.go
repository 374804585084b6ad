package redis

import "time"

// SetClock replaces the clock used to compute key TTLs.
func (s *SessionStore) SetClock(now func() time.Time) {
	s.now = now
}
