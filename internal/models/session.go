package models

import "time"

// Session binds an opaque token to a user email until ExpiresAt.
// Sessions are only ever created and deleted.
type Session struct {
	ID        int64
	SessionID string
	UserEmail string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExpiredAt reports whether the session is no longer valid at t.
// A session expiring exactly at t is already expired.
func (s Session) ExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
