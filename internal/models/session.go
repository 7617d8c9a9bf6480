package models

import "time"

// Session represents an authenticated login session.
// Only the SHA-256 hash of the bearer token is stored; the token itself
// is returned to the client once and never persisted.
type Session struct {
	ID        string    `json:"id" badgerhold:"key"`
	UserID    string    `json:"user_id" badgerhold:"index"`
	TokenHash string    `json:"-" badgerhold:"index"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session lifetime has elapsed
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
