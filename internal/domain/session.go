package domain

import "time"

// Session is the token handed to a client when it opens a session.
type Session struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
