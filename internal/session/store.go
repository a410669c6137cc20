package session

import (
	"context"
	"time"

	"xfeed/internal/auth"
	"xfeed/internal/auth/credentials"
)

// IdleTimeout is how long a session survives without a request.
const IdleTimeout = 24 * time.Hour

// Session is the per-browser state. Handlers receive a copy, change it and
// write it back through the Store; nothing holds a shared pointer to it.
type Session struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"` // sliding inactivity expiry

	// Handshake is set only between the initiate and callback steps.
	Handshake *Handshake `json:"handshake,omitempty"`

	User      *auth.Identity         `json:"user,omitempty"`
	Delegated *credentials.UserToken `json:"delegated,omitempty"`
}

// Handshake is the transient state of an unfinished login.
type Handshake struct {
	Strategy     string `json:"strategy"`
	Token        string `json:"token,omitempty"`         // OAuth 1.0a request token
	Secret       string `json:"secret,omitempty"`        // request token secret
	State        string `json:"state,omitempty"`         // OIDC anti-forgery value
	PKCEVerifier string `json:"pkce_verifier,omitempty"` // OIDC code verifier
}

// New returns an empty session expiring after IdleTimeout.
func New(id string, now time.Time) Session {
	return Session{
		SessionID: id,
		CreatedAt: now,
		ExpiresAt: now.Add(IdleTimeout),
	}
}

// Authenticated reports whether a handshake has completed in this session.
func (s Session) Authenticated() bool {
	return s.User != nil
}

// Expired reports whether the session's inactivity window has passed.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Touch moves the expiry IdleTimeout past now.
func (s Session) Touch(now time.Time) Session {
	s.ExpiresAt = now.Add(IdleTimeout)
	return s
}

// WithHandshake records a pending handshake, replacing any earlier one.
func (s Session) WithHandshake(h Handshake) Session {
	s.Handshake = &h
	return s
}

// ClearHandshake drops the pending handshake fields.
func (s Session) ClearHandshake() Session {
	s.Handshake = nil
	return s
}

// Authenticate stores the result of a completed handshake. delegated is nil
// for identity-provider logins.
func (s Session) Authenticate(user auth.Identity, delegated *credentials.UserToken) Session {
	s.Handshake = nil
	s.User = &user
	s.Delegated = delegated
	return s
}

// Store defines how sessions are stored and retrieved.
// Get returns nil, nil for a missing or expired session.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}
