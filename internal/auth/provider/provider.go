package provider

import (
	"context"
	"net/url"

	"xfeed/internal/auth"
	"xfeed/internal/auth/credentials"
	"xfeed/internal/session"
)

// Strategy is one login mechanism. Implementations run the protocol steps
// and return facts; they never read or write the session store. Errors
// from Complete are *apperr.Rejection values.
type Strategy interface {
	// Name returns the identifier used in /auth/{name} routes.
	Name() string

	// Begin starts a handshake. The returned Handshake must be stored in the
	// session before the browser is sent to authURL.
	Begin(ctx context.Context) (authURL string, pending session.Handshake, err error)

	// Complete validates the callback query against the pending handshake
	// and finishes the exchange.
	Complete(ctx context.Context, pending *session.Handshake, query url.Values) (*Result, error)
}

// Result is a completed login. Delegated is nil for strategies that do not
// obtain a platform credential.
type Result struct {
	Identity  auth.Identity
	Delegated *credentials.UserToken
}
