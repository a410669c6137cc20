package resolver

import (
	"fmt"

	"xfeed/internal/apperr"
	"xfeed/internal/auth/credentials"
	"xfeed/internal/auth/oauth1"
	"xfeed/internal/session"
)

// Resolver decides which credential an outbound API call uses.
// It is the ONLY place where that choice is made.
type Resolver interface {
	Resolve(sess *session.Session) (credentials.Credential, error)
}

// SessionResolver prefers a user's delegated token over the shared
// application bearer token. It runs on every proxied call and caches
// nothing.
type SessionResolver struct {
	shared *credentials.Bearer
	signer *oauth1.Signer
}

// New builds a resolver. shared and signer may each be nil when the
// corresponding credential is not configured.
func New(shared *credentials.Bearer, signer *oauth1.Signer) *SessionResolver {
	return &SessionResolver{shared: shared, signer: signer}
}

func (r *SessionResolver) Resolve(sess *session.Session) (credentials.Credential, error) {
	if sess != nil && sess.Delegated != nil {
		if r.signer == nil {
			return nil, fmt.Errorf("%w: session holds a delegated token but no consumer credential is configured", apperr.ErrConfiguration)
		}
		return credentials.NewDelegated(r.signer, *sess.Delegated), nil
	}

	if r.shared != nil {
		return r.shared, nil
	}

	return nil, fmt.Errorf("%w: Twitter Bearer Token not configured", apperr.ErrCredentialUnavailable)
}
