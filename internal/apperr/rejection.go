package apperr

import "fmt"

// Rejection is a failed handshake. Reason is the only part that may be
// shown to the browser; Cause stays in the server logs.
type Rejection struct {
	Reason string
	Cause  error
}

// Public rejection reasons. They end up in redirect URLs as /?error=<reason>.
const (
	ReasonDenied          = "twitter_authorization_denied"
	ReasonProviderDenied  = "authorization_denied"
	ReasonMissingParams   = "missing_oauth_parameters"
	ReasonTokenMismatch   = "invalid_oauth_token"
	ReasonInvalidState    = "invalid_state"
	ReasonAuthFailed      = "Authentication failed"
	ReasonInitiateFailed  = "Failed to initiate login"
	ReasonUnknownProvider = "unknown_provider"
)

// Reject builds a Rejection for the given public reason.
func Reject(reason string, cause error) *Rejection {
	return &Rejection{Reason: reason, Cause: cause}
}

func (r *Rejection) Error() string {
	if r.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", ErrHandshakeRejected, r.Reason, r.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrHandshakeRejected, r.Reason)
}

func (r *Rejection) Is(target error) bool {
	return target == ErrHandshakeRejected
}

func (r *Rejection) Unwrap() error {
	return r.Cause
}
