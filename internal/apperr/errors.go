package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Sentinel errors shared by the proxy. The HTTP layer maps them to status
// codes through HTTPStatus; nothing below the handlers knows about HTTP.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrConfiguration         = errors.New("server misconfigured")
	ErrUpstreamUnavailable   = errors.New("upstream unavailable")
	ErrCredentialUnavailable = errors.New("no usable credential configured")
	ErrUserNotFound          = errors.New("user not found")
	ErrHandshakeRejected     = errors.New("handshake rejected")
)

// StatusCoder is implemented by errors that carry their own HTTP status,
// e.g. errors propagated from the upstream API.
type StatusCoder interface {
	StatusCode() int
}

// HTTPStatus maps an error to the status code returned to the browser.
func HTTPStatus(err error) int {
	var sc StatusCoder
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.As(err, &sc) && sc.StatusCode() >= 400:
		return sc.StatusCode()
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns err's text without the leading sentinel, so
// "server misconfigured: TWITTER_API_KEY missing" becomes
// "TWITTER_API_KEY missing".
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, s := range []error{
		ErrInvalidInput,
		ErrConfiguration,
		ErrUpstreamUnavailable,
		ErrCredentialUnavailable,
		ErrUserNotFound,
		ErrHandshakeRejected,
	} {
		if rest, ok := strings.CutPrefix(msg, s.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
