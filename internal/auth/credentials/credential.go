// Package credentials holds the two kinds of credential the proxy can
// present to the platform API.
package credentials

import (
	"fmt"
	"net/http"

	"xfeed/internal/auth/oauth1"

	"golang.org/x/oauth2"
)

// Kind identifies which authorization scheme a credential uses.
type Kind string

const (
	KindBearer    Kind = "bearer"
	KindDelegated Kind = "delegated"
)

// Credential authorizes one outbound request.
type Credential interface {
	Kind() Kind
	Authorize(req *http.Request) error
}

// Bearer is the process-wide application credential. It is loaded once at
// startup and never mutated.
type Bearer struct {
	token string
}

// NewBearer returns nil when token is empty, so callers can test for a
// configured shared credential with a nil check.
func NewBearer(token string) *Bearer {
	if token == "" {
		return nil
	}
	return &Bearer{token: token}
}

func (b *Bearer) Kind() Kind { return KindBearer }

// Authorize sets "Authorization: Bearer <token>".
func (b *Bearer) Authorize(req *http.Request) error {
	tok := &oauth2.Token{AccessToken: b.token, TokenType: "Bearer"}
	tok.SetAuthHeader(req)
	return nil
}

// UserToken is the per-user access token pair obtained by the delegated
// handshake. It is what a session persists.
type UserToken struct {
	Token  string `json:"token"`
	Secret string `json:"secret"`
}

// Delegated signs each request with the consumer credential and a user's
// access token.
type Delegated struct {
	signer *oauth1.Signer
	token  oauth1.Token
}

// NewDelegated binds a stored user token to the application signer.
func NewDelegated(signer *oauth1.Signer, t UserToken) *Delegated {
	return &Delegated{
		signer: signer,
		token:  oauth1.Token{Key: t.Token, Secret: t.Secret},
	}
}

func (d *Delegated) Kind() Kind { return KindDelegated }

// Authorize computes the OAuth 1.0a header over the method, URL and query.
func (d *Delegated) Authorize(req *http.Request) error {
	h, err := d.signer.Sign(req.Method, req.URL.String(), nil, &d.token)
	if err != nil {
		return fmt.Errorf("credentials: sign request: %w", err)
	}
	req.Header.Set("Authorization", h)
	return nil
}
