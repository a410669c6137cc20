// Package oauth1 signs requests with the OAuth 1.0a HMAC-SHA1 scheme used by
// the platform's delegated-authorization endpoints and v2 API.
package oauth1

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gomodule/oauth1/oauth"
)

// ErrMissingConsumer means the application consumer key or secret is not
// configured. It is a configuration fault, not a runtime one.
var ErrMissingConsumer = errors.New("oauth1: consumer key and secret are required")

// Token is a request token or access token with its secret.
type Token struct {
	Key    string
	Secret string
}

func (t *Token) credentials() *oauth.Credentials {
	if t == nil {
		return nil
	}
	return &oauth.Credentials{Token: t.Key, Secret: t.Secret}
}

// Signer produces Authorization header values for one consumer.
type Signer struct {
	client oauth.Client
}

// NewSigner returns a Signer for the consumer credential.
func NewSigner(consumerKey, consumerSecret string) (*Signer, error) {
	if consumerKey == "" || consumerSecret == "" {
		return nil, ErrMissingConsumer
	}
	return &Signer{client: oauth.Client{
		Credentials:     oauth.Credentials{Token: consumerKey, Secret: consumerSecret},
		SignatureMethod: oauth.HMACSHA1,
	}}, nil
}

// Sign computes the Authorization header value for a request.
//
// Query parameters carried by rawURL and the form parameters in params are
// part of the signature; they stay on the request and are not copied into
// the header. token may be nil for the request-token step.
func (s *Signer) Sign(method, rawURL string, params url.Values, token *Token) (string, error) {
	if s == nil {
		return "", ErrMissingConsumer
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("oauth1: parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("oauth1: url %q is not absolute", rawURL)
	}

	h := http.Header{}
	if err := s.client.SetAuthorizationHeader(h, token.credentials(), method, u, params); err != nil {
		return "", fmt.Errorf("oauth1: sign: %w", err)
	}
	return h.Get("Authorization"), nil
}

// Endpoints returns a client for the three-legged flow rooted at base
// (".../oauth"), carrying this signer's consumer credential.
func (s *Signer) Endpoints(base string) *oauth.Client {
	c := s.client
	c.TemporaryCredentialRequestURI = base + "/request_token"
	c.ResourceOwnerAuthorizationURI = base + "/authorize"
	c.TokenRequestURI = base + "/access_token"
	return &c
}
