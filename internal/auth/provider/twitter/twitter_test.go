package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"xfeed/internal/apperr"
	"xfeed/internal/auth/credentials"
	"xfeed/internal/auth/oauth1"
	"xfeed/internal/auth/oauth1/oauth1test"
	"xfeed/internal/feed"
	"xfeed/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfiles struct {
	profile *feed.Profile
	err     error
	got     credentials.Credential
}

func (f *fakeProfiles) Me(_ context.Context, cred credentials.Credential) (*feed.Profile, error) {
	f.got = cred
	return f.profile, f.err
}

type oauthServer struct {
	mu       sync.Mutex
	headers  map[string]map[string]string
	forms    map[string]url.Values
	verified map[string]error
	status   int
	bodies   map[string]string
}

// newOAuthServer fakes the platform's OAuth endpoints. Request-token calls
// are checked against the consumer secret alone, access-token calls against
// the consumer secret and the request token secret.
func newOAuthServer(t *testing.T) (*oauthServer, *httptest.Server) {
	t.Helper()
	o := &oauthServer{
		headers:  map[string]map[string]string{},
		forms:    map[string]url.Values{},
		verified: map[string]error{},
		status:   http.StatusOK,
		bodies: map[string]string{
			"/oauth/request_token": "oauth_token=req-tok&oauth_token_secret=req-sec&oauth_callback_confirmed=true",
			"/oauth/access_token":  "oauth_token=acc-tok&oauth_token_secret=acc-sec&user_id=42&screen_name=gopher",
		},
	}
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		defer o.mu.Unlock()
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		tokenSecret := ""
		if r.URL.Path == "/oauth/access_token" {
			tokenSecret = "req-sec"
		}
		o.verified[r.URL.Path] = oauth1test.Verify(r, srv.URL, "cs", tokenSecret)
		o.headers[r.URL.Path], _ = oauth1test.ParseHeader(r.Header.Get("Authorization"))
		o.forms[r.URL.Path] = r.PostForm

		w.WriteHeader(o.status)
		_, _ = w.Write([]byte(o.bodies[r.URL.Path]))
	}))
	t.Cleanup(srv.Close)
	return o, srv
}

// received returns the header params, form and signature check of the last
// call to path.
func (o *oauthServer) received(path string) (map[string]string, url.Values, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.headers[path], o.forms[path], o.verified[path]
}

// oauthParam finds a protocol parameter sent in either the Authorization
// header or the form body.
func oauthParam(header map[string]string, form url.Values, key string) string {
	if v, ok := header[key]; ok {
		return v
	}
	return form.Get(key)
}

func newProvider(t *testing.T, srv *httptest.Server, profiles ProfileFetcher) *Provider {
	t.Helper()
	signer, err := oauth1.NewSigner("ck", "cs")
	require.NoError(t, err)
	p, err := New(signer, "http://localhost:3300/auth/twitter/callback", srv.URL+"/oauth", srv.Client(), profiles)
	require.NoError(t, err)
	return p
}

func pending() *session.Handshake {
	return &session.Handshake{Strategy: "twitter", Token: "req-tok", Secret: "req-sec"}
}

func TestNew_RequiresSigner(t *testing.T) {
	_, err := New(nil, "http://cb", "", nil, nil)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestBegin_ReturnsAuthorizeURLAndPendingToken(t *testing.T) {
	o, srv := newOAuthServer(t)
	p := newProvider(t, srv, nil)

	authURL, hs, err := p.Begin(context.Background())
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/oauth/authorize?oauth_token=req-tok", authURL)
	assert.Equal(t, "twitter", hs.Strategy)
	assert.Equal(t, "req-tok", hs.Token)
	assert.Equal(t, "req-sec", hs.Secret)

	header, form, sigErr := o.received("/oauth/request_token")
	require.NoError(t, sigErr)
	assert.Equal(t, "ck", header["oauth_consumer_key"])
	assert.NotContains(t, header, "oauth_token")
	assert.Equal(t, "http://localhost:3300/auth/twitter/callback", oauthParam(header, form, "oauth_callback"))
}

func TestBegin_UpstreamFailure(t *testing.T) {
	o, srv := newOAuthServer(t)
	o.status = http.StatusUnauthorized
	p := newProvider(t, srv, nil)

	_, hs, err := p.Begin(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.Empty(t, hs.Token)
}

func TestBegin_IncompleteResponse(t *testing.T) {
	o, srv := newOAuthServer(t)
	o.bodies["/oauth/request_token"] = "oauth_token=only"
	p := newProvider(t, srv, nil)

	_, _, err := p.Begin(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

func reason(t *testing.T, err error) string {
	t.Helper()
	var rej *apperr.Rejection
	require.True(t, errors.As(err, &rej), "expected rejection, got %v", err)
	return rej.Reason
}

func TestComplete_Rejections(t *testing.T) {
	_, srv := newOAuthServer(t)
	p := newProvider(t, srv, nil)

	tests := []struct {
		name    string
		pending *session.Handshake
		query   url.Values
		reason  string
	}{
		{"denied", pending(), url.Values{"denied": {"req-tok"}}, apperr.ReasonDenied},
		{"missing verifier", pending(), url.Values{"oauth_token": {"req-tok"}}, apperr.ReasonMissingParams},
		{"missing token", pending(), url.Values{"oauth_verifier": {"v"}}, apperr.ReasonMissingParams},
		{"token mismatch", pending(), url.Values{"oauth_token": {"other"}, "oauth_verifier": {"v"}}, apperr.ReasonTokenMismatch},
		{"no pending handshake", nil, url.Values{"oauth_token": {"req-tok"}, "oauth_verifier": {"v"}}, apperr.ReasonTokenMismatch},
		{"pending for other strategy", &session.Handshake{Strategy: "google", State: "s"}, url.Values{"oauth_token": {"req-tok"}, "oauth_verifier": {"v"}}, apperr.ReasonTokenMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Complete(context.Background(), tt.pending, tt.query)
			assert.Nil(t, res)
			assert.Equal(t, tt.reason, reason(t, err))
			assert.ErrorIs(t, err, apperr.ErrHandshakeRejected)
		})
	}
}

func TestComplete_ExchangesVerifierAndLoadsProfile(t *testing.T) {
	o, srv := newOAuthServer(t)
	profiles := &fakeProfiles{profile: &feed.Profile{
		ID: "42", Name: "Gopher", Username: "gopher", ProfileImageURL: "https://img/g.png",
	}}
	p := newProvider(t, srv, profiles)

	res, err := p.Complete(context.Background(), pending(), url.Values{
		"oauth_token": {"req-tok"}, "oauth_verifier": {"verif"},
	})
	require.NoError(t, err)

	assert.Equal(t, "twitter", res.Identity.Provider)
	assert.Equal(t, "42", res.Identity.ID)
	assert.Equal(t, "gopher", res.Identity.Username)
	assert.Equal(t, "Gopher", res.Identity.Name)
	assert.Equal(t, "https://img/g.png", res.Identity.ProfileImageURL)
	require.NotNil(t, res.Delegated)
	assert.Equal(t, credentials.UserToken{Token: "acc-tok", Secret: "acc-sec"}, *res.Delegated)

	header, form, sigErr := o.received("/oauth/access_token")
	require.NoError(t, sigErr)
	assert.Equal(t, "req-tok", header["oauth_token"])
	assert.Equal(t, "verif", oauthParam(header, form, "oauth_verifier"))

	require.NotNil(t, profiles.got)
	assert.Equal(t, credentials.KindDelegated, profiles.got.Kind())
}

func TestComplete_ExchangeFailure(t *testing.T) {
	o, srv := newOAuthServer(t)
	o.status = http.StatusUnauthorized
	p := newProvider(t, srv, nil)

	_, err := p.Complete(context.Background(), pending(), url.Values{
		"oauth_token": {"req-tok"}, "oauth_verifier": {"verif"},
	})
	assert.Equal(t, apperr.ReasonAuthFailed, reason(t, err))
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

func TestComplete_ProfileFailure(t *testing.T) {
	_, srv := newOAuthServer(t)
	p := newProvider(t, srv, &fakeProfiles{err: apperr.ErrUpstreamUnavailable})

	_, err := p.Complete(context.Background(), pending(), url.Values{
		"oauth_token": {"req-tok"}, "oauth_verifier": {"verif"},
	})
	assert.Equal(t, apperr.ReasonAuthFailed, reason(t, err))
}
