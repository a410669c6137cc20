package resolver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"xfeed/internal/apperr"
	"xfeed/internal/auth"
	"xfeed/internal/auth/credentials"
	"xfeed/internal/auth/oauth1"
	"xfeed/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authenticated(delegated *credentials.UserToken) *session.Session {
	s := session.New("sid", time.Now()).Authenticate(auth.Identity{ID: "1"}, delegated)
	return &s
}

func TestResolve_DelegatedWinsOverShared(t *testing.T) {
	signer, err := oauth1.NewSigner("ck", "cs")
	require.NoError(t, err)
	r := New(credentials.NewBearer("app-token"), signer)

	cred, err := r.Resolve(authenticated(&credentials.UserToken{Token: "ut", Secret: "us"}))
	require.NoError(t, err)
	assert.Equal(t, credentials.KindDelegated, cred.Kind())

	req := httptest.NewRequest(http.MethodGet, "https://api.twitter.com/2/users/me", nil)
	require.NoError(t, cred.Authorize(req))
	h := req.Header.Get("Authorization")
	assert.True(t, strings.HasPrefix(h, "OAuth "))
	assert.Contains(t, h, `oauth_token="ut"`)
}

func TestResolve_FallsBackToShared(t *testing.T) {
	r := New(credentials.NewBearer("app-token"), nil)

	for name, sess := range map[string]*session.Session{
		"nil session":            nil,
		"anonymous session":      func() *session.Session { s := session.New("sid", time.Now()); return &s }(),
		"identity provider user": authenticated(nil),
	} {
		t.Run(name, func(t *testing.T) {
			cred, err := r.Resolve(sess)
			require.NoError(t, err)
			assert.Equal(t, credentials.KindBearer, cred.Kind())

			req := httptest.NewRequest(http.MethodGet, "https://api.twitter.com/2/tweets/search/recent", nil)
			require.NoError(t, cred.Authorize(req))
			assert.Equal(t, "Bearer app-token", req.Header.Get("Authorization"))
		})
	}
}

func TestResolve_NothingConfigured(t *testing.T) {
	r := New(credentials.NewBearer(""), nil)

	_, err := r.Resolve(authenticated(nil))
	assert.ErrorIs(t, err, apperr.ErrCredentialUnavailable)
}

func TestResolve_DelegatedWithoutSigner(t *testing.T) {
	r := New(credentials.NewBearer("app-token"), nil)

	_, err := r.Resolve(authenticated(&credentials.UserToken{Token: "ut", Secret: "us"}))
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}
