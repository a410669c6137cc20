package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"xfeed/internal/apperr"
	"xfeed/internal/auth/credentials"
	"xfeed/internal/auth/oauth1"
	"xfeed/internal/auth/oauth1/oauth1test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records the requests it receives and answers from a route table.
type fakeAPI struct {
	url      string
	mu       sync.Mutex
	requests []*http.Request
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Gateway) {
	t.Helper()
	f := &fakeAPI{routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Clone(context.Background()))
		h, ok := f.routes[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	f.url = srv.URL
	return f, NewGateway(srv.Client(), WithBaseURL(srv.URL+"/2"))
}

func (f *fakeAPI) handle(path, body string, status int) {
	f.routes[path] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (f *fakeAPI) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.URL.Path)
	}
	return out
}

func (f *fakeAPI) last() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

const searchBody = `{
	"data": [{"id": "1", "author_id": "9", "text": "hi"}],
	"includes": {"users": [{"id": "9", "name": "A", "username": "a"}]}
}`

func TestClampAndParseMaxResults(t *testing.T) {
	assert.Equal(t, 100, ClampMaxResults(500))
	assert.Equal(t, 1, ClampMaxResults(0))
	assert.Equal(t, 1, ClampMaxResults(-3))
	assert.Equal(t, 42, ClampMaxResults(42))

	assert.Equal(t, 10, ParseMaxResults(""))
	assert.Equal(t, 10, ParseMaxResults("abc"))
	assert.Equal(t, 100, ParseMaxResults("500"))
	assert.Equal(t, 1, ParseMaxResults("-1"))
	assert.Equal(t, 20, ParseMaxResults(" 20 "))
	assert.Equal(t, 100, ParseMaxResults("99999999999999999999"))
	assert.Equal(t, 100, ParseMaxResults("+99999999999999999999"))
	assert.Equal(t, 1, ParseMaxResults("-99999999999999999999"))

	assert.Equal(t, 100, ClampMaxResultsFloat(1e20))
	assert.Equal(t, 100, ClampMaxResultsFloat(9.3e18))
	assert.Equal(t, 1, ClampMaxResultsFloat(-1e20))
	assert.Equal(t, 25, ClampMaxResultsFloat(25.9))
}

func TestInterestsQuery(t *testing.T) {
	q, err := InterestsQuery([]string{"cats", "dogs"})
	require.NoError(t, err)
	assert.Equal(t, `"cats" OR "dogs"`, q)

	q, err = InterestsQuery([]string{"golang"})
	require.NoError(t, err)
	assert.Equal(t, `"golang"`, q)

	_, err = InterestsQuery(nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = InterestsQuery([]string{"cats", " "})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestSearchByKeyword_BearerAndFieldSelection(t *testing.T) {
	api, gw := newFakeAPI(t)
	api.handle("/2/tweets/search/recent", searchBody, http.StatusOK)

	posts, err := gw.SearchByKeyword(context.Background(), credentials.NewBearer("app"), "golang news", 500)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "A", posts[0].Author.Name)

	req := api.last()
	assert.Equal(t, "Bearer app", req.Header.Get("Authorization"))
	q := req.URL.Query()
	assert.Equal(t, "golang news", q.Get("query"))
	assert.Equal(t, "100", q.Get("max_results"))
	assert.Equal(t, "created_at,author_id,public_metrics,text,entities", q.Get("tweet.fields"))
	assert.Equal(t, "name,username,profile_image_url", q.Get("user.fields"))
	assert.Equal(t, "author_id", q.Get("expansions"))
}

func TestSearchByKeyword_EmptyQuery(t *testing.T) {
	api, gw := newFakeAPI(t)

	_, err := gw.SearchByKeyword(context.Background(), credentials.NewBearer("app"), "  ", 10)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, api.paths())
}

func TestSearchByInterests_BuildsORQuery(t *testing.T) {
	api, gw := newFakeAPI(t)
	api.handle("/2/tweets/search/recent", `{}`, http.StatusOK)

	posts, err := gw.SearchByInterests(context.Background(), credentials.NewBearer("app"), []string{"cats", "dogs"}, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)

	q := api.last().URL.Query()
	assert.Equal(t, `"cats" OR "dogs"`, q.Get("query"))
	assert.Equal(t, "1", q.Get("max_results"))
}

func TestSearchByInterests_EmptyList(t *testing.T) {
	api, gw := newFakeAPI(t)

	_, err := gw.SearchByInterests(context.Background(), credentials.NewBearer("app"), []string{}, 10)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, api.paths())
}

func TestSearch_DelegatedCredentialSignsRequest(t *testing.T) {
	api, gw := newFakeAPI(t)
	api.handle("/2/tweets/search/recent", searchBody, http.StatusOK)

	signer, err := oauth1.NewSigner("ck", "cs")
	require.NoError(t, err)
	cred := credentials.NewDelegated(signer, credentials.UserToken{Token: "ut", Secret: "us"})

	_, err = gw.SearchByInterests(context.Background(), cred, []string{"c++ lang", "dogs~ä"}, 10)
	require.NoError(t, err)

	received := api.last()
	assert.Equal(t, `"c++ lang" OR "dogs~ä"`, received.URL.Query().Get("query"))

	header, err := oauth1test.ParseHeader(received.Header.Get("Authorization"))
	require.NoError(t, err)
	assert.Equal(t, "ck", header["oauth_consumer_key"])
	assert.Equal(t, "ut", header["oauth_token"])

	require.NoError(t, oauth1test.Verify(received, api.url, "cs", "us"))
	assert.Error(t, oauth1test.Verify(received, api.url, "cs", "wrong-secret"))
}

func TestTimelineByUsername(t *testing.T) {
	api, gw := newFakeAPI(t)
	api.handle("/2/users/by/username/jack", `{"data": {"id": "12", "name": "Jack", "username": "jack"}}`, http.StatusOK)
	api.handle("/2/users/12/tweets", searchBody, http.StatusOK)

	tl, err := gw.TimelineByUsername(context.Background(), credentials.NewBearer("app"), "@jack", 5)
	require.NoError(t, err)
	assert.Equal(t, "12", tl.User.ID)
	assert.Equal(t, "Jack", tl.User.Name)
	require.Len(t, tl.Posts, 1)

	assert.Equal(t, []string{"/2/users/by/username/jack", "/2/users/12/tweets"}, api.paths())
	assert.Equal(t, "5", api.last().URL.Query().Get("max_results"))
	assert.Equal(t, "author_id", api.last().URL.Query().Get("expansions"))
}

func TestTimelineByUsername_UserNotFoundSkipsTimeline(t *testing.T) {
	api, gw := newFakeAPI(t)
	api.handle("/2/users/by/username/nouser",
		`{"errors": [{"title": "Not Found Error", "detail": "Could not find user with username: [nouser]."}]}`,
		http.StatusOK)

	_, err := gw.TimelineByUsername(context.Background(), credentials.NewBearer("app"), "nouser", 10)
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	assert.Equal(t, []string{"/2/users/by/username/nouser"}, api.paths())
}

func TestTimelineByUsername_EmptyUsername(t *testing.T) {
	_, gw := newFakeAPI(t)

	_, err := gw.TimelineByUsername(context.Background(), credentials.NewBearer("app"), "", 10)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestUpstreamErrorPropagatesStatusAndDetail(t *testing.T) {
	api, gw := newFakeAPI(t)
	api.handle("/2/tweets/search/recent",
		`{"title": "Too Many Requests", "detail": "Too Many Requests", "status": 429}`,
		http.StatusTooManyRequests)

	_, err := gw.SearchByKeyword(context.Background(), credentials.NewBearer("app"), "x", 10)
	require.Error(t, err)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusTooManyRequests, upErr.Status)
	assert.Equal(t, "Too Many Requests", upErr.Detail)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.Equal(t, http.StatusTooManyRequests, apperr.HTTPStatus(err))
}

func TestUpstreamErrorFallsBackToRawText(t *testing.T) {
	api, gw := newFakeAPI(t)
	api.handle("/2/tweets/search/recent", `service exploded`, http.StatusServiceUnavailable)

	_, err := gw.SearchByKeyword(context.Background(), credentials.NewBearer("app"), "x", 10)
	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, "service exploded", upErr.Detail)
}

func TestUpstreamTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	gw := NewGateway(srv.Client(), WithBaseURL(srv.URL+"/2"), WithTimeout(50*time.Millisecond))
	_, err := gw.SearchByKeyword(context.Background(), credentials.NewBearer("app"), "x", 10)
	require.Error(t, err)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusGatewayTimeout, upErr.Status)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNilCredential(t *testing.T) {
	_, gw := newFakeAPI(t)

	_, err := gw.SearchByKeyword(context.Background(), nil, "x", 10)
	assert.ErrorIs(t, err, apperr.ErrCredentialUnavailable)
}

func TestMe(t *testing.T) {
	api, gw := newFakeAPI(t)
	api.handle("/2/users/me", `{"data": {"id": "7", "name": "Me", "username": "me", "profile_image_url": "https://img/me.png"}}`, http.StatusOK)

	p, err := gw.Me(context.Background(), credentials.NewBearer("app"))
	require.NoError(t, err)
	assert.Equal(t, "7", p.ID)
	assert.Equal(t, "https://img/me.png", p.ProfileImageURL)
}
