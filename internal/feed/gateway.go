// Package feed maps the proxy's simplified queries onto the platform's v2
// API and reshapes the results for the browser client.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"xfeed/internal/apperr"
	"xfeed/internal/auth/credentials"
	"xfeed/internal/logger"
	"xfeed/internal/metrics"
)

const (
	DefaultBaseURL    = "https://api.twitter.com/2"
	DefaultMaxResults = 10
	MinMaxResults     = 1
	MaxMaxResults     = 100

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// Field selection attached to every tweet query so the payload always
// carries what Normalize needs.
var tweetFields = url.Values{
	"tweet.fields": {"created_at,author_id,public_metrics,text,entities"},
	"user.fields":  {"name,username,profile_image_url"},
	"expansions":   {"author_id"},
}

// Doer is the outbound HTTP capability. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Gateway issues authorized read calls against the platform API.
type Gateway struct {
	baseURL string
	client  Doer
	timeout time.Duration
	metrics *metrics.Metrics
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithBaseURL points the gateway at another API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(g *Gateway) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout bounds each upstream call. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMetrics records every upstream call.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway builds a Gateway. A nil client means http.DefaultClient.
func NewGateway(client Doer, opts ...Option) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	g := &Gateway{
		baseURL: DefaultBaseURL,
		client:  client,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ClampMaxResults forces n into [MinMaxResults, MaxMaxResults].
func ClampMaxResults(n int) int {
	switch {
	case n < MinMaxResults:
		return MinMaxResults
	case n > MaxMaxResults:
		return MaxMaxResults
	default:
		return n
	}
}

// ClampMaxResultsFloat clamps a JSON number before converting it, so
// values beyond the int range still land on the nearest bound.
func ClampMaxResultsFloat(f float64) int {
	switch {
	case f < MinMaxResults:
		return MinMaxResults
	case f > MaxMaxResults:
		return MaxMaxResults
	default:
		return int(f)
	}
}

// ParseMaxResults reads a maxResults query value. Missing or unparseable
// values fall back to DefaultMaxResults; the result is clamped. Integers
// too large for an int clamp by sign.
func ParseMaxResults(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultMaxResults
	}
	n, err := strconv.Atoi(raw)
	switch {
	case errors.Is(err, strconv.ErrRange):
		if strings.HasPrefix(raw, "-") {
			return MinMaxResults
		}
		return MaxMaxResults
	case err != nil:
		return DefaultMaxResults
	}
	return ClampMaxResults(n)
}

// InterestsQuery quotes each interest and joins them with OR, keeping order.
func InterestsQuery(interests []string) (string, error) {
	if len(interests) == 0 {
		return "", fmt.Errorf("%w: Interests array is required", apperr.ErrInvalidInput)
	}
	terms := make([]string, 0, len(interests))
	for _, in := range interests {
		in = strings.TrimSpace(in)
		if in == "" {
			return "", fmt.Errorf("%w: interests must be non-empty strings", apperr.ErrInvalidInput)
		}
		terms = append(terms, `"`+in+`"`)
	}
	return strings.Join(terms, " OR "), nil
}

// SearchByKeyword runs one recent-search call with the literal query.
func (g *Gateway) SearchByKeyword(ctx context.Context, cred credentials.Credential, query string, maxResults int) ([]Post, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: Query parameter is required", apperr.ErrInvalidInput)
	}
	return g.search(ctx, "search", cred, query, maxResults)
}

// SearchByInterests searches for any of the given interests.
func (g *Gateway) SearchByInterests(ctx context.Context, cred credentials.Credential, interests []string, maxResults int) ([]Post, error) {
	query, err := InterestsQuery(interests)
	if err != nil {
		return nil, err
	}
	return g.search(ctx, "interests", cred, query, maxResults)
}

// TimelineByUsername resolves username to an id, then fetches that user's
// recent tweets. The second call is skipped when the user does not exist.
func (g *Gateway) TimelineByUsername(ctx context.Context, cred credentials.Credential, username string, maxResults int) (*Timeline, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", apperr.ErrInvalidInput)
	}

	profile, err := g.LookupUser(ctx, cred, username)
	if err != nil {
		return nil, err
	}

	params := withTweetFields(url.Values{
		"max_results": {strconv.Itoa(ClampMaxResults(maxResults))},
	})
	raw, err := g.get(ctx, "timeline", cred, "/users/"+url.PathEscape(profile.ID)+"/tweets", params)
	if err != nil {
		return nil, err
	}

	posts, err := Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return &Timeline{Posts: posts, User: *profile}, nil
}

// LookupUser resolves a username to its profile.
func (g *Gateway) LookupUser(ctx context.Context, cred credentials.Credential, username string) (*Profile, error) {
	params := url.Values{"user.fields": {"name,username,profile_image_url,description"}}
	raw, err := g.get(ctx, "user_lookup", cred, "/users/by/username/"+url.PathEscape(username), params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data *Profile `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode user lookup: %v", apperr.ErrUpstreamUnavailable, err)
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return nil, fmt.Errorf("%w: %s", apperr.ErrUserNotFound, username)
	}
	return resp.Data, nil
}

// Me returns the profile of the user owning cred. Only meaningful for a
// delegated credential.
func (g *Gateway) Me(ctx context.Context, cred credentials.Credential) (*Profile, error) {
	params := url.Values{"user.fields": {"name,username,profile_image_url"}}
	raw, err := g.get(ctx, "me", cred, "/users/me", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data *Profile `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", apperr.ErrUpstreamUnavailable, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: profile response has no data", apperr.ErrUpstreamUnavailable)
	}
	return resp.Data, nil
}

func (g *Gateway) search(ctx context.Context, op string, cred credentials.Credential, query string, maxResults int) ([]Post, error) {
	params := withTweetFields(url.Values{
		"query":       {query},
		"max_results": {strconv.Itoa(ClampMaxResults(maxResults))},
	})
	raw, err := g.get(ctx, op, cred, "/tweets/search/recent", params)
	if err != nil {
		return nil, err
	}

	posts, err := Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return posts, nil
}

func withTweetFields(params url.Values) url.Values {
	for k, v := range tweetFields {
		params[k] = v
	}
	return params
}

// get issues one authorized GET and returns the body of a 2xx response.
// Everything else becomes an *UpstreamError.
func (g *Gateway) get(ctx context.Context, op string, cred credentials.Credential, path string, params url.Values) ([]byte, error) {
	if cred == nil {
		return nil, apperr.ErrCredentialUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	endpoint := g.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if err := cred.Authorize(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrConfiguration, err)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.metrics.ObserveUpstream(op, string(cred.Kind()), 0, time.Since(start))
		logger.Error("upstream request failed", map[string]any{
			"operation": op,
			"error":     err.Error(),
		})
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	g.metrics.ObserveUpstream(op, string(cred.Kind()), resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, transportError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upErr := &UpstreamError{
			Operation: op,
			Status:    resp.StatusCode,
			Detail:    extractDetail(body, resp.Status),
		}
		logger.Warn("upstream returned error status", map[string]any{
			"operation": op,
			"status":    resp.StatusCode,
			"body":      truncate(string(body), 512),
		})
		return nil, upErr
	}

	return body, nil
}

func transportError(op string, err error) error {
	status := http.StatusBadGateway
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		status = http.StatusGatewayTimeout
	}
	return &UpstreamError{Operation: op, Status: status, Detail: err.Error(), cause: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
