// Package handler exposes the feed gateway over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"xfeed/internal/apperr"
	"xfeed/internal/auth/credentials"
	"xfeed/internal/auth/resolver"
	"xfeed/internal/feed"
	"xfeed/internal/logger"
	"xfeed/internal/middleware"
	"xfeed/internal/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	gateway  *feed.Gateway
	resolver resolver.Resolver
}

func NewHandler(gateway *feed.Gateway, r resolver.Resolver) *Handler {
	return &Handler{gateway: gateway, resolver: r}
}

// RegisterRoutes mounts the feed endpoints under /api/feeds plus the short
// /api aliases the serverless deployment used.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	for _, prefix := range []string{"/api/feeds", "/api"} {
		g := r.Group(prefix)
		g.GET("/search", h.Search)
		g.POST("/interests", h.Interests)
		g.GET("/user/:username", h.UserTimeline)
	}
}

func (h *Handler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter is required"})
		return
	}

	cred, ok := h.credential(c)
	if !ok {
		return
	}

	posts, err := h.gateway.SearchByKeyword(c.Request.Context(), cred, query, feed.ParseMaxResults(c.Query("maxResults")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tweets": posts})
}

type interestsRequest struct {
	Interests  []string        `json:"interests"`
	MaxResults json.RawMessage `json:"maxResults"`
}

func (h *Handler) Interests(c *gin.Context) {
	var req interestsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Interests) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Interests array is required"})
		return
	}

	cred, ok := h.credential(c)
	if !ok {
		return
	}

	posts, err := h.gateway.SearchByInterests(c.Request.Context(), cred, req.Interests, parseJSONMaxResults(req.MaxResults))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tweets": posts})
}

func (h *Handler) UserTimeline(c *gin.Context) {
	cred, ok := h.credential(c)
	if !ok {
		return
	}

	tl, err := h.gateway.TimelineByUsername(c.Request.Context(), cred, c.Param("username"), feed.ParseMaxResults(c.Query("maxResults")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tl)
}

// credential resolves the credential for this request's session and
// answers the request itself when none is usable.
func (h *Handler) credential(c *gin.Context) (credentials.Credential, bool) {
	var sess *session.Session
	if s, found := middleware.SessionFromContext(c.Request.Context()); found {
		sess = &s
	}

	cred, err := h.resolver.Resolve(sess)
	if err != nil {
		logger.Error("no usable credential", map[string]any{
			"error":      err.Error(),
			"request_id": middleware.RequestIDFromContext(c.Request.Context()),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": apperr.Message(err)})
		return nil, false
	}
	return cred, true
}

// fail writes the JSON error body for a gateway error.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	fields := map[string]any{
		"path":       c.Request.URL.Path,
		"status":     status,
		"error":      err.Error(),
		"request_id": middleware.RequestIDFromContext(c.Request.Context()),
	}

	var upErr *feed.UpstreamError
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		logger.Warn("invalid feed request", fields)
		c.JSON(status, gin.H{"error": apperr.Message(err)})
	case errors.Is(err, apperr.ErrUserNotFound):
		logger.Info("user not found", fields)
		c.JSON(status, gin.H{"error": "User not found"})
	case errors.As(err, &upErr):
		logger.Error("upstream request failed", fields)
		c.JSON(status, gin.H{"error": failureTitle(upErr.Operation), "message": upErr.Detail})
	default:
		logger.Error("feed request failed", fields)
		c.JSON(status, gin.H{"error": "Failed to fetch tweets", "message": apperr.Message(err)})
	}
}

func failureTitle(operation string) string {
	switch operation {
	case "user_lookup":
		return "Failed to fetch user"
	case "timeline":
		return "Failed to fetch user tweets"
	default:
		return "Failed to fetch tweets"
	}
}

// parseJSONMaxResults accepts maxResults as a JSON number or numeric string.
func parseJSONMaxResults(raw json.RawMessage) int {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return feed.DefaultMaxResults
	}
	switch n := v.(type) {
	case float64:
		return feed.ClampMaxResultsFloat(n)
	case string:
		return feed.ParseMaxResults(n)
	default:
		return feed.DefaultMaxResults
	}
}
