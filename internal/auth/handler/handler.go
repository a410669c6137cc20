package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"xfeed/internal/apperr"
	"xfeed/internal/auth/provider"
	"xfeed/internal/logger"
	"xfeed/internal/metrics"
	"xfeed/internal/middleware"
	"xfeed/internal/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	providers    *provider.Registry
	sessionStore session.Store
	cookie       session.CookieOptions
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewHandler(
	registry *provider.Registry,
	sessionStore session.Store,
	cookie session.CookieOptions,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		providers:    registry,
		sessionStore: sessionStore,
		cookie:       cookie,
		metrics:      m,
		now:          time.Now,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/auth/status", h.Status)
	r.GET("/auth/:provider", h.initiate)
	r.GET("/auth/:provider/callback", h.callback)
	r.POST("/auth/logout", h.Logout)
}

// Status reports whether the browser's session completed a login.
func (h *Handler) Status(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c.Request.Context())
	if !ok || !sess.Authenticated() {
		c.JSON(http.StatusOK, gin.H{"authenticated": false, "user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": sess.User})
}

func (h *Handler) initiate(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown auth provider"})
		return
	}

	authURL, pending, err := p.Begin(c.Request.Context())
	if err != nil {
		logger.Error("handshake initiate failed", map[string]any{
			"provider":   providerName,
			"error":      err.Error(),
			"request_id": middleware.RequestIDFromContext(c.Request.Context()),
		})
		h.metrics.Handshake(providerName, "initiate", "error")

		if errors.Is(err, apperr.ErrConfiguration) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": apperr.Message(err)})
			return
		}
		h.redirectError(c, apperr.ReasonInitiateFailed)
		return
	}

	// Only now is there something to store; a failed Begin leaves the
	// session as it was.
	sess, exists := middleware.SessionFromContext(c.Request.Context())
	if !exists {
		id, err := session.GenerateID()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}
		sess = session.New(id, h.now())
	}
	sess = sess.WithHandshake(pending)

	if exists {
		err = h.sessionStore.Update(c.Request.Context(), sess)
	} else {
		err = h.sessionStore.Create(c.Request.Context(), sess)
	}
	if err != nil {
		logger.Error("failed to persist session", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist session"})
		return
	}

	session.SetCookie(c.Writer, sess.SessionID, h.cookie)
	h.metrics.Handshake(providerName, "initiate", "redirect")

	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")
	ctx := c.Request.Context()

	p, err := h.providers.Get(providerName)
	if err != nil {
		h.redirectError(c, apperr.ReasonUnknownProvider)
		return
	}

	sess, exists := middleware.SessionFromContext(ctx)
	var pending *session.Handshake
	if exists {
		pending = sess.Handshake
	}

	result, err := p.Complete(ctx, pending, c.Request.URL.Query())
	if err != nil {
		var rej *apperr.Rejection
		if !errors.As(err, &rej) {
			rej = apperr.Reject(apperr.ReasonAuthFailed, err)
		}

		fields := map[string]any{
			"provider":   providerName,
			"reason":     rej.Reason,
			"request_id": middleware.RequestIDFromContext(ctx),
		}
		if rej.Cause != nil {
			fields["error"] = rej.Cause.Error()
		}
		logger.Warn("handshake rejected", fields)
		h.metrics.Handshake(providerName, "callback", "rejected")

		if exists && sess.Handshake != nil {
			if err := h.sessionStore.Update(ctx, sess.ClearHandshake()); err != nil {
				logger.Error("failed to clear handshake", map[string]any{"error": err.Error()})
			}
		}
		h.redirectError(c, rej.Reason)
		return
	}

	// A completed login gets a fresh session id.
	sessionID, err := session.GenerateID()
	if err != nil {
		h.redirectError(c, apperr.ReasonAuthFailed)
		return
	}

	authenticated := sess.Authenticate(result.Identity, result.Delegated)
	authenticated.SessionID = sessionID
	authenticated = authenticated.Touch(h.now())

	if err := h.sessionStore.Create(ctx, authenticated); err != nil {
		logger.Error("failed to persist session", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		h.metrics.Handshake(providerName, "callback", "error")
		h.redirectError(c, apperr.ReasonAuthFailed)
		return
	}
	if exists {
		if err := h.sessionStore.Delete(ctx, sess.SessionID); err != nil {
			logger.Warn("failed to drop pre-login session", map[string]any{"error": err.Error()})
		}
	}

	session.SetCookie(c.Writer, sessionID, h.cookie)
	h.metrics.Handshake(providerName, "callback", "success")

	logger.Info("login success", map[string]any{
		"provider":   providerName,
		"user_id":    result.Identity.ID,
		"delegated":  result.Delegated != nil,
		"ip":         c.ClientIP(),
		"request_id": middleware.RequestIDFromContext(ctx),
	})

	c.Redirect(http.StatusFound, "/")
}

// Logout destroys the session and clears the cookie. It succeeds whether
// or not a session existed.
func (h *Handler) Logout(c *gin.Context) {
	if sessionID := session.IDFromRequest(c.Request); sessionID != "" {
		if err := h.sessionStore.Delete(c.Request.Context(), sessionID); err != nil {
			logger.Error("failed to delete session", map[string]any{"error": err.Error()})
		}
	}

	session.ClearCookie(c.Writer, h.cookie)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// redirectError sends the browser home with an opaque reason; upstream
// detail is only ever logged.
func (h *Handler) redirectError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, "/?error="+url.QueryEscape(reason))
}
