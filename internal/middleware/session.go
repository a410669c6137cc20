package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"xfeed/internal/logger"
	"xfeed/internal/session"
)

// unexported, collision-proof context key
type sessionContextKeyType struct{}

var sessionKey = sessionContextKeyType{}

// SessionFromContext returns the session loaded for the request. The value
// is a copy; changes must be written back through the store.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(session.Session)
	return s, ok
}

// WithSession attaches a session to ctx.
func WithSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

type SessionMiddleware struct {
	Store  session.Store
	Cookie session.CookieOptions
	Now    func() time.Time
}

func NewSessionMiddleware(store session.Store, cookie session.CookieOptions) *SessionMiddleware {
	return &SessionMiddleware{Store: store, Cookie: cookie, Now: time.Now}
}

// Load resolves the session cookie and, when the session is live, slides
// its expiry and attaches it to the request context. Requests without a
// usable session pass through untouched; handlers that need one create it.
func (m *SessionMiddleware) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := session.IDFromRequest(r)
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.Store.Get(r.Context(), sessionID)
		if err != nil {
			logger.Error("session load failed", map[string]any{
				"error":      err.Error(),
				"request_id": RequestIDFromContext(r.Context()),
			})
			writeJSONError(w, http.StatusInternalServerError, "Session store unavailable")
			return
		}
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}

		touched := sess.Touch(m.Now())
		if err := m.Store.Update(r.Context(), touched); err != nil {
			logger.Warn("session refresh failed", map[string]any{
				"error":      err.Error(),
				"request_id": RequestIDFromContext(r.Context()),
			})
		} else {
			session.SetCookie(w, touched.SessionID, m.Cookie)
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), touched)))
	})
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
