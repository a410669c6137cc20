package middleware

import (
	"net/http"

	"xfeed/internal/logger"

	"github.com/go-chi/cors"
)

const (
	CORSStrict     = "strict"
	CORSPermissive = "permissive"
)

// CORS builds the cross-origin policy. Strict mode only admits the listed
// origins; permissive mode reflects any origin and is meant for local
// development.
func CORS(mode string, allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}

	switch {
	case mode == CORSPermissive:
		logger.Warn("CORS is permissive: any origin may call the API with credentials", nil)
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool { return true }
	case len(allowedOrigins) == 0:
		// an empty list would mean "*" to the cors package
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool { return false }
	}

	return cors.Handler(opts)
}
