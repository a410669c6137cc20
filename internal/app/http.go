package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	authhandler "xfeed/internal/auth/handler"
	"xfeed/internal/auth/credentials"
	"xfeed/internal/auth/oauth1"
	"xfeed/internal/auth/provider"
	"xfeed/internal/auth/provider/oidc"
	"xfeed/internal/auth/provider/twitter"
	"xfeed/internal/auth/resolver"
	"xfeed/internal/config"
	"xfeed/internal/feed"
	feedhandler "xfeed/internal/feed/handler"
	"xfeed/internal/logger"
	"xfeed/internal/metrics"
	"xfeed/internal/middleware"
	"xfeed/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// setupHTTP builds the router on top of already connected infrastructure.
// client carries every outbound platform and identity provider call.
func setupHTTP(ctx context.Context, cfg config.Config, infra *Infra, client *http.Client) (*gin.Engine, error) {

	// ----------------------------
	// Dependencies
	// ----------------------------

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// The consumer credential is optional when only the shared bearer
	// token and an identity provider are in use.
	var signer *oauth1.Signer
	if cfg.TwitterAPIKey != "" || cfg.TwitterAPIKeySecret != "" {
		s, err := oauth1.NewSigner(cfg.TwitterAPIKey, cfg.TwitterAPIKeySecret)
		if err != nil {
			return nil, err
		}
		signer = s
	}

	gateway := feed.NewGateway(
		client,
		feed.WithBaseURL(cfg.TwitterAPIBase),
		feed.WithTimeout(cfg.UpstreamTimeout),
		feed.WithMetrics(m),
	)

	strategies, err := setupStrategies(ctx, cfg, signer, client, gateway)
	if err != nil {
		return nil, err
	}

	cookie := session.CookieOptions{
		Secure:   cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	}

	authHandler := authhandler.NewHandler(strategies, infra.Sessions, cookie, m)
	feedHandler := feedhandler.NewHandler(
		gateway,
		resolver.New(credentials.NewBearer(cfg.TwitterBearerToken), signer),
	)
	sessionMiddleware := middleware.NewSessionMiddleware(infra.Sessions, cookie)

	// ----------------------------
	// Router
	// ----------------------------

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.Gin(middleware.RequestID),
		middleware.RequestLogger(),
		middleware.Gin(middleware.CORS(cfg.CORSMode, cfg.CORSAllowedOrigins)),
	)

	// ----------------------------
	// Public Routes
	// ----------------------------

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	// ----------------------------
	// Session Routes
	// ----------------------------

	withSession := router.Group("/")
	withSession.Use(middleware.Gin(sessionMiddleware.Load))

	authHandler.RegisterRoutes(withSession)
	feedHandler.RegisterRoutes(withSession)

	// ----------------------------
	// Static client
	// ----------------------------

	index := filepath.Join(cfg.StaticDir, "index.html")
	router.GET("/", func(c *gin.Context) {
		c.File(index)
	})

	assets := http.FileServer(http.Dir(cfg.StaticDir))
	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		assets.ServeHTTP(c.Writer, c.Request)
	})

	for _, route := range router.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}

	return router, nil
}

func setupStrategies(
	ctx context.Context,
	cfg config.Config,
	signer *oauth1.Signer,
	client *http.Client,
	gateway *feed.Gateway,
) (*provider.Registry, error) {

	var list []provider.Strategy

	for _, name := range cfg.AuthStrategies {
		switch name {
		case config.StrategyTwitter:
			p, err := twitter.New(signer, cfg.TwitterCallbackURL, cfg.TwitterOAuthBase, client, gateway)
			if err != nil {
				return nil, err
			}
			list = append(list, p)

		case config.StrategyOIDC:
			p, err := oidc.New(ctx, oidc.Options{
				Name:          cfg.OIDCProviderName,
				Issuer:        cfg.OIDCIssuer,
				ClientID:      cfg.OIDCClientID,
				ClientSecret:  cfg.OIDCClientSecret,
				RedirectURL:   cfg.OIDCRedirectURL,
				PublicAuthURL: cfg.OIDCPublicAuthURL,
				HTTPClient:    client,
			})
			if err != nil {
				return nil, err
			}
			list = append(list, p)

		default:
			return nil, fmt.Errorf("unknown auth strategy %q", name)
		}
	}

	registry := provider.NewRegistry(list...)
	logger.Info("auth strategies enabled", map[string]any{"strategies": registry.Names()})
	return registry, nil
}
