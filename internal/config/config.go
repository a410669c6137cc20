package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"xfeed/internal/apperr"

	"github.com/joho/godotenv"
)

const (
	StrategyTwitter = "twitter"
	StrategyOIDC    = "oidc"

	SessionMemory   = "memory"
	SessionRedis    = "redis"
	SessionPostgres = "postgres"
)

type Config struct {
	AppPort   string
	AppEnv    string
	LogLevel  string
	StaticDir string

	SessionBackend string
	RedisAddr      string
	RedisPassword  string
	DatabaseDSN    string

	AuthStrategies []string

	TwitterAPIKey       string
	TwitterAPIKeySecret string
	TwitterBearerToken  string
	TwitterCallbackURL  string
	TwitterAPIBase      string
	TwitterOAuthBase    string

	OIDCProviderName  string
	OIDCIssuer        string
	OIDCClientID      string
	OIDCClientSecret  string
	OIDCRedirectURL   string
	OIDCPublicAuthURL string

	CORSMode           string
	CORSAllowedOrigins []string

	UpstreamTimeout time.Duration
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	timeout, err := time.ParseDuration(getEnv("UPSTREAM_TIMEOUT", "10s"))
	if err != nil || timeout <= 0 {
		return Config{}, fmt.Errorf("%w: UPSTREAM_TIMEOUT must be a positive duration", apperr.ErrConfiguration)
	}

	cfg := Config{
		AppPort:   getEnv("APP_PORT", "3300"),
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		StaticDir: getEnv("STATIC_DIR", "./public"),

		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", SessionRedis)),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),

		AuthStrategies: splitList(strings.ToLower(getEnv("AUTH_STRATEGY", StrategyTwitter))),

		TwitterAPIKey:       os.Getenv("TWITTER_API_KEY"),
		TwitterAPIKeySecret: os.Getenv("TWITTER_API_KEY_SECRET"),
		TwitterBearerToken:  os.Getenv("TWITTER_BEARER_TOKEN"),
		TwitterCallbackURL:  getEnv("TWITTER_CALLBACK_URL", "http://localhost:3300/auth/twitter/callback"),
		TwitterAPIBase:      getEnv("TWITTER_API_BASE", "https://api.twitter.com/2"),
		TwitterOAuthBase:    getEnv("TWITTER_OAUTH_BASE", "https://api.twitter.com/oauth"),

		OIDCProviderName:  getEnv("OIDC_PROVIDER_NAME", "google"),
		OIDCIssuer:        getEnv("OIDC_ISSUER", "https://accounts.google.com"),
		OIDCClientID:      os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret:  os.Getenv("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:   os.Getenv("OIDC_REDIRECT_URL"),
		OIDCPublicAuthURL: os.Getenv("OIDC_PUBLIC_AUTH_URL"),

		CORSMode:           strings.ToLower(getEnv("CORS_MODE", "strict")),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		UpstreamTimeout: timeout,
	}

	return cfg, nil
}

// Production reports whether cookies must be marked Secure.
func (c Config) Production() bool {
	return c.AppEnv == "production"
}

// Enabled reports whether the named login strategy is switched on.
func (c Config) Enabled(strategy string) bool {
	for _, s := range c.AuthStrategies {
		if s == strategy {
			return true
		}
	}
	return false
}

// Validate reports every configuration fault at once so the server refuses
// to start instead of failing on the first request.
func (c Config) Validate() error {
	var errs []error

	if c.AppPort == "" {
		errs = append(errs, errors.New("APP_PORT is required"))
	}

	switch c.SessionBackend {
	case SessionMemory:
	case SessionRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis session backend"))
		}
	case SessionPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres session backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}

	if len(c.AuthStrategies) == 0 {
		errs = append(errs, errors.New("AUTH_STRATEGY must name at least one strategy"))
	}
	for _, s := range c.AuthStrategies {
		switch s {
		case StrategyTwitter:
			if c.TwitterAPIKey == "" || c.TwitterAPIKeySecret == "" {
				errs = append(errs, errors.New("Twitter OAuth not configured. Please set TWITTER_API_KEY and TWITTER_API_KEY_SECRET"))
			}
			if c.TwitterCallbackURL == "" {
				errs = append(errs, errors.New("TWITTER_CALLBACK_URL is required"))
			}
		case StrategyOIDC:
			if c.OIDCClientID == "" || c.OIDCClientSecret == "" || c.OIDCRedirectURL == "" {
				errs = append(errs, errors.New("OIDC_CLIENT_ID, OIDC_CLIENT_SECRET and OIDC_REDIRECT_URL are required"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown AUTH_STRATEGY %q", s))
		}
	}

	// Without a shared token, only signed-in users of the platform
	// strategy can query anything.
	if c.TwitterBearerToken == "" && !c.Enabled(StrategyTwitter) {
		errs = append(errs, errors.New("TWITTER_BEARER_TOKEN is required unless the twitter strategy is enabled"))
	}

	switch c.CORSMode {
	case "strict", "permissive":
	default:
		errs = append(errs, fmt.Errorf("unknown CORS_MODE %q", c.CORSMode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", apperr.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
