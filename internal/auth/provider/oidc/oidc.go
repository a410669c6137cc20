package oidc

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"xfeed/internal/apperr"
	"xfeed/internal/auth"
	"xfeed/internal/auth/provider"
	"xfeed/internal/logger"
	"xfeed/internal/session"
	"xfeed/internal/utils"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	DefaultName   = "google"
	DefaultIssuer = "https://accounts.google.com"

	stateBytes = 32
)

// Options configures an identity provider login. PublicAuthURL overrides
// the discovered authorization endpoint for issuers reachable under a
// different host from the browser (e.g. Keycloak behind a docker network).
type Options struct {
	Name          string
	Issuer        string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	PublicAuthURL string

	// HTTPClient is used for discovery, key fetches and code exchange.
	// nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Claims are the ID token claims copied into the session identity.
type Claims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
}

type verifyFunc func(ctx context.Context, rawIDToken string) (*Claims, error)

// Provider implements OAuth2 + OIDC login with PKCE and state.
// It returns identity facts only and never obtains a platform credential.
type Provider struct {
	name        string
	oauthConfig *oauth2.Config
	verify      verifyFunc
	client      *http.Client
}

// New initializes the provider using OIDC discovery on the issuer.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" || opts.RedirectURL == "" {
		return nil, fmt.Errorf("%w: OIDC_CLIENT_ID, OIDC_CLIENT_SECRET and OIDC_REDIRECT_URL are required", apperr.ErrConfiguration)
	}
	if opts.Issuer == "" {
		opts.Issuer = DefaultIssuer
	}

	if opts.HTTPClient != nil {
		ctx = gooidc.ClientContext(ctx, opts.HTTPClient)
	}

	discovered, err := gooidc.NewProvider(ctx, opts.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init oidc provider %s: %w", opts.Issuer, err)
	}

	verifier := discovered.Verifier(&gooidc.Config{ClientID: opts.ClientID})

	ep := discovered.Endpoint()
	if opts.PublicAuthURL != "" {
		ep.AuthURL = opts.PublicAuthURL
	}

	return newProvider(opts, ep, func(ctx context.Context, raw string) (*Claims, error) {
		idToken, err := verifier.Verify(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("id_token verification failed: %w", err)
		}
		var c Claims
		if err := idToken.Claims(&c); err != nil {
			return nil, fmt.Errorf("id_token claims parse failed: %w", err)
		}
		return &c, nil
	}), nil
}

func newProvider(opts Options, ep oauth2.Endpoint, verify verifyFunc) *Provider {
	name := opts.Name
	if name == "" {
		name = DefaultName
	}
	return &Provider{
		name: name,
		oauthConfig: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Endpoint:     ep,
			Scopes: []string{
				gooidc.ScopeOpenID,
				"profile",
				"email",
			},
		},
		verify: verify,
		client: opts.HTTPClient,
	}
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return p.name
}

// Begin generates a fresh state and PKCE verifier and builds the
// authorization URL.
func (p *Provider) Begin(ctx context.Context) (string, session.Handshake, error) {
	state, err := utils.RandomString(stateBytes)
	if err != nil {
		return "", session.Handshake{}, err
	}
	verifier := oauth2.GenerateVerifier()

	authURL := p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
	)

	return authURL, session.Handshake{
		Strategy:     p.name,
		State:        state,
		PKCEVerifier: verifier,
	}, nil
}

// Complete checks state, exchanges the code with the stored verifier and
// verifies the returned ID token.
func (p *Provider) Complete(ctx context.Context, pending *session.Handshake, query url.Values) (*provider.Result, error) {
	if errParam := query.Get("error"); errParam != "" {
		logger.Warn("oidc callback returned error", map[string]any{
			"provider": p.name,
			"error":    errParam,
			"desc":     query.Get("error_description"),
		})
		return nil, apperr.Reject(apperr.ReasonProviderDenied, nil)
	}

	state := query.Get("state")
	if pending == nil || pending.Strategy != p.name || pending.State == "" || state == "" ||
		subtle.ConstantTimeCompare([]byte(state), []byte(pending.State)) != 1 {
		return nil, apperr.Reject(apperr.ReasonInvalidState, nil)
	}

	code := query.Get("code")
	if code == "" {
		return nil, apperr.Reject(apperr.ReasonMissingParams, nil)
	}

	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}

	token, err := p.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(pending.PKCEVerifier))
	if err != nil {
		return nil, apperr.Reject(apperr.ReasonAuthFailed, fmt.Errorf("%s token exchange failed: %w", p.name, err))
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, apperr.Reject(apperr.ReasonAuthFailed, fmt.Errorf("%s did not return id_token", p.name))
	}

	claims, err := p.verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperr.Reject(apperr.ReasonAuthFailed, err)
	}
	if claims.Subject == "" {
		return nil, apperr.Reject(apperr.ReasonAuthFailed, errors.New("id_token missing sub claim"))
	}

	logger.Info("oidc login verified", map[string]any{
		"provider":       p.name,
		"email_present":  claims.Email != "",
		"email_verified": claims.EmailVerified,
	})

	return &provider.Result{
		Identity: auth.Identity{
			Provider:        p.name,
			ID:              claims.Subject,
			Name:            claims.Name,
			Username:        claims.PreferredUsername,
			ProfileImageURL: claims.Picture,
			Email:           claims.Email,
		},
	}, nil
}
