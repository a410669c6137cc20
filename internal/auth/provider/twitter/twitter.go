package twitter

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"xfeed/internal/apperr"
	"xfeed/internal/auth"
	"xfeed/internal/auth/credentials"
	"xfeed/internal/auth/oauth1"
	"xfeed/internal/auth/provider"
	"xfeed/internal/feed"
	"xfeed/internal/session"

	"github.com/gomodule/oauth1/oauth"
)

const (
	providerName     = "twitter"
	DefaultOAuthBase = "https://api.twitter.com/oauth"
)

// ProfileFetcher loads the profile of the user owning a credential.
// *feed.Gateway implements it.
type ProfileFetcher interface {
	Me(ctx context.Context, cred credentials.Credential) (*feed.Profile, error)
}

// Provider runs the platform's three-legged OAuth 1.0a flow:
// request token, user authorization redirect, access token exchange.
type Provider struct {
	signer      *oauth1.Signer
	flow        *oauth.Client
	callbackURL string
	client      *http.Client
	profiles    ProfileFetcher
}

// New validates the consumer configuration up front; a missing key or
// secret is a configuration fault.
func New(
	signer *oauth1.Signer,
	callbackURL string,
	oauthBase string,
	client *http.Client,
	profiles ProfileFetcher,
) (*Provider, error) {

	if signer == nil {
		return nil, fmt.Errorf("%w: Twitter OAuth not configured. Please set TWITTER_API_KEY and TWITTER_API_KEY_SECRET", apperr.ErrConfiguration)
	}
	if callbackURL == "" {
		return nil, fmt.Errorf("%w: TWITTER_CALLBACK_URL is required", apperr.ErrConfiguration)
	}
	if oauthBase == "" {
		oauthBase = DefaultOAuthBase
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Provider{
		signer:      signer,
		flow:        signer.Endpoints(strings.TrimRight(oauthBase, "/")),
		callbackURL: callbackURL,
		client:      client,
		profiles:    profiles,
	}, nil
}

// Name returns the strategy identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// Begin obtains a request token signed with the consumer credential only.
// Nothing is returned for storage unless both token and secret came back.
func (p *Provider) Begin(ctx context.Context) (string, session.Handshake, error) {
	temp, err := p.flow.RequestTemporaryCredentialsContext(context.WithValue(ctx, oauth.HTTPClient, p.client), p.callbackURL, nil)
	if err != nil {
		return "", session.Handshake{}, fmt.Errorf("twitter request token: %w", upstream(err))
	}
	if temp.Token == "" || temp.Secret == "" {
		return "", session.Handshake{}, fmt.Errorf("%w: request token response missing oauth_token", apperr.ErrUpstreamUnavailable)
	}

	return p.flow.AuthorizationURL(temp, nil), session.Handshake{
		Strategy: providerName,
		Token:    temp.Token,
		Secret:   temp.Secret,
	}, nil
}

// Complete checks the returned token against the pending one, exchanges
// the verifier for an access token and loads the user's profile.
func (p *Provider) Complete(ctx context.Context, pending *session.Handshake, query url.Values) (*provider.Result, error) {
	if query.Get("denied") != "" {
		return nil, apperr.Reject(apperr.ReasonDenied, nil)
	}

	returned := query.Get("oauth_token")
	verifier := query.Get("oauth_verifier")
	if returned == "" || verifier == "" {
		return nil, apperr.Reject(apperr.ReasonMissingParams, nil)
	}

	// The token equality check is the CSRF defense of this flow.
	if pending == nil || pending.Strategy != providerName || pending.Token == "" ||
		subtle.ConstantTimeCompare([]byte(returned), []byte(pending.Token)) != 1 {
		return nil, apperr.Reject(apperr.ReasonTokenMismatch, nil)
	}

	access, values, err := p.flow.RequestTokenContext(context.WithValue(ctx, oauth.HTTPClient, p.client),
		&oauth.Credentials{Token: pending.Token, Secret: pending.Secret}, verifier)
	if err != nil {
		return nil, apperr.Reject(apperr.ReasonAuthFailed, fmt.Errorf("access token exchange: %w", upstream(err)))
	}
	if access.Token == "" || access.Secret == "" {
		return nil, apperr.Reject(apperr.ReasonAuthFailed, errors.New("access token response missing oauth_token"))
	}
	userToken := credentials.UserToken{Token: access.Token, Secret: access.Secret}

	identity := auth.Identity{
		Provider: providerName,
		ID:       values.Get("user_id"),
		Username: values.Get("screen_name"),
	}

	if p.profiles != nil {
		profile, err := p.profiles.Me(ctx, credentials.NewDelegated(p.signer, userToken))
		if err != nil {
			return nil, apperr.Reject(apperr.ReasonAuthFailed, fmt.Errorf("fetch profile: %w", err))
		}
		if identity.ID == "" {
			identity.ID = profile.ID
		}
		if identity.Username == "" {
			identity.Username = profile.Username
		}
		identity.Name = profile.Name
		identity.ProfileImageURL = profile.ProfileImageURL
	}

	if identity.ID == "" {
		return nil, apperr.Reject(apperr.ReasonAuthFailed, errors.New("no user id in access token response or profile"))
	}

	return &provider.Result{Identity: identity, Delegated: &userToken}, nil
}

// upstream marks a failed token request as an upstream fault so it never
// surfaces as a configuration error.
func upstream(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, err)
}
