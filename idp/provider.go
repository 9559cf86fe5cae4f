// Package idp talks to the upstream OpenID Connect identity provider: it
// builds the authorization redirect, exchanges codes with the PKCE verifier,
// verifies ID tokens against the provider's published keys and reads the
// user's claims from the userinfo endpoint.
package idp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-auth-bridge/internal/config"
	apperrors "github.com/jrsteele09/go-auth-bridge/internal/errors"
	"github.com/jrsteele09/go-auth-bridge/pkce"
)

// Provider is the upstream identity provider as seen by the flow.
type Provider interface {
	// AuthCodeURL returns the provider's authorization URL for a new flow.
	AuthCodeURL(state, codeChallenge, nonce string) string
	// Exchange trades an authorization code for tokens, presenting verifier.
	Exchange(ctx context.Context, code, codeVerifier string) (*Tokens, error)
	// Identity resolves the signed-in user from tokens.
	Identity(ctx context.Context, tokens *Tokens, nonce string) (*Identity, error)
}

var _ Provider = (*OIDCProvider)(nil)

type OIDCProvider struct {
	provider     *oidc.Provider
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	httpClient   *http.Client
	authParams   map[string]string
}

type Option func(*OIDCProvider)

// WithHTTPClient replaces the client used for every provider call.
func WithHTTPClient(client *http.Client) Option {
	return func(p *OIDCProvider) {
		p.httpClient = client
	}
}

// NewOIDCProvider discovers the provider (or uses explicit endpoints when all
// are configured). redirectURL is the bridge's own callback.
func NewOIDCProvider(ctx context.Context, cfg config.IdPConfig, redirectURL string, opts ...Option) (*OIDCProvider, error) {
	p := &OIDCProvider{
		httpClient: &http.Client{Timeout: cfg.GetIdPTimeout()},
		authParams: cfg.GetIdPAuthParams(),
	}
	for _, opt := range opts {
		opt(p)
	}

	ctx = oidc.ClientContext(ctx, p.httpClient)
	if endpoints := cfg.GetIdPEndpoints(); endpoints.Complete() {
		p.provider = (&oidc.ProviderConfig{
			IssuerURL:   cfg.GetIdPIssuerURL(),
			AuthURL:     endpoints.AuthURL,
			TokenURL:    endpoints.TokenURL,
			UserInfoURL: endpoints.UserInfoURL,
			JWKSURL:     endpoints.JWKSURL,
		}).NewProvider(ctx)
	} else {
		provider, err := oidc.NewProvider(ctx, cfg.GetIdPIssuerURL())
		if err != nil {
			return nil, fmt.Errorf("[idp.NewOIDCProvider] discovery for %s failed: %w", cfg.GetIdPIssuerURL(), err)
		}
		p.provider = provider
	}

	endpoint := p.provider.Endpoint()
	if endpoint.AuthStyle == oauth2.AuthStyleAutoDetect {
		// Auto detection resubmits the code on failure.
		endpoint.AuthStyle = oauth2.AuthStyleInHeader
	}
	p.oauth2Config = &oauth2.Config{
		ClientID:     cfg.GetIdPClientID(),
		ClientSecret: cfg.GetIdPClientSecret(),
		Endpoint:     endpoint,
		RedirectURL:  redirectURL,
		Scopes:       cfg.GetIdPScopes(),
	}
	p.verifier = p.provider.Verifier(&oidc.Config{ClientID: cfg.GetIdPClientID()})
	return p, nil
}

func (p *OIDCProvider) AuthCodeURL(state, codeChallenge, nonce string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.MethodS256),
	}
	if nonce != "" {
		opts = append(opts, oidc.Nonce(nonce))
	}
	keys := make([]string, 0, len(p.authParams))
	for k := range p.authParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, oauth2.SetAuthURLParam(k, p.authParams[k]))
	}
	return p.oauth2Config.AuthCodeURL(state, opts...)
}

func (p *OIDCProvider) Exchange(ctx context.Context, code, codeVerifier string) (*Tokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			return nil, fmt.Errorf("%w: token endpoint answered %d %s", apperrors.ErrUpstreamExchange, status, re.ErrorCode)
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUpstreamExchange, err)
	}

	idToken, _ := token.Extra("id_token").(string)
	return &Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      idToken,
		TokenType:    token.Type(),
		Expiry:       token.Expiry,
	}, nil
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
	Nonce         string `json:"nonce"`
}

// Identity verifies the ID token when one was issued and reads userinfo.
// When both are available they must name the same subject.
func (p *OIDCProvider) Identity(ctx context.Context, tokens *Tokens, nonce string) (*Identity, error) {
	if tokens == nil || tokens.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token", apperrors.ErrUpstreamIdentity)
	}
	ctx = oidc.ClientContext(ctx, p.httpClient)

	var fromIDToken *Identity
	if tokens.IDToken != "" {
		idToken, err := p.verifier.Verify(ctx, tokens.IDToken)
		if err != nil {
			return nil, fmt.Errorf("%w: id token verification: %w", apperrors.ErrUpstreamIdentity, err)
		}
		var c idTokenClaims
		if err := idToken.Claims(&c); err != nil {
			return nil, fmt.Errorf("%w: id token claims: %w", apperrors.ErrUpstreamIdentity, err)
		}
		if nonce != "" && subtle.ConstantTimeCompare([]byte(c.Nonce), []byte(nonce)) != 1 {
			return nil, fmt.Errorf("%w: id token nonce mismatch", apperrors.ErrUpstreamIdentity)
		}
		fromIDToken = &Identity{
			Subject:       idToken.Subject,
			Email:         c.Email,
			Name:          c.Name,
			EmailVerified: boolClaim(c.EmailVerified),
		}
	}

	if p.provider.UserInfoEndpoint() == "" {
		if fromIDToken == nil {
			return nil, fmt.Errorf("%w: provider has no userinfo endpoint and issued no id token", apperrors.ErrUpstreamIdentity)
		}
		return fromIDToken, nil
	}

	userInfo, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: tokens.AccessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %w", apperrors.ErrUpstreamIdentity, err)
	}
	var raw map[string]any
	if err := userInfo.Claims(&raw); err != nil {
		return nil, fmt.Errorf("%w: userinfo claims: %w", apperrors.ErrUpstreamIdentity, err)
	}
	identity := &Identity{
		Subject:       userInfo.Subject,
		Email:         userInfo.Email,
		EmailVerified: boolClaim(raw["email_verified"]),
	}
	if name, ok := raw["name"].(string); ok {
		identity.Name = name
	}

	if fromIDToken != nil {
		if identity.Subject != fromIDToken.Subject {
			return nil, fmt.Errorf("%w: userinfo subject does not match id token", apperrors.ErrUpstreamIdentity)
		}
		if identity.Email == "" {
			identity.Email = fromIDToken.Email
		}
		if identity.Name == "" {
			identity.Name = fromIDToken.Name
		}
		if identity.EmailVerified == nil {
			identity.EmailVerified = fromIDToken.EmailVerified
		}
	}
	if identity.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", apperrors.ErrUpstreamIdentity)
	}
	return identity, nil
}

// boolClaim reads a claim some providers send as a bool and others as a string.
func boolClaim(v any) *bool {
	switch b := v.(type) {
	case bool:
		return &b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return nil
		}
		return &parsed
	}
	return nil
}
