package idp_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-bridge/idp"
	"github.com/jrsteele09/go-auth-bridge/idp/idptest"
	"github.com/jrsteele09/go-auth-bridge/internal/config"
	apperrors "github.com/jrsteele09/go-auth-bridge/internal/errors"
	"github.com/jrsteele09/go-auth-bridge/internal/utils"
	"github.com/jrsteele09/go-auth-bridge/pkce"
)

const testRedirectURL = "http://bridge.test/callback"

type providerFixture struct {
	server   *idptest.Server
	provider *idp.OIDCProvider
}

func setupProviderFixture(t *testing.T) *providerFixture {
	t.Helper()
	server := idptest.NewServer(t, idptest.User{
		Subject:       "sub-123",
		Email:         "user@example.com",
		Name:          "Test User",
		EmailVerified: utils.Ptr(true),
	})
	cfg := config.IdP{
		IdPIssuerURL:    server.URL,
		IdPClientID:     idptest.ClientID,
		IdPClientSecret: idptest.ClientSecret,
		IdPScopes:       []string{"openid", "email", "profile"},
		IdPAuthParams:   map[string]string{"access_type": "offline"},
		IdPTimeout:      5 * time.Second,
	}
	provider, err := idp.NewOIDCProvider(context.Background(), cfg, testRedirectURL)
	require.NoError(t, err)
	return &providerFixture{server: server, provider: provider}
}

// signIn exchanges a freshly issued code, as the callback would.
func (f *providerFixture) signIn(t *testing.T, nonce string) *idp.Tokens {
	t.Helper()
	verifier := pkce.NewVerifier()
	code := f.server.IssueCode(pkce.S256Challenge(verifier), nonce, testRedirectURL)
	tokens, err := f.provider.Exchange(context.Background(), code, verifier)
	require.NoError(t, err)
	return tokens
}

func TestAuthCodeURL(t *testing.T) {
	f := setupProviderFixture(t)
	raw := f.provider.AuthCodeURL("state-1", "challenge-1", "nonce-1")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, f.server.URL+"/authorize", u.Scheme+"://"+u.Host+u.Path)
	q := u.Query()
	require.Equal(t, idptest.ClientID, q.Get("client_id"))
	require.Equal(t, testRedirectURL, q.Get("redirect_uri"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "openid email profile", q.Get("scope"))
	require.Equal(t, "state-1", q.Get("state"))
	require.Equal(t, "challenge-1", q.Get("code_challenge"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.Equal(t, "nonce-1", q.Get("nonce"))
	require.Equal(t, "offline", q.Get("access_type"))
}

func TestExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := setupProviderFixture(t)
		tokens := f.signIn(t, "nonce-1")
		require.NotEmpty(t, tokens.AccessToken)
		require.NotEmpty(t, tokens.IDToken)
		require.Equal(t, 1, f.server.TokenCalls())
	})

	t.Run("wrong verifier", func(t *testing.T) {
		f := setupProviderFixture(t)
		code := f.server.IssueCode(pkce.S256Challenge(pkce.NewVerifier()), "", testRedirectURL)
		_, err := f.provider.Exchange(ctx, code, pkce.NewVerifier())
		require.ErrorIs(t, err, apperrors.ErrUpstreamExchange)
		require.NotContains(t, err.Error(), "secret upstream detail")
		require.Equal(t, 1, f.server.TokenCalls())
	})

	t.Run("code is single use upstream", func(t *testing.T) {
		f := setupProviderFixture(t)
		verifier := pkce.NewVerifier()
		code := f.server.IssueCode(pkce.S256Challenge(verifier), "", testRedirectURL)
		_, err := f.provider.Exchange(ctx, code, verifier)
		require.NoError(t, err)
		_, err = f.provider.Exchange(ctx, code, verifier)
		require.ErrorIs(t, err, apperrors.ErrUpstreamExchange)
		require.NotContains(t, err.Error(), "secret upstream detail")
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := setupProviderFixture(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := f.provider.Exchange(cancelled, "code", "verifier")
		require.ErrorIs(t, err, apperrors.ErrUpstreamExchange)
		require.Equal(t, 0, f.server.TokenCalls())
	})
}

func TestIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("verified id token and userinfo", func(t *testing.T) {
		f := setupProviderFixture(t)
		tokens := f.signIn(t, "nonce-1")

		identity, err := f.provider.Identity(ctx, tokens, "nonce-1")
		require.NoError(t, err)
		require.Equal(t, "sub-123", identity.Subject)
		require.Equal(t, "user@example.com", identity.Email)
		require.Equal(t, "Test User", identity.Name)
		require.NotNil(t, identity.EmailVerified)
		require.True(t, *identity.EmailVerified)
		require.Equal(t, 1, f.server.UserInfoCalls())
	})

	t.Run("id token signed by an unknown key", func(t *testing.T) {
		f := setupProviderFixture(t)
		f.server.SignWithRogueKey()
		tokens := f.signIn(t, "nonce-1")

		_, err := f.provider.Identity(ctx, tokens, "nonce-1")
		require.ErrorIs(t, err, apperrors.ErrUpstreamIdentity)
		require.Equal(t, 0, f.server.UserInfoCalls())
	})

	t.Run("nonce mismatch", func(t *testing.T) {
		f := setupProviderFixture(t)
		tokens := f.signIn(t, "nonce-1")
		_, err := f.provider.Identity(ctx, tokens, "nonce-2")
		require.ErrorIs(t, err, apperrors.ErrUpstreamIdentity)
	})

	t.Run("userinfo subject mismatch", func(t *testing.T) {
		f := setupProviderFixture(t)
		f.server.OverrideUserInfoSubject("someone-else")
		tokens := f.signIn(t, "nonce-1")
		_, err := f.provider.Identity(ctx, tokens, "nonce-1")
		require.ErrorIs(t, err, apperrors.ErrUpstreamIdentity)
	})

	t.Run("userinfo only", func(t *testing.T) {
		f := setupProviderFixture(t)
		f.server.OmitIDToken()
		tokens := f.signIn(t, "")
		require.Empty(t, tokens.IDToken)

		identity, err := f.provider.Identity(ctx, tokens, "nonce-ignored")
		require.NoError(t, err)
		require.Equal(t, "user@example.com", identity.Email)
	})

	t.Run("rejected access token", func(t *testing.T) {
		f := setupProviderFixture(t)
		_, err := f.provider.Identity(ctx, &idp.Tokens{AccessToken: "unknown"}, "")
		require.ErrorIs(t, err, apperrors.ErrUpstreamIdentity)
	})
}

func TestExplicitEndpoints(t *testing.T) {
	f := setupProviderFixture(t)
	cfg := config.IdP{
		IdPIssuerURL:    f.server.URL,
		IdPClientID:     idptest.ClientID,
		IdPClientSecret: idptest.ClientSecret,
		IdPScopes:       []string{"openid", "email"},
		IdPAuthURL:      f.server.URL + "/authorize",
		IdPTokenURL:     f.server.URL + "/token",
		IdPUserInfoURL:  f.server.URL + "/userinfo",
		IdPJWKSURL:      f.server.URL + "/jwks",
		IdPTimeout:      5 * time.Second,
	}
	provider, err := idp.NewOIDCProvider(context.Background(), cfg, testRedirectURL)
	require.NoError(t, err)

	verifier := pkce.NewVerifier()
	code := f.server.IssueCode(pkce.S256Challenge(verifier), "n", testRedirectURL)
	tokens, err := provider.Exchange(context.Background(), code, verifier)
	require.NoError(t, err)
	identity, err := provider.Identity(context.Background(), tokens, "n")
	require.NoError(t, err)
	require.Equal(t, "sub-123", identity.Subject)
}

func TestDiscoveryFailure(t *testing.T) {
	cfg := config.IdP{IdPIssuerURL: "http://127.0.0.1:1", IdPTimeout: time.Second}
	_, err := idp.NewOIDCProvider(context.Background(), cfg, testRedirectURL)
	require.Error(t, err)
}
