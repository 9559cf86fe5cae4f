package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-bridge/internal/config"
)

func validEnviron() map[string]string {
	return map[string]string{
		"COOKIE_SECRET":     "0123456789abcdef0123456789abcdef",
		"IDP_CLIENT_ID":     "bridge",
		"IDP_CLIENT_SECRET": "secret",
		"BACKEND_URL":       "http://backend:9000",
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(validEnviron())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, ":8080", cfg.GetPort())
	require.Equal(t, "DEV", cfg.GetEnv())
	require.Equal(t, "http://localhost:8080/callback", cfg.GetCallbackURL())
	require.Equal(t, "mcp-client", cfg.GetClientID())
	require.Empty(t, cfg.GetAllowedRedirectURIs())
	require.Equal(t, 600*time.Second, cfg.GetFlowStateTTL())
	require.Equal(t, 600*time.Second, cfg.GetAuthCodeTimeout())
	require.Equal(t, time.Hour, cfg.GetSessionTTL())
	require.False(t, cfg.GetRefreshTokensEnabled())
	require.Equal(t, "https://accounts.google.com", cfg.GetIdPIssuerURL())
	require.Equal(t, []string{"openid", "email", "profile"}, cfg.GetIdPScopes())
	require.Equal(t, map[string]string{"access_type": "offline"}, cfg.GetIdPAuthParams())
	require.False(t, cfg.GetIdPEndpoints().Complete())
	require.Equal(t, "/mcp", cfg.GetProxyPrefix())
	require.Equal(t, 30*time.Second, cfg.GetProxyTimeout())
	require.True(t, cfg.GetAllowDirectTokens())
	require.Equal(t, "X-Backend-Token", cfg.GetCredentialHeader())
	require.Equal(t, "token", cfg.GetCredentialQueryParam())
	require.Equal(t, "X-Backend-User-Id", cfg.GetBackendUserIDHeader())
	require.Equal(t, "X-Backend-User-Email", cfg.GetBackendUserEmailHeader())
	require.True(t, cfg.GetAllowedOrigins().IsAllowedOrigin("*"))
	require.Equal(t, config.StoreTypeMemory, cfg.GetStoreType())
	require.Equal(t, "bridge:", cfg.GetRedisConfig().KeyPrefix)
	require.False(t, cfg.GetEnableRateLimiting())
	require.True(t, cfg.GetMetricsEnabled())
}

func TestOverrides(t *testing.T) {
	environ := validEnviron()
	environ["PORT"] = "9090"
	environ["BASE_URL"] = "https://auth.example.com/"
	environ["ALLOWED_REDIRECT_URIS"] = "http://localhost:3000/cb,https://app.example.com/cb"
	environ["IDP_AUTH_PARAMS"] = "access_type:offline,prompt:consent"
	environ["CORS_ALLOWED_ORIGINS"] = "https://app.example.com, https://admin.example.com"
	environ["PROXY_PREFIX"] = "/api/"
	environ["CODE_LENGTH"] = "4"
	environ["TOKEN_LENGTH"] = "64"

	cfg, err := config.LoadFrom(environ)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, ":9090", cfg.GetPort())
	require.Equal(t, "https://auth.example.com/callback", cfg.GetCallbackURL())
	require.Equal(t, []string{"http://localhost:3000/cb", "https://app.example.com/cb"}, cfg.GetAllowedRedirectURIs())
	require.Equal(t, map[string]string{"access_type": "offline", "prompt": "consent"}, cfg.GetIdPAuthParams())
	require.True(t, cfg.GetAllowedOrigins().IsAllowedOrigin("https://admin.example.com"))
	require.False(t, cfg.GetAllowedOrigins().IsAllowedOrigin("*"))
	require.Equal(t, "/api", cfg.GetProxyPrefix())

	t.Run("random lengths have a floor", func(t *testing.T) {
		require.Equal(t, 16, cfg.GetCodeGenerationLength())
		require.Equal(t, 64, cfg.GetAccessTokenLength())
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr string
	}{
		{
			name:    "short cookie secret",
			mutate:  func(e map[string]string) { e["COOKIE_SECRET"] = "short" },
			wantErr: "COOKIE_SECRET",
		},
		{
			name:    "missing idp client",
			mutate:  func(e map[string]string) { delete(e, "IDP_CLIENT_ID") },
			wantErr: "IDP_CLIENT_ID",
		},
		{
			name:    "missing idp secret",
			mutate:  func(e map[string]string) { delete(e, "IDP_CLIENT_SECRET") },
			wantErr: "IDP_CLIENT_SECRET",
		},
		{
			name:    "missing backend",
			mutate:  func(e map[string]string) { delete(e, "BACKEND_URL") },
			wantErr: "BACKEND_URL",
		},
		{
			name:    "root proxy prefix",
			mutate:  func(e map[string]string) { e["PROXY_PREFIX"] = "/" },
			wantErr: "PROXY_PREFIX",
		},
		{
			name:    "unknown store",
			mutate:  func(e map[string]string) { e["STORE_TYPE"] = "etcd" },
			wantErr: "STORE_TYPE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			environ := validEnviron()
			tt.mutate(environ)
			cfg, err := config.LoadFrom(environ)
			require.NoError(t, err)
			require.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}

	t.Run("explicit endpoints", func(t *testing.T) {
		environ := validEnviron()
		environ["IDP_AUTH_URL"] = "https://idp/authorize"
		environ["IDP_TOKEN_URL"] = "https://idp/token"
		environ["IDP_USERINFO_URL"] = "https://idp/userinfo"
		environ["IDP_JWKS_URL"] = "https://idp/jwks"
		cfg, err := config.LoadFrom(environ)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
		require.True(t, cfg.GetIdPEndpoints().Complete())
	})
}

func TestParseError(t *testing.T) {
	environ := validEnviron()
	environ["SESSION_TTL"] = "an hour"
	_, err := config.LoadFrom(environ)
	require.Error(t, err)
}
