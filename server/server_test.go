package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-bridge/flowstate"
	"github.com/jrsteele09/go-auth-bridge/idp"
	"github.com/jrsteele09/go-auth-bridge/idp/idptest"
	"github.com/jrsteele09/go-auth-bridge/internal/config"
	"github.com/jrsteele09/go-auth-bridge/mappings"
	"github.com/jrsteele09/go-auth-bridge/metrics"
	"github.com/jrsteele09/go-auth-bridge/oauthmodel"
	"github.com/jrsteele09/go-auth-bridge/pkce"
	"github.com/jrsteele09/go-auth-bridge/server"
	"github.com/jrsteele09/go-auth-bridge/store"
	"github.com/jrsteele09/go-auth-bridge/store/redisstore"
)

const (
	bridgeBaseURL     = "http://bridge.test"
	clientRedirectURI = "http://client.test/cb"
	clientState       = "client-state"
	cookieSecret      = "0123456789abcdef0123456789abcdef"
)

type backend struct {
	*httptest.Server

	lock     sync.Mutex
	requests []*http.Request
}

func (b *backend) Last() *http.Request {
	b.lock.Lock()
	defer b.lock.Unlock()
	if len(b.requests) == 0 {
		return nil
	}
	return b.requests[len(b.requests)-1]
}

func (b *backend) Calls() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.requests)
}

type testFixture struct {
	server  *server.Server
	idp     *idptest.Server
	redis   *miniredis.Miniredis
	store   store.Store
	backend *backend
	metrics *metrics.Metrics
	http    *http.Client
}

func setupTestFixture(t *testing.T, overrides map[string]string) *testFixture {
	t.Helper()
	verified := true
	provider := idptest.NewServer(t, idptest.User{
		Subject:       "user-123",
		Email:         "user@example.com",
		Name:          "Test User",
		EmailVerified: &verified,
	})

	be := &backend{}
	be.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		be.lock.Lock()
		be.requests = append(be.requests, r.Clone(context.Background()))
		be.lock.Unlock()
		w.Header().Set("Access-Control-Allow-Origin", "http://evil.test")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(be.Close)

	mr := miniredis.RunT(t)
	st := redisstore.New(config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "bridge:"})
	t.Cleanup(func() { _ = st.Close() })

	environ := map[string]string{
		"ENV":               "TEST",
		"BASE_URL":          bridgeBaseURL,
		"COOKIE_SECRET":     cookieSecret,
		"IDP_ISSUER_URL":    provider.URL,
		"IDP_CLIENT_ID":     idptest.ClientID,
		"IDP_CLIENT_SECRET": idptest.ClientSecret,
		"BACKEND_URL":       be.URL + "/api",
		"STORE_TYPE":        "redis",
	}
	for k, v := range overrides {
		environ[k] = v
	}
	cfg, err := config.LoadFrom(environ)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	oidcProvider, err := idp.NewOIDCProvider(context.Background(), cfg, cfg.GetCallbackURL())
	require.NoError(t, err)

	require.NoError(t, mappings.NewRepo(st).Upsert(context.Background(), &mappings.Mapping{
		Email:      "user@example.com",
		Credential: "secret-abc",
	}))

	m := metrics.New()
	s, err := server.New(cfg, st, oidcProvider, server.WithMetrics(m))
	require.NoError(t, err)

	return &testFixture{
		server:  s,
		idp:     provider,
		redis:   mr,
		store:   st,
		backend: be,
		metrics: m,
		http: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
	}
}

func (f *testFixture) serve(r *http.Request) *http.Response {
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, r)
	return w.Result()
}

func flowCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == flowstate.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie on response", flowstate.CookieName)
	return nil
}

func decodeError(t *testing.T, resp *http.Response) oauthmodel.ErrorResponse {
	t.Helper()
	var body oauthmodel.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// startFlow runs /authorize and the identity provider sign in. It returns
// the callback request the provider redirected to and the flow cookie.
func (f *testFixture) startFlow(t *testing.T, codeChallenge string) (string, *http.Cookie) {
	t.Helper()
	q := url.Values{
		"response_type":         {"code"},
		"client_id":             {"mcp-client"},
		"redirect_uri":          {clientRedirectURI},
		"state":                 {clientState},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"S256"},
	}
	resp := f.serve(httptest.NewRequest(http.MethodGet, server.RouteAuthorize+"?"+q.Encode(), nil))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	cookie := flowCookie(t, resp)
	require.True(t, cookie.HttpOnly)

	idpResp, err := f.http.Get(resp.Header.Get("Location"))
	require.NoError(t, err)
	defer idpResp.Body.Close()
	require.Equal(t, http.StatusFound, idpResp.StatusCode)
	callbackURL := idpResp.Header.Get("Location")
	require.True(t, strings.HasPrefix(callbackURL, bridgeBaseURL+server.RouteCallback))
	return callbackURL, cookie
}

func (f *testFixture) callback(callbackURL string, cookie *http.Cookie) *http.Response {
	req := httptest.NewRequest(http.MethodGet, callbackURL, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return f.serve(req)
}

func (f *testFixture) token(code, verifier string) *http.Response {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"mcp-client"},
		"code":          {code},
		"redirect_uri":  {clientRedirectURI},
		"code_verifier": {verifier},
	}
	req := httptest.NewRequest(http.MethodPost, server.RouteToken, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.serve(req)
}

// signIn completes the whole flow and returns the bridge access token.
func (f *testFixture) signIn(t *testing.T) string {
	t.Helper()
	verifier := pkce.NewVerifier()
	callbackURL, cookie := f.startFlow(t, pkce.S256Challenge(verifier))

	resp := f.callback(callbackURL, cookie)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)

	resp = f.token(location.Query().Get("code"), verifier)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tokens oauthmodel.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	require.NotNil(t, tokens.AccessToken)
	return *tokens.AccessToken
}

func TestFullFlow(t *testing.T) {
	f := setupTestFixture(t, nil)
	verifier := pkce.NewVerifier()

	callbackURL, cookie := f.startFlow(t, pkce.S256Challenge(verifier))

	resp := f.callback(callbackURL, cookie)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	cleared := flowCookie(t, resp)
	require.Less(t, cleared.MaxAge, 0)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "client.test", location.Host)
	require.Equal(t, clientState, location.Query().Get("state"))
	code := location.Query().Get("code")
	require.NotEmpty(t, code)

	resp = f.token(code, verifier)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "no-cache", resp.Header.Get("Pragma"))
	var tokens oauthmodel.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	require.NotNil(t, tokens.AccessToken)
	require.Equal(t, "Bearer", tokens.TokenType)
	require.Equal(t, 3600, tokens.ExpiresIn)
	require.Nil(t, tokens.RefreshToken)

	t.Run("code is single use", func(t *testing.T) {
		resp := f.token(code, verifier)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, oauthmodel.ErrorCodeInvalidGrant, decodeError(t, resp).Error)
	})

	t.Run("proxy swaps the session token for the mapped credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/mcp/messages?x=1", nil)
		req.Header.Set("Authorization", "Bearer "+*tokens.AccessToken)
		req.Header.Set("X-Backend-User-Email", "spoofed@example.com")
		resp := f.serve(req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		got := f.backend.Last()
		require.NotNil(t, got)
		require.Equal(t, "/api/messages", got.URL.Path)
		require.Equal(t, "1", got.URL.Query().Get("x"))
		require.Equal(t, "secret-abc", got.Header.Get("X-Backend-Token"))
		require.Equal(t, "user-123", got.Header.Get("X-Backend-User-Id"))
		require.Equal(t, "user@example.com", got.Header.Get("X-Backend-User-Email"))
		require.Empty(t, got.Header.Get("Authorization"))
	})

	t.Run("whoami reports the session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, server.RouteWhoAmI, nil)
		req.Header.Set("Authorization", "Bearer "+*tokens.AccessToken)
		resp := f.serve(req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var who server.WhoAmIResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&who))
		require.True(t, who.Authenticated)
		require.Equal(t, metrics.ModeSession, who.Method)
		require.Equal(t, "user-123", who.UserID)
		require.Equal(t, "user@example.com", who.Email)
		require.NotNil(t, who.ExpiresAt)
	})

	t.Run("flow outcomes are counted", func(t *testing.T) {
		count, err := testutil.GatherAndCount(f.metrics.Registry(), "auth_bridge_flow_outcomes_total")
		require.NoError(t, err)
		// authorize, callback and token successes plus the invalid_grant replay.
		require.Equal(t, 4, count)
	})
}

func TestCallbackRejections(t *testing.T) {
	t.Run("unprovisioned user", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		f.idp.SetUser(idptest.User{Subject: "user-999", Email: "nobody@example.com"})

		callbackURL, cookie := f.startFlow(t, pkce.S256Challenge(pkce.NewVerifier()))
		resp := f.callback(callbackURL, cookie)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		body := decodeError(t, resp)
		require.Equal(t, oauthmodel.ErrorCodeAccessDenied, body.Error)
		require.Equal(t, "user is not provisioned", body.ErrorDescription)
		require.Less(t, flowCookie(t, resp).MaxAge, 0)

		for _, k := range f.redis.Keys() {
			require.False(t, strings.HasPrefix(k, "bridge:"+store.NamespaceGrant), "unexpected grant %s", k)
		}
	})

	t.Run("missing flow cookie", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		callbackURL, _ := f.startFlow(t, pkce.S256Challenge(pkce.NewVerifier()))

		resp := f.callback(callbackURL, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		require.Equal(t, oauthmodel.ErrorCodeInvalidRequest, body.Error)
		require.Equal(t, "state mismatch", body.ErrorDescription)
		require.Equal(t, 0, f.idp.TokenCalls())

		count, err := testutil.GatherAndCount(f.metrics.Registry(), "auth_bridge_security_events_total")
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("state from another flow", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		_, cookie := f.startFlow(t, pkce.S256Challenge(pkce.NewVerifier()))

		resp := f.callback(bridgeBaseURL+server.RouteCallback+"?code=abc&state=forged", cookie)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "state mismatch", decodeError(t, resp).ErrorDescription)
		require.Equal(t, 0, f.idp.TokenCalls())
	})

	t.Run("provider reported an error", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		resp := f.callback(bridgeBaseURL+server.RouteCallback+"?error=access_denied&error_description=nope", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		require.Equal(t, oauthmodel.ErrorCodeAccessDenied, body.Error)
		require.NotContains(t, body.ErrorDescription, "nope")
	})
}

func TestAuthorizeRejections(t *testing.T) {
	f := setupTestFixture(t, nil)

	tests := []struct {
		name  string
		query url.Values
	}{
		{
			name:  "missing redirect uri",
			query: url.Values{"response_type": {"code"}},
		},
		{
			name:  "unsupported response type",
			query: url.Values{"response_type": {"token"}, "redirect_uri": {clientRedirectURI}},
		},
		{
			name:  "unknown client",
			query: url.Values{"response_type": {"code"}, "redirect_uri": {clientRedirectURI}, "client_id": {"other"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.serve(httptest.NewRequest(http.MethodGet, server.RouteOAuth2Authorize+"?"+tt.query.Encode(), nil))
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, oauthmodel.ErrorCodeInvalidRequest, decodeError(t, resp).Error)
			require.Empty(t, resp.Cookies())
		})
	}
}

func TestTokenEndpoint(t *testing.T) {
	f := setupTestFixture(t, nil)

	post := func(contentType, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, server.RouteOAuth2Token, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
		return f.serve(req)
	}

	t.Run("refresh grant is not implemented", func(t *testing.T) {
		resp := post("application/x-www-form-urlencoded", "grant_type=refresh_token&refresh_token=x")
		require.Equal(t, http.StatusNotImplemented, resp.StatusCode)
		body := decodeError(t, resp)
		require.Equal(t, oauthmodel.ErrorCodeUnsupportedGrantType, body.Error)
		require.Equal(t, "refresh_token grant is not implemented", body.ErrorDescription)
	})

	t.Run("json body", func(t *testing.T) {
		resp := post("application/json", `{"grant_type":"authorization_code","client_id":"mcp-client","code":"nope"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, oauthmodel.ErrorCodeInvalidGrant, decodeError(t, resp).Error)
	})

	t.Run("malformed json", func(t *testing.T) {
		resp := post("application/json", `{`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, oauthmodel.ErrorCodeInvalidRequest, decodeError(t, resp).Error)
	})

	t.Run("wrong client", func(t *testing.T) {
		resp := post("application/x-www-form-urlencoded", "grant_type=authorization_code&client_id=other&code=x")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, oauthmodel.ErrorCodeInvalidClient, decodeError(t, resp).Error)
	})

	t.Run("get is not routed", func(t *testing.T) {
		resp := f.serve(httptest.NewRequest(http.MethodGet, server.RouteToken, nil))
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestProxyWithoutSession(t *testing.T) {
	f := setupTestFixture(t, nil)

	t.Run("no credential", func(t *testing.T) {
		resp := f.serve(httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{}")))
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, `Bearer realm="Auth Bridge"`, resp.Header.Get("WWW-Authenticate"))
		require.Equal(t, oauthmodel.ErrorCodeUnauthorized, decodeError(t, resp).Error)
		require.Equal(t, 0, f.backend.Calls())
	})

	t.Run("direct token", func(t *testing.T) {
		resp := f.serve(httptest.NewRequest(http.MethodGet, "/mcp/tools?token=raw-backend-token", nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := f.backend.Last()
		require.Equal(t, "raw-backend-token", got.Header.Get("X-Backend-Token"))
		require.Empty(t, got.URL.Query().Get("token"))
		require.Empty(t, got.Header.Get("X-Backend-User-Id"))
	})

	t.Run("whoami direct token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, server.RouteWhoAmI, nil)
		req.Header.Set("X-Backend-Token", "abcdefghij")
		resp := f.serve(req)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var who server.WhoAmIResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&who))
		require.Equal(t, metrics.ModeToken, who.Method)
		require.Equal(t, "abcde...", who.TokenPrefix)
		require.Empty(t, who.Email)
	})

	t.Run("whoami without credential", func(t *testing.T) {
		resp := f.serve(httptest.NewRequest(http.MethodGet, server.RouteWhoAmI, nil))
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer realm=")
	})
}

func TestSessionExpiry(t *testing.T) {
	f := setupTestFixture(t, map[string]string{"SESSION_TTL": "60s"})
	accessToken := f.signIn(t)

	f.redis.FastForward(2 * time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/mcp/messages", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	calls := f.backend.Calls()
	resp := f.serve(req)
	// The expired session is gone from the store, so the raw value is
	// treated as a direct token.
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, calls+1, f.backend.Calls())
	require.Equal(t, accessToken, f.backend.Last().Header.Get("X-Backend-Token"))
}

func TestDirectTokensDisabled(t *testing.T) {
	f := setupTestFixture(t, map[string]string{"PROXY_ALLOW_DIRECT_TOKENS": "false"})

	req := httptest.NewRequest(http.MethodGet, "/mcp/messages", nil)
	req.Header.Set("Authorization", "Bearer not-a-session")
	resp := f.serve(req)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="invalid_token"`)
	require.Equal(t, 0, f.backend.Calls())

	accessToken := f.signIn(t)
	req = httptest.NewRequest(http.MethodGet, "/mcp/messages", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp = f.serve(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "secret-abc", f.backend.Last().Header.Get("X-Backend-Token"))
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t, nil)

	resp := f.serve(httptest.NewRequest(http.MethodGet, server.RouteHealth, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health server.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, server.HealthResponse{Status: "ok", Store: "ok"}, health)

	f.redis.Close()

	resp = f.serve(httptest.NewRequest(http.MethodGet, server.RouteHealth, nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "unavailable", health.Store)
}

func TestCors(t *testing.T) {
	t.Run("preflight on any route", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		for _, path := range []string{server.RouteToken, "/mcp/messages"} {
			req := httptest.NewRequest(http.MethodOptions, path, nil)
			req.Header.Set("Origin", "http://app.test")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			resp := f.serve(req)
			require.Equal(t, http.StatusOK, resp.StatusCode, path)
			require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
			require.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
			require.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))
		}
		require.Equal(t, 0, f.backend.Calls())
	})

	t.Run("allowed origin overrides backend headers", func(t *testing.T) {
		f := setupTestFixture(t, map[string]string{"CORS_ALLOWED_ORIGINS": "http://app.test"})
		req := httptest.NewRequest(http.MethodGet, "/mcp/messages", nil)
		req.Header.Set("Origin", "http://app.test")
		req.Header.Set("Authorization", "Bearer raw")
		resp := f.serve(req)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, []string{"http://app.test"}, resp.Header.Values("Access-Control-Allow-Origin"))
		require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin gets no headers", func(t *testing.T) {
		f := setupTestFixture(t, map[string]string{"CORS_ALLOWED_ORIGINS": "http://app.test"})
		req := httptest.NewRequest(http.MethodGet, server.RouteHealth, nil)
		req.Header.Set("Origin", "http://evil.test")
		resp := f.serve(req)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	f := setupTestFixture(t, map[string]string{
		"RATE_LIMIT_ENABLED": "true",
		"RATE_LIMIT_RPS":     "0.001",
		"RATE_LIMIT_BURST":   "2",
	})

	get := func() *http.Response {
		return f.serve(httptest.NewRequest(http.MethodGet, server.RouteAuthorize, nil))
	}
	require.Equal(t, http.StatusBadRequest, get().StatusCode)
	require.Equal(t, http.StatusBadRequest, get().StatusCode)

	resp := get()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get("Retry-After"))
	require.Equal(t, oauthmodel.ErrorCodeTooManyRequests, decodeError(t, resp).Error)

	// Only the flow endpoints are limited.
	require.Equal(t, http.StatusOK, f.serve(httptest.NewRequest(http.MethodGet, server.RouteHealth, nil)).StatusCode)
}

func TestRequestID(t *testing.T) {
	f := setupTestFixture(t, nil)

	resp := f.serve(httptest.NewRequest(http.MethodGet, server.RouteHealth, nil))
	require.NotEmpty(t, resp.Header.Get(server.HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, server.RouteHealth, nil)
	req.Header.Set(server.HeaderRequestID, "req-42")
	resp = f.serve(req)
	require.Equal(t, "req-42", resp.Header.Get(server.HeaderRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupTestFixture(t, nil)
	_ = f.serve(httptest.NewRequest(http.MethodGet, server.RouteHealth, nil))

	resp := f.serve(httptest.NewRequest(http.MethodGet, server.RouteMetrics, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `auth_bridge_http_requests_total{method="GET",route="/health",status="200"}`)
}
