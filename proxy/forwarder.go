// Package proxy forwards authenticated requests to the backend, swapping the
// caller's bridge token for the backend credential it maps to.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-bridge/internal/config"
	apperrors "github.com/jrsteele09/go-auth-bridge/internal/errors"
	"github.com/jrsteele09/go-auth-bridge/metrics"
	"github.com/jrsteele09/go-auth-bridge/oauthmodel"
	"github.com/jrsteele09/go-auth-bridge/sessions"
)

const (
	dialTimeout         = 5 * time.Second
	tlsHandshakeTimeout = 5 * time.Second
)

// SessionResolver finds the live session behind an access token. It returns
// apperrors.ErrNotFound for unknown tokens and apperrors.ErrTokenExpired for
// expired sessions.
type SessionResolver interface {
	ResolveSession(ctx context.Context, accessToken string) (*sessions.Session, error)
}

// Resolution is the outcome of authenticating a proxied request.
type Resolution struct {
	Mode       string            // metrics.ModeSession or metrics.ModeToken
	Credential Credential        // what the caller presented
	Session    *sessions.Session // nil in direct token mode
}

// BackendCredential is the value sent to the backend.
func (r *Resolution) BackendCredential() string {
	if r.Session != nil {
		return r.Session.Credential
	}
	return r.Credential.Value
}

type resolutionKey struct{}

type forwardState struct {
	resolution *Resolution
	start      time.Time
	upstream   time.Duration
}

// Forwarder is the http.Handler mounted under the proxy prefix. It resolves the
// caller's credential and relays the request to the backend.
type Forwarder struct {
	config   config.ProxyConfig
	realm    string
	resolver SessionResolver
	backend  *url.URL
	proxy    *httputil.ReverseProxy
	metrics  *metrics.Metrics
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithTransport replaces the backend transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Forwarder) {
		f.proxy.Transport = rt
	}
}

// WithMetrics records proxy outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Forwarder) {
		f.metrics = m
	}
}

// NewForwarder builds the forwarder. realm is used in bearer challenges.
func NewForwarder(cfg config.ProxyConfig, realm string, resolver SessionResolver, opts ...Option) (*Forwarder, error) {
	if resolver == nil {
		return nil, errors.New("[proxy.NewForwarder] session resolver is required")
	}
	backend, err := url.Parse(cfg.GetBackendURL())
	if err != nil || backend.Scheme == "" || backend.Host == "" {
		return nil, fmt.Errorf("[proxy.NewForwarder] invalid backend URL %q", cfg.GetBackendURL())
	}

	f := &Forwarder{
		config:   cfg,
		realm:    realm,
		resolver: resolver,
		backend:  backend,
	}
	f.proxy = &httputil.ReverseProxy{
		Rewrite:        f.rewrite,
		ModifyResponse: f.modifyResponse,
		ErrorHandler:   f.errorHandler,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
			ResponseHeaderTimeout: cfg.GetProxyTimeout(),
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Resolve authenticates r without forwarding it. Failures are
// *oauthmodel.Error values ready to be written.
func (f *Forwarder) Resolve(r *http.Request) (*Resolution, error) {
	cred, ok := ExtractCredential(r, f.config.GetCredentialHeader(), f.config.GetCredentialQueryParam())
	if !ok {
		return nil, oauthmodel.NewError(oauthmodel.ErrorCodeUnauthorized, "authentication required",
			http.StatusUnauthorized, apperrors.ErrInvalidToken)
	}

	session, err := f.resolver.ResolveSession(r.Context(), cred.Value)
	switch {
	case err == nil:
		return &Resolution{Mode: metrics.ModeSession, Credential: cred, Session: session}, nil
	case errors.Is(err, apperrors.ErrTokenExpired):
		return nil, oauthmodel.NewError(oauthmodel.ErrorCodeInvalidToken, "access token expired",
			http.StatusUnauthorized, err)
	case errors.Is(err, apperrors.ErrNotFound):
		if !f.config.GetAllowDirectTokens() {
			return nil, oauthmodel.NewError(oauthmodel.ErrorCodeInvalidToken, "unknown access token",
				http.StatusUnauthorized, err)
		}
		return &Resolution{Mode: metrics.ModeToken, Credential: cred}, nil
	default:
		return nil, oauthmodel.ServerError("credential store unavailable", err)
	}
}

// WriteChallenge writes a 401 with a bearer challenge for err.
func (f *Forwarder) WriteChallenge(w http.ResponseWriter, err error) {
	oe := oauthmodel.AsError(err)
	if oe.Status == http.StatusUnauthorized {
		challenge := fmt.Sprintf("Bearer realm=%q", f.realm)
		if oe.Code == oauthmodel.ErrorCodeInvalidToken {
			challenge += `, error="invalid_token"`
		}
		w.Header().Set("WWW-Authenticate", challenge)
	}
	oauthmodel.WriteError(w, oe)
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	state := &forwardState{start: time.Now()}
	defer func() {
		mode := metrics.ModeNone
		if state.resolution != nil {
			mode = state.resolution.Mode
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		f.metrics.RecordProxy(mode, status, state.upstream)
	}()

	resolution, err := f.Resolve(r)
	if err != nil {
		logger := zerolog.Ctx(r.Context())
		if oauthmodel.AsError(err).Status >= http.StatusInternalServerError {
			logger.Error().Err(err).Msg("proxy session lookup failed")
		} else {
			logger.Debug().Err(err).Msg("proxy request rejected")
		}
		f.WriteChallenge(ww, err)
		return
	}
	state.resolution = resolution

	ctx := context.WithValue(r.Context(), resolutionKey{}, state)
	f.proxy.ServeHTTP(ww, r.WithContext(ctx))
}

func (f *Forwarder) rewrite(pr *httputil.ProxyRequest) {
	state, _ := pr.In.Context().Value(resolutionKey{}).(*forwardState)

	pr.Out.URL.Path = f.stripPrefix(pr.In.URL.Path)
	pr.Out.URL.RawPath = ""
	if pr.In.URL.RawPath != "" {
		pr.Out.URL.RawPath = f.stripPrefix(pr.In.URL.EscapedPath())
	}
	query := pr.In.URL.Query()
	if param := f.config.GetCredentialQueryParam(); param != "" && query.Has(param) {
		query.Del(param)
		pr.Out.URL.RawQuery = query.Encode()
	}
	pr.SetURL(f.backend)
	pr.SetXForwarded()

	h := pr.Out.Header
	if state != nil {
		h.Del("Authorization")
	}
	if state != nil && state.resolution.Credential.Source == SourceHeader {
		h.Del(f.config.GetCredentialHeader())
	}
	h.Del(f.config.GetBackendUserIDHeader())
	h.Del(f.config.GetBackendUserEmailHeader())
	h.Del(f.config.GetBackendTokenHeader())
	if state == nil {
		return
	}

	resolution := state.resolution
	if resolution.Session != nil {
		if sub := resolution.Session.Identity.Subject; sub != "" {
			h.Set(f.config.GetBackendUserIDHeader(), sub)
		}
		if email := resolution.Session.Identity.Email; email != "" {
			h.Set(f.config.GetBackendUserEmailHeader(), email)
		}
	}
	h.Set(f.config.GetBackendTokenHeader(), resolution.BackendCredential())
}

// modifyResponse drops backend CORS headers; the bridge's CORS middleware
// owns them.
func (f *Forwarder) modifyResponse(resp *http.Response) error {
	if state, ok := resp.Request.Context().Value(resolutionKey{}).(*forwardState); ok {
		state.upstream = time.Since(state.start)
	}
	for name := range resp.Header {
		if strings.HasPrefix(name, "Access-Control-") {
			resp.Header.Del(name)
		}
	}
	return nil
}

func (f *Forwarder) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())
	if errors.Is(err, context.Canceled) {
		logger.Debug().Err(err).Msg("client went away before the backend answered")
	} else {
		logger.Error().Err(err).Str("backend", f.backend.Host).Msg("backend request failed")
	}
	oauthmodel.WriteJSONError(w, oauthmodel.ErrorCodeBadGateway, "backend unavailable", http.StatusBadGateway)
}

// stripPrefix removes the proxy prefix, keeping a leading slash.
func (f *Forwarder) stripPrefix(path string) string {
	prefix := f.config.GetProxyPrefix()
	if prefix == "/" {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return path
	}
	if rest == "" {
		return "/"
	}
	if !strings.HasPrefix(rest, "/") {
		return path
	}
	return rest
}
