package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-bridge/auth"
	"github.com/jrsteele09/go-auth-bridge/flowstate"
	"github.com/jrsteele09/go-auth-bridge/grants"
	"github.com/jrsteele09/go-auth-bridge/idp"
	"github.com/jrsteele09/go-auth-bridge/internal/config"
	"github.com/jrsteele09/go-auth-bridge/mappings"
	"github.com/jrsteele09/go-auth-bridge/metrics"
	"github.com/jrsteele09/go-auth-bridge/proxy"
	"github.com/jrsteele09/go-auth-bridge/sessions"
	"github.com/jrsteele09/go-auth-bridge/store"
	"github.com/jrsteele09/go-auth-bridge/token/refresh"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	router    *chi.Mux
	routes    []string
	config    config.Config
	auth      *auth.AuthorizationService
	flow      *flowstate.Codec
	forwarder *proxy.Forwarder
	store     store.Store
	metrics   *metrics.Metrics
	limiter   *ipRateLimiter

	nowTime        func() time.Time
	proxyTransport http.RoundTripper
}

// Option customises a Server.
type Option func(*Server)

// WithMetrics replaces the collectors created from METRICS_ENABLED.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithNowTime sets the clock used for flow state, grants and sessions (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithProxyTransport sets the transport used to reach the backend.
func WithProxyTransport(rt http.RoundTripper) Option {
	return func(s *Server) {
		s.proxyTransport = rt
	}
}

// New wires the authorization flow, the proxy and the supporting endpoints
// on top of st and provider.
func New(cfg config.Config, st store.Store, provider idp.Provider, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("[Server New] config is required")
	}
	if st == nil {
		return nil, fmt.Errorf("[Server New] store is required")
	}

	s := &Server{
		env:     cfg.GetEnv(),
		router:  chi.NewRouter(),
		config:  cfg,
		store:   st,
		nowTime: time.Now,
	}
	if cfg.GetMetricsEnabled() {
		s.metrics = metrics.New()
	}
	for _, opt := range opts {
		opt(s)
	}

	repos := auth.Repos{
		Mappings: mappings.NewRepo(st),
		Grants:   grants.NewRepo(st),
		Sessions: sessions.NewRepo(st),
	}
	if cfg.GetRefreshTokensEnabled() {
		repos.Refresh = refresh.NewManager(st, cfg, refresh.WithNowTime(s.nowTime))
	}
	authService, err := auth.NewAuthorizationService(repos, provider, cfg, auth.WithNowTime(s.nowTime))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create authorization service: %w", err)
	}
	s.auth = authService

	s.flow, err = flowstate.NewCodec(cfg.GetCookieSecret(), cfg.GetFlowStateTTL(), flowstate.WithNowTime(s.nowTime))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create flow state codec: %w", err)
	}

	proxyOpts := []proxy.Option{proxy.WithMetrics(s.metrics)}
	if s.proxyTransport != nil {
		proxyOpts = append(proxyOpts, proxy.WithTransport(s.proxyTransport))
	}
	s.forwarder, err = proxy.NewForwarder(cfg, cfg.GetAppName(), authService, proxyOpts...)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create proxy: %w", err)
	}

	if cfg.GetEnableRateLimiting() {
		s.limiter = newIPRateLimiter(cfg.GetRateLimit(), cfg.GetRateLimitBurst())
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RegisterRouteHandler mounts handler for method on pattern. An empty method
// matches every method.
func (s *Server) RegisterRouteHandler(method, pattern string, handler http.Handler) {
	if method == "" {
		s.routes = append(s.routes, pattern)
		s.router.Handle(pattern, handler)
		return
	}
	s.routes = append(s.routes, method+" "+pattern)
	s.router.Method(method, pattern, handler)
}

func (s *Server) RegisterRouteFunc(method, pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.RegisterRouteHandler(method, pattern, http.HandlerFunc(handler))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("ANY", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
