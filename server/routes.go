package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	// Router wide: every request, including preflights and unmatched paths.
	s.router.Use(
		s.metrics.Middleware,
		Middleware(s.LoggingMiddleware),
		Middleware(s.RecoverMiddleware),
		Middleware(s.CorsMiddleware),
	)

	// Authorization flow
	s.RegisterRouteFunc(http.MethodGet, RouteAuthorize, ChainMiddleware(s.Authorize(), s.APIMiddleware()...))
	s.RegisterRouteFunc(http.MethodGet, RouteOAuth2Authorize, ChainMiddleware(s.Authorize(), s.APIMiddleware()...))
	s.RegisterRouteFunc(http.MethodGet, RouteCallback, ChainMiddleware(s.Callback(), s.APIMiddleware()...))
	s.RegisterRouteFunc(http.MethodPost, RouteToken, ChainMiddleware(s.Token(), s.APIMiddleware()...))
	s.RegisterRouteFunc(http.MethodPost, RouteOAuth2Token, ChainMiddleware(s.Token(), s.APIMiddleware()...))

	// Operational
	s.RegisterRouteFunc(http.MethodGet, RouteHealth, s.Health())
	s.RegisterRouteFunc(http.MethodGet, RouteWhoAmI, s.WhoAmI())
	if s.metrics != nil {
		s.RegisterRouteHandler(http.MethodGet, RouteMetrics, s.metrics.Handler())
	}

	// Backend proxy, any method
	prefix := s.config.GetProxyPrefix()
	s.RegisterRouteHandler("", prefix, s.forwarder)
	s.RegisterRouteHandler("", prefix+"/*", s.forwarder)
}
