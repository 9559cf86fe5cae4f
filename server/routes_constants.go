package server

import "github.com/jrsteele09/go-auth-bridge/internal/config"

// Route path constants
// The proxy prefix is configurable and is not listed here.
const (
	// Authorization flow
	RouteAuthorize       = "/authorize"
	RouteOAuth2Authorize = "/oauth2/authorize"
	RouteCallback        = config.CallbackPath
	RouteToken           = "/token"
	RouteOAuth2Token     = "/oauth2/token"

	// Operational
	RouteHealth  = "/health"
	RouteWhoAmI  = "/auth/whoami"
	RouteMetrics = "/metrics"
)

// HeaderRequestID carries the request id in and out.
const HeaderRequestID = "X-Request-Id"
