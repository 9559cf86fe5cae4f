package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-bridge/metrics"
	"github.com/jrsteele09/go-auth-bridge/oauthmodel"
)

const (
	healthCheckTimeout = 2 * time.Second
	tokenPrefixLength  = 5
)

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// WhoAmIResponse describes the caller as the proxy would see it.
type WhoAmIResponse struct {
	Authenticated bool       `json:"authenticated"`
	Method        string     `json:"method"`
	UserID        string     `json:"user_id,omitempty"`
	Email         string     `json:"email,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	TokenPrefix   string     `json:"token_prefix,omitempty"`
}

// Health reports whether the credential store is reachable.
func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := s.store.Ping(ctx); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("health check: store unavailable")
			oauthmodel.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Store: "unavailable"})
			return
		}
		oauthmodel.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: "ok"})
	}
}

// WhoAmI resolves the presented credential the same way the proxy does,
// without contacting the backend.
func (s *Server) WhoAmI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		resolution, err := s.forwarder.Resolve(r)
		if err != nil {
			s.forwarder.WriteChallenge(w, err)
			return
		}

		resp := WhoAmIResponse{Authenticated: true, Method: resolution.Mode}
		if resolution.Mode == metrics.ModeSession {
			expiresAt := resolution.Session.ExpiresAt
			resp.UserID = resolution.Session.Identity.Subject
			resp.Email = resolution.Session.Identity.Email
			resp.ExpiresAt = &expiresAt
		} else {
			resp.TokenPrefix = tokenPrefix(resolution.Credential.Value)
		}
		oauthmodel.WriteJSON(w, http.StatusOK, resp)
	}
}

func tokenPrefix(token string) string {
	if len(token) <= tokenPrefixLength {
		return "..."
	}
	return token[:tokenPrefixLength] + "..."
}
