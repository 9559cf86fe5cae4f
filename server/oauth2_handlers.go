package server

import (
	"net/http"

	"github.com/rs/zerolog"

	apperrors "github.com/jrsteele09/go-auth-bridge/internal/errors"
	"github.com/jrsteele09/go-auth-bridge/metrics"
	"github.com/jrsteele09/go-auth-bridge/oauthmodel"
)

// Authorize begins the authorization flow: the flow state goes into a sealed
// cookie and the user agent is sent to the identity provider.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := oauthmodel.ParseAuthorizationParameters(r.URL.Query())

		result, err := s.auth.Authorize(params)
		if err != nil {
			s.writeFlowError(w, r, metrics.StepAuthorize, err)
			return
		}

		cookieValue, err := s.flow.Encode(result.Flow)
		if err != nil {
			s.writeFlowError(w, r, metrics.StepAuthorize, oauthmodel.ServerError("internal server error", err))
			return
		}
		s.flow.SetCookie(w, r, cookieValue)

		s.metrics.RecordFlow(metrics.StepAuthorize, metrics.OutcomeSuccess)
		http.Redirect(w, r, result.RedirectURL, http.StatusFound)
	}
}

// Callback completes the identity provider leg and sends the user agent back
// to the client with a bridge authorization code.
func (s *Server) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		// The flow cookie is single use whatever the outcome.
		s.flow.ClearCookie(w, r)

		flow, decodeErr := s.flow.FromRequest(r)
		if decodeErr != nil {
			flow = nil
		}

		params := oauthmodel.ParseCallbackParameters(r.URL.Query())
		redirectURL, err := s.auth.Callback(r.Context(), params, flow)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrStateMismatch) {
				event := logger.Warn().
					Str("security_event", metrics.EventCSRFStateMismatch).
					Str("remote_ip", clientIP(r))
				if decodeErr != nil {
					event = event.Str("reason", decodeErr.Error())
				}
				event.Msg("callback state did not match the flow cookie")
				s.metrics.RecordSecurityEvent(metrics.EventCSRFStateMismatch)
			}
			s.writeFlowError(w, r, metrics.StepCallback, err)
			return
		}

		s.metrics.RecordFlow(metrics.StepCallback, metrics.OutcomeSuccess)
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// Token exchanges a bridge authorization code (or refresh token) for a bridge
// access token.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")

		tokenReq, err := oauthmodel.ParseTokenRequest(r)
		if err != nil {
			s.writeFlowError(w, r, metrics.StepToken, err)
			return
		}

		tokenResponse, err := s.auth.Token(r.Context(), tokenReq)
		if err != nil {
			s.writeFlowError(w, r, metrics.StepToken, err)
			return
		}

		s.metrics.RecordFlow(metrics.StepToken, metrics.OutcomeSuccess)
		oauthmodel.WriteJSON(w, http.StatusOK, tokenResponse)
	}
}

// writeFlowError logs the internal cause and writes the client-visible part.
func (s *Server) writeFlowError(w http.ResponseWriter, r *http.Request, step string, err error) {
	oe := oauthmodel.AsError(err)
	logger := zerolog.Ctx(r.Context())
	event := logger.Info()
	if oe.Status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("step", step).
		Str("error_code", oe.Code).
		Int("status", oe.Status).
		Msg("authorization flow request failed")

	s.metrics.RecordFlow(step, oe.Code)
	oauthmodel.WriteError(w, oe)
}
