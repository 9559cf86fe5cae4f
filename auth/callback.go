package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-bridge/flowstate"
	"github.com/jrsteele09/go-auth-bridge/grants"
	apperrors "github.com/jrsteele09/go-auth-bridge/internal/errors"
	"github.com/jrsteele09/go-auth-bridge/mappings"
	"github.com/jrsteele09/go-auth-bridge/oauthmodel"
	"github.com/jrsteele09/go-auth-bridge/pkce"
)

// Callback completes the identity provider round trip. flow is the state
// recovered from the caller's cookie, nil when there was none. On success it
// returns the client redirect URL carrying the one-time code.
func (as *AuthorizationService) Callback(ctx context.Context, parameters *oauthmodel.CallbackParameters, flow *flowstate.FlowState) (string, error) {
	if parameters.Error != "" {
		return "", oauthmodel.AccessDenied(descIdPDenied, http.StatusBadRequest,
			errors.Wrapf(apperrors.ErrAuthorizationDenied, "[Callback] identity provider answered %q", parameters.Error))
	}
	if parameters.Code == "" || parameters.State == "" {
		return "", oauthmodel.InvalidRequest(descMissingCallback, apperrors.ErrInvalidRequest)
	}
	if flow == nil || subtle.ConstantTimeCompare([]byte(flow.State), []byte(parameters.State)) != 1 {
		return "", oauthmodel.InvalidRequest(descStateMismatch, apperrors.ErrStateMismatch)
	}

	tokens, err := as.provider.Exchange(ctx, parameters.Code, flow.CodeVerifier)
	if err != nil {
		return "", oauthmodel.ServerError(descExchangeFailed, errors.Wrap(err, "[Callback] Exchange"))
	}
	identity, err := as.provider.Identity(ctx, tokens, flow.Nonce)
	if err != nil {
		return "", oauthmodel.ServerError(descIdentityFailed, errors.Wrap(err, "[Callback] Identity"))
	}
	if mappings.NormalizeEmail(identity.Email) == "" {
		return "", oauthmodel.AccessDenied(descNoEmail, http.StatusForbidden, apperrors.ErrEmailNotVerified)
	}
	if identity.EmailVerified != nil && !*identity.EmailVerified {
		return "", oauthmodel.AccessDenied(descEmailNotVerified, http.StatusForbidden,
			errors.Wrapf(apperrors.ErrEmailNotVerified, "[Callback] %s", identity.Email))
	}

	mapping, err := as.repos.Mappings.Get(ctx, identity.Email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", oauthmodel.AccessDenied(descNotProvisioned, http.StatusForbidden,
			errors.Wrapf(apperrors.ErrUserNotProvisioned, "[Callback] %s", mappings.NormalizeEmail(identity.Email)))
	}
	if err != nil {
		return "", oauthmodel.ServerError(descStoreUnavailable, errors.Wrap(err, "[Callback] Mappings.Get"))
	}

	code, err := pkce.RandomString(as.config.GetCodeGenerationLength())
	if err != nil {
		return "", oauthmodel.ServerError("internal server error", errors.Wrap(err, "[Callback] code"))
	}
	now := as.nowTime().UTC()
	ttl := as.config.GetAuthCodeTimeout()
	grant := &grants.PendingGrant{
		Code:                code,
		ClientID:            flow.ClientID,
		RedirectURI:         flow.RedirectURI,
		Scope:               flow.Scope,
		CodeChallenge:       flow.ClientCodeChallenge,
		CodeChallengeMethod: flow.ClientCodeChallengeMethod,
		Upstream:            *tokens,
		Identity:            *identity,
		Credential:          mapping.Credential,
		CreatedAt:           now,
		ExpiresAt:           now.Add(ttl),
	}
	if err := as.repos.Grants.Put(ctx, grant, ttl); err != nil {
		return "", oauthmodel.ServerError(descStoreUnavailable, errors.Wrap(err, "[Callback] Grants.Put"))
	}

	return callbackRedirect(flow.RedirectURI, code, flow.State)
}

// callbackRedirect appends code and state to the client's redirect URI,
// keeping any query it already has.
func callbackRedirect(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", oauthmodel.ServerError("internal server error", errors.Wrap(err, "[callbackRedirect] url.Parse"))
	}
	q := u.Query()
	q.Set("code", code)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
