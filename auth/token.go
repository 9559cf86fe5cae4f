package auth

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-bridge/idp"
	apperrors "github.com/jrsteele09/go-auth-bridge/internal/errors"
	"github.com/jrsteele09/go-auth-bridge/internal/utils"
	"github.com/jrsteele09/go-auth-bridge/oauthmodel"
	"github.com/jrsteele09/go-auth-bridge/pkce"
	"github.com/jrsteele09/go-auth-bridge/sessions"
	"github.com/jrsteele09/go-auth-bridge/token/refresh"
)

// Token handles the OAuth 2.0 token request.
func (as *AuthorizationService) Token(ctx context.Context, request *oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	switch request.GrantType {
	case "":
		return nil, oauthmodel.InvalidRequest(descGrantTypeRequired, apperrors.ErrInvalidRequest)
	case oauthmodel.AuthorizationCodeGrant:
		return as.authorizationCodeToken(ctx, request)
	case oauthmodel.RefreshTokenGrant:
		if !as.config.GetRefreshTokensEnabled() {
			return nil, oauthmodel.NewError(oauthmodel.ErrorCodeUnsupportedGrantType, descRefreshNotEnabled,
				http.StatusNotImplemented, apperrors.ErrNotImplemented)
		}
		return as.refreshToken(ctx, request)
	default:
		return nil, oauthmodel.NewError(oauthmodel.ErrorCodeUnsupportedGrantType, descUnsupportedGrantType,
			http.StatusBadRequest, errors.Wrapf(apperrors.ErrUnsupportedGrantType, "[Token] %q", request.GrantType))
	}
}

func (as *AuthorizationService) authorizationCodeToken(ctx context.Context, request *oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	if request.ClientID != as.config.GetClientID() {
		return nil, oauthmodel.InvalidClient(descUnknownClient, apperrors.ErrInvalidClient)
	}
	if request.Code == "" {
		return nil, oauthmodel.InvalidRequest(descCodeRequired, apperrors.ErrInvalidRequest)
	}

	// The grant is removed here whatever the outcome below.
	grant, err := as.repos.Grants.Consume(ctx, request.Code)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, oauthmodel.InvalidGrant(descInvalidCode, apperrors.ErrInvalidGrant)
	}
	if err != nil {
		return nil, oauthmodel.ServerError(descStoreUnavailable, errors.Wrap(err, "[Token] Grants.Consume"))
	}
	if grant.IsExpired(as.nowTime()) {
		return nil, oauthmodel.InvalidGrant(descCodeExpired, apperrors.ErrExpired)
	}
	if grant.ClientID != request.ClientID {
		return nil, oauthmodel.InvalidGrant(descClientMismatch, apperrors.ErrInvalidGrant)
	}
	if request.RedirectURI != "" && request.RedirectURI != grant.RedirectURI {
		return nil, oauthmodel.InvalidGrant(descRedirectMismatch, apperrors.ErrInvalidRedirectURI)
	}
	if grant.CodeChallenge != "" && !pkce.Verify(grant.CodeChallenge, grant.CodeChallengeMethod, request.CodeVerifier) {
		return nil, oauthmodel.InvalidGrant(descVerifierMismatch, apperrors.ErrInvalidCodeChallenge)
	}

	response, err := as.issueSession(ctx, grant.Identity, grant.Credential, grant.ClientID, grant.Scope)
	if err != nil {
		return nil, err
	}
	if grant.Upstream.IDToken != "" {
		response.IdToken = utils.Ptr(grant.Upstream.IDToken)
	}
	return response, nil
}

// refreshToken rotates a refresh token. The mapping is read again so a
// revoked or changed credential takes effect on the next refresh.
func (as *AuthorizationService) refreshToken(ctx context.Context, request *oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	if request.ClientID != as.config.GetClientID() {
		return nil, oauthmodel.InvalidClient(descUnknownClient, apperrors.ErrInvalidClient)
	}
	if request.RefreshToken == "" {
		return nil, oauthmodel.InvalidRequest(descRefreshRequired, apperrors.ErrInvalidRequest)
	}

	grant, err := as.repos.Refresh.Redeem(ctx, request.RefreshToken)
	switch {
	case errors.Is(err, apperrors.ErrInvalidToken):
		return nil, oauthmodel.InvalidGrant(descInvalidRefresh, err)
	case errors.Is(err, apperrors.ErrTokenExpired):
		return nil, oauthmodel.InvalidGrant(descRefreshExpired, err)
	case err != nil:
		return nil, oauthmodel.ServerError(descStoreUnavailable, errors.Wrap(err, "[Token] Refresh.Redeem"))
	}
	if grant.ClientID != request.ClientID {
		return nil, oauthmodel.InvalidGrant(descInvalidRefresh, apperrors.ErrInvalidGrant)
	}

	mapping, err := as.repos.Mappings.Get(ctx, grant.Identity.Email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, oauthmodel.InvalidGrant(descNotProvisioned, apperrors.ErrUserNotProvisioned)
	}
	if err != nil {
		return nil, oauthmodel.ServerError(descStoreUnavailable, errors.Wrap(err, "[Token] Mappings.Get"))
	}
	return as.issueSession(ctx, grant.Identity, mapping.Credential, grant.ClientID, grant.Scope)
}

// issueSession mints an access token, writes its session and, when enabled,
// a refresh token.
func (as *AuthorizationService) issueSession(ctx context.Context, identity idp.Identity, credential, clientID, scope string) (*oauthmodel.TokenResponse, error) {
	accessToken, err := pkce.RandomString(as.config.GetAccessTokenLength())
	if err != nil {
		return nil, oauthmodel.ServerError("internal server error", errors.Wrap(err, "[issueSession] access token"))
	}
	now := as.nowTime().UTC()
	ttl := as.config.GetSessionTTL()
	session := &sessions.Session{
		Identity:   identity,
		Credential: credential,
		ClientID:   clientID,
		Scope:      scope,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := as.repos.Sessions.Put(ctx, accessToken, session, ttl); err != nil {
		return nil, oauthmodel.ServerError(descStoreUnavailable, errors.Wrap(err, "[issueSession] Sessions.Put"))
	}

	response := &oauthmodel.TokenResponse{
		AccessToken: utils.Ptr(accessToken),
		TokenType:   oauthmodel.TokenTypeBearer,
		ExpiresIn:   int(ttl.Seconds()),
		Scope:       scope,
	}
	if as.config.GetRefreshTokensEnabled() {
		refreshToken, err := as.repos.Refresh.Create(ctx, refresh.Grant{
			Identity:   identity,
			Credential: credential,
			ClientID:   clientID,
			Scope:      scope,
		})
		if err != nil {
			return nil, oauthmodel.ServerError(descStoreUnavailable, errors.Wrap(err, "[issueSession] Refresh.Create"))
		}
		response.RefreshToken = utils.Ptr(refreshToken)
	}
	return response, nil
}
