// Package auth implements the bridge's authorization flow: the authorize
// redirect to the identity provider, the callback that maps the signed-in
// identity to a backend credential, and the token endpoint that turns a
// one-time code into a session.
package auth

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-bridge/flowstate"
	"github.com/jrsteele09/go-auth-bridge/grants"
	"github.com/jrsteele09/go-auth-bridge/idp"
	"github.com/jrsteele09/go-auth-bridge/internal/config"
	"github.com/jrsteele09/go-auth-bridge/mappings"
	"github.com/jrsteele09/go-auth-bridge/oauthmodel"
	"github.com/jrsteele09/go-auth-bridge/pkce"
	"github.com/jrsteele09/go-auth-bridge/sessions"
	"github.com/jrsteele09/go-auth-bridge/token/refresh"
)

const (
	stateLength = 32
	nonceLength = 32
)

// Repos holds all repository dependencies for the AuthorizationService
type Repos struct {
	Mappings mappings.Repo    // Email to backend credential mappings (read only here)
	Grants   grants.Repo      // Pending grants awaiting the token request
	Sessions sessions.Repo    // Issued sessions keyed by access token
	Refresh  *refresh.Manager // Optional, only used when refresh tokens are enabled
}

// AuthorizationService runs the authorization flow against one identity provider.
type AuthorizationService struct {
	repos    Repos              // All repository dependencies
	provider idp.Provider       // Upstream identity provider
	config   config.OAuthConfig // Client, TTL and token settings
	nowTime  func() time.Time   // nowTime function (injectable for testing)
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
func NewAuthorizationService(
	repos Repos,
	provider idp.Provider,
	cfg config.OAuthConfig,
	options ...AuthorizationServiceOption,
) (*AuthorizationService, error) {
	if repos.Mappings == nil {
		return nil, errors.New("[NewAuthorizationService] Mappings repo is required")
	}
	if repos.Grants == nil {
		return nil, errors.New("[NewAuthorizationService] Grants repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewAuthorizationService] Sessions repo is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewAuthorizationService] config is required")
	}
	if cfg.GetRefreshTokensEnabled() && repos.Refresh == nil {
		return nil, errors.New("[NewAuthorizationService] Refresh manager is required when refresh tokens are enabled")
	}
	if provider == nil {
		return nil, errors.New("[NewAuthorizationService] identity provider is required")
	}

	authService := &AuthorizationService{
		repos:    repos,
		provider: provider,
		config:   cfg,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(authService)
	}
	return authService, nil
}

// AuthorizeResult is the redirect to the identity provider and the flow
// state the caller must hand back to Callback.
type AuthorizeResult struct {
	RedirectURL string
	Flow        *flowstate.FlowState
}

// Authorize validates the client's request and starts a flow with the
// identity provider. Nothing is persisted.
func (as *AuthorizationService) Authorize(parameters *oauthmodel.AuthorizationParameters) (*AuthorizeResult, error) {
	if parameters.ClientID == "" {
		parameters.ClientID = as.config.GetClientID()
	}
	if err := parameters.Validate(as.config.GetClientID(), as.config.GetAllowedRedirectURIs()); err != nil {
		if errors.Is(err, oauthmodel.ErrUnknownClient) {
			return nil, oauthmodel.InvalidRequest(descUnknownClient, err)
		}
		return nil, oauthmodel.InvalidRequest(err.Error(), err)
	}

	state := parameters.State
	if state == "" {
		generated, err := pkce.RandomString(stateLength)
		if err != nil {
			return nil, oauthmodel.ServerError("internal server error", errors.Wrap(err, "[Authorize] state"))
		}
		state = generated
	}
	nonce, err := pkce.RandomString(nonceLength)
	if err != nil {
		return nil, oauthmodel.ServerError("internal server error", errors.Wrap(err, "[Authorize] nonce"))
	}
	verifier := pkce.NewVerifier()

	flow := &flowstate.FlowState{
		State:        state,
		CodeVerifier: verifier,
		Nonce:        nonce,
		RedirectURI:  parameters.RedirectURI,
		ClientID:     parameters.ClientID,
		Scope:        parameters.Scope,
	}
	if parameters.CodeChallenge != "" {
		flow.ClientCodeChallenge = parameters.CodeChallenge
		flow.ClientCodeChallengeMethod = string(parameters.CodeChallengeMethod)
		if flow.ClientCodeChallengeMethod == "" {
			flow.ClientCodeChallengeMethod = pkce.MethodPlain
		}
	}

	return &AuthorizeResult{
		RedirectURL: as.provider.AuthCodeURL(state, pkce.S256Challenge(verifier), nonce),
		Flow:        flow,
	}, nil
}
