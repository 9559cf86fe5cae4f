package oauthmodel

import (
	"net/url"
	"slices"
	"strings"

	"github.com/jrsteele09/go-auth-bridge/pkce"
)

// maxCodeChallengeLength bounds client challenges (RFC 7636 verifiers are at most 128 chars).
const maxCodeChallengeLength = 128

// AuthorizationParameters holds parameters for the OAuth2 authorization request.
// These are received as query parameters at the /authorize endpoint.
type AuthorizationParameters struct {
	// ClientID identifies the application requesting authorization.
	// Required: No (defaults to the configured client id)
	// Example: "mcp-client"
	ClientID string

	// ResponseType specifies what the authorization endpoint should return.
	// Required: Yes
	// Example: "code" (only supported value)
	ResponseType ResponseType

	// RedirectURI is where the bridge sends the user, with code and state, after sign in.
	// Required: Yes
	// Example: "http://localhost:6274/oauth/callback"
	// Validated against: the configured allow list, when one is set
	RedirectURI string

	// Scope is recorded and echoed into the token response. It is not
	// forwarded to the identity provider.
	// Required: No
	Scope string

	// State is an opaque value used by the client to maintain state between request and callback.
	// Required: No (generated when absent)
	// Security: doubles as the CSRF token bound to the flow cookie
	State string

	// CodeChallenge is the client's own PKCE challenge, enforced at the token endpoint.
	// Required: No
	// Example: BASE64URL(SHA256(code_verifier))
	CodeChallenge string

	// CodeChallengeMethod specifies how code_challenge was derived.
	// Default: "plain" if not specified
	CodeChallengeMethod CodeMethodType
}

// ParseAuthorizationParameters reads the authorization request from a query.
func ParseAuthorizationParameters(q url.Values) *AuthorizationParameters {
	return &AuthorizationParameters{
		ClientID:            q.Get("client_id"),
		ResponseType:        ResponseType(q.Get("response_type")),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: CodeMethodType(q.Get("code_challenge_method")),
	}
}

// Validate checks the parameters against the expected client and the
// redirect allow list (an empty list accepts any absolute URL).
func (p *AuthorizationParameters) Validate(clientID string, allowedRedirectURIs []string) error {
	if p.ClientID != clientID {
		return ErrUnknownClient
	}
	if !responseTypeValid(p.ResponseType) {
		return ErrInvalidResponseType
	}
	if !redirectValid(p.RedirectURI, allowedRedirectURIs) {
		return ErrInvalidRedirectUri
	}
	if len(p.CodeChallenge) > maxCodeChallengeLength {
		return ErrInvalidCodeChallenge
	}
	if !codeChallengeMethodValid(p.CodeChallenge, p.CodeChallengeMethod) {
		return ErrInvalidCodeChallengeMethod
	}
	return nil
}

func codeChallengeMethodValid(codeChallenge string, challengeMethod CodeMethodType) bool {
	if strings.TrimSpace(codeChallenge) == "" {
		return challengeMethod == ""
	}
	return pkce.ValidMethod(string(challengeMethod))
}

func responseTypeValid(responseType ResponseType) bool {
	return responseType == CodeResponseType
}

func redirectValid(redirectUri string, allowed []string) bool {
	u, err := url.Parse(redirectUri)
	if err != nil || !u.IsAbs() || u.Host == "" || u.Fragment != "" {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	return slices.Contains(allowed, redirectUri)
}
