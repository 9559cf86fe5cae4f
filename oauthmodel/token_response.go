package oauthmodel

// TokenResponse represents the response from a token request as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the opaque session token used on the proxy.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	// Lifespan: the configured session TTL (one hour by default)
	AccessToken *string `json:"access_token,omitempty"`

	// IdToken is the identity provider's OpenID Connect ID token, passed through unchanged.
	// Only present: when the identity provider issued one
	IdToken *string `json:"id_token,omitempty"`

	// TokenType indicates how to use the access token (always "Bearer").
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is an opaque single-use token for the refresh_token grant.
	// Only present: when refresh tokens are enabled
	// Security: rotates on each use
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope echoes the scope requested at the authorization endpoint.
	Scope string `json:"scope,omitempty"`
}
