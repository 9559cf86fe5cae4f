package oauthmodel

// ResponseType represents the OAuth 2.0 response type.
// Determines what is returned from the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// Returns a one-time code the client exchanges at the token endpoint.
	// Example: /authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method
// a client used when it sent its own code_challenge.
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates SHA-256 hashing is used for the code challenge.
	// Client sends: code_challenge = BASE64URL(SHA256(code_verifier))
	// Server validates: SHA256(provided code_verifier) == stored code_challenge
	CodeMethodTypeS256 CodeMethodType = "S256"

	// CodeMethodTypePlain means no hashing, code_verifier sent directly.
	// Default when a challenge is sent without a method.
	CodeMethodTypePlain CodeMethodType = "plain"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges a bridge-issued authorization code for a session token.
	// Token request includes: code, client_id, redirect_uri, code_verifier (if the client used PKCE)
	// Returns: access_token, id_token (when the identity provider issued one), refresh_token (if enabled)
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for a new session token.
	// Only served when refresh tokens are enabled; otherwise answered as not implemented.
	// Behavior: the presented refresh token is consumed and a new one issued
	RefreshTokenGrant GrantType = "refresh_token"
)

// TokenTypeBearer is the only token type the bridge issues.
const TokenTypeBearer = "Bearer"
