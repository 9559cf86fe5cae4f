package oauthmodel

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
)

// maxTokenRequestBody bounds JSON token request bodies.
const maxTokenRequestBody = 64 << 10

// TokenRequest holds parameters for the OAuth2 token request.
// This represents the request body sent to the /token endpoint, either
// form encoded or as JSON.
type TokenRequest struct {
	// GrantType selects the grant.
	// Required: Yes
	// Example: "authorization_code"
	GrantType GrantType `json:"grant_type"`

	// ClientID identifies the client making the request.
	// Required: Yes
	// Example: "mcp-client"
	ClientID string `json:"client_id"`

	// Code is the authorization code received from the callback redirect.
	// Required: Yes (only for authorization_code grant)
	// Usage: Exchanged once for tokens, then becomes invalid
	Code string `json:"code"`

	// RedirectURI must equal the redirect_uri of the authorization request when supplied.
	// Required: No
	RedirectURI string `json:"redirect_uri"`

	// CodeVerifier is the PKCE code verifier that matches the client's code_challenge.
	// Required: Yes (if the client sent a code_challenge to /authorize)
	// Example: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	CodeVerifier string `json:"code_verifier"`

	// RefreshToken is used to obtain new access tokens without re-authentication.
	// Required: Yes (only for refresh_token grant)
	// Behavior: rotated, the old refresh token is invalidated and a new one issued
	RefreshToken string `json:"refresh_token"`
}

// ParseTokenRequest reads a token request from a form or JSON body.
func ParseTokenRequest(r *http.Request) (*TokenRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req TokenRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxTokenRequestBody)).Decode(&req); err != nil {
			return nil, InvalidRequest("malformed JSON body", err)
		}
		return &req, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, InvalidRequest("malformed form body", err)
	}
	return &TokenRequest{
		GrantType:    GrantType(r.PostForm.Get("grant_type")),
		ClientID:     r.PostForm.Get("client_id"),
		Code:         r.PostForm.Get("code"),
		RedirectURI:  r.PostForm.Get("redirect_uri"),
		CodeVerifier: r.PostForm.Get("code_verifier"),
		RefreshToken: r.PostForm.Get("refresh_token"),
	}, nil
}
