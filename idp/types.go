package idp

import "time"

// Tokens are what the identity provider returned from its token endpoint.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Identity holds the claims resolved for the signed-in user.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	// EmailVerified is nil when the provider did not say.
	EmailVerified *bool `json:"email_verified,omitempty"`
}
