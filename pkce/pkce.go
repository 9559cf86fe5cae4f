// Package pkce generates the random values used by the authorization flow:
// CSRF state tokens, nonces, opaque codes and tokens, and PKCE verifier and
// challenge pairs (RFC 7636).
package pkce

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

// Code challenge methods.
const (
	MethodS256  = "S256"
	MethodPlain = "plain"
)

// RandomString returns n random bytes encoded as unpadded base64url.
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("[pkce.RandomString] invalid length %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("[pkce.RandomString] failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewVerifier returns a code verifier with 256 bits of entropy.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// S256Challenge derives the S256 code challenge for a verifier.
func S256Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// Verify checks a verifier against a challenge recorded with method.
// An empty method means plain.
func Verify(challenge, method, verifier string) bool {
	if challenge == "" || verifier == "" {
		return false
	}
	var computed string
	switch method {
	case MethodS256:
		computed = S256Challenge(verifier)
	case MethodPlain, "":
		computed = verifier
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

// ValidMethod reports whether method is a supported challenge method.
func ValidMethod(method string) bool {
	switch method {
	case MethodS256, MethodPlain, "":
		return true
	}
	return false
}
