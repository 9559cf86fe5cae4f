package errors

import (
	"errors"
	"fmt"
)

// Common error types for the auth bridge
var (
	// Store errors
	ErrNotFound = errors.New("not found")
	ErrExpired  = errors.New("expired")

	// Flow errors
	ErrStateMismatch       = errors.New("state mismatch")
	ErrAuthorizationDenied = errors.New("authorization denied by identity provider")
	ErrUserNotProvisioned  = errors.New("user is not provisioned")
	ErrEmailNotVerified    = errors.New("identity email is not verified")
	ErrUpstreamExchange    = errors.New("upstream token exchange failed")
	ErrUpstreamIdentity    = errors.New("upstream identity lookup failed")

	// Client errors
	ErrInvalidClient      = errors.New("invalid client")
	ErrInvalidRedirectURI = errors.New("invalid redirect URI")
	ErrInvalidRequest     = errors.New("invalid request")

	// Grant errors
	ErrInvalidGrant         = errors.New("invalid grant")
	ErrInvalidCodeChallenge = errors.New("invalid code challenge")
	ErrUnsupportedGrantType = errors.New("unsupported grant type")
	ErrNotImplemented       = errors.New("not implemented")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
