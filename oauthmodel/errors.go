package oauthmodel

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCodeChallenge       = errors.New("invalid code challenge")
	ErrInvalidCodeChallengeMethod = errors.New("invalid code challenge method")
	ErrInvalidRedirectUri         = errors.New("invalid or no redirect uri")
	ErrInvalidResponseType        = errors.New("unsupported response type")
	ErrUnknownClient              = errors.New("unknown client_id")
)

// OAuth error codes returned in the "error" member of error responses.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeAccessDenied         = "access_denied"
	ErrorCodeServerError          = "server_error"
	ErrorCodeInvalidToken         = "invalid_token"
	ErrorCodeUnauthorized         = "unauthorized"
	ErrorCodeBadGateway           = "bad_gateway"
	ErrorCodeTooManyRequests      = "too_many_requests"
)

// Error is a client-visible failure. Code and Description are safe to return
// to the caller; Err carries the internal cause for logging only.
type Error struct {
	Code        string
	Description string
	Status      int
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code, description string, status int, err error) *Error {
	return &Error{Code: code, Description: description, Status: status, Err: err}
}

func InvalidRequest(description string, err error) *Error {
	return NewError(ErrorCodeInvalidRequest, description, http.StatusBadRequest, err)
}

func InvalidClient(description string, err error) *Error {
	return NewError(ErrorCodeInvalidClient, description, http.StatusUnauthorized, err)
}

func InvalidGrant(description string, err error) *Error {
	return NewError(ErrorCodeInvalidGrant, description, http.StatusBadRequest, err)
}

func AccessDenied(description string, status int, err error) *Error {
	return NewError(ErrorCodeAccessDenied, description, status, err)
}

func ServerError(description string, err error) *Error {
	return NewError(ErrorCodeServerError, description, http.StatusInternalServerError, err)
}

// AsError returns the client-visible error in err's chain, or a generic
// server_error when there is none.
func AsError(err error) *Error {
	var oe *Error
	if errors.As(err, &oe) {
		return oe
	}
	return ServerError("internal server error", err)
}
