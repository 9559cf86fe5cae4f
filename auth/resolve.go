package auth

import (
	"context"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-auth-bridge/internal/errors"
	"github.com/jrsteele09/go-auth-bridge/sessions"
)

// ResolveSession returns the live session for an access token. A token with
// no session gives apperrors.ErrNotFound; a session past its expiry gives
// apperrors.ErrTokenExpired even if the store still holds it.
func (as *AuthorizationService) ResolveSession(ctx context.Context, accessToken string) (*sessions.Session, error) {
	session, err := as.repos.Sessions.Get(ctx, accessToken)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[ResolveSession] Sessions.Get")
	}
	if session.IsExpired(as.nowTime()) {
		return nil, apperrors.ErrTokenExpired
	}
	return session, nil
}
