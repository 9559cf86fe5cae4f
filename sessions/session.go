// Package sessions stores the bridge's own sessions, keyed by the access
// tokens it issues.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-bridge/idp"
	"github.com/jrsteele09/go-auth-bridge/store"
)

// Session links an issued access token to an identity and its backend
// credential. Sessions are never modified after they are written.
type Session struct {
	Identity   idp.Identity `json:"identity"`
	Credential string       `json:"credential"`
	ClientID   string       `json:"client_id"`
	Scope      string       `json:"scope,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Repo interface {
	Put(ctx context.Context, accessToken string, session *Session, ttl time.Duration) error
	// Get returns the session or store.ErrNotFound. Callers check expiry.
	Get(ctx context.Context, accessToken string) (*Session, error)
}

var _ Repo = (*StoreRepo)(nil)

type StoreRepo struct {
	store store.Store
}

func NewRepo(s store.Store) *StoreRepo {
	return &StoreRepo{store: s}
}

func (r *StoreRepo) Put(ctx context.Context, accessToken string, session *Session, ttl time.Duration) error {
	if accessToken == "" || session == nil {
		return errors.New("[sessions.Put] access token and session are required")
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("[sessions.Put] %w", err)
	}
	return r.store.Put(ctx, store.Key(store.NamespaceSession, accessToken), raw, ttl)
}

func (r *StoreRepo) Get(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, store.ErrNotFound
	}
	raw, err := r.store.Get(ctx, store.Key(store.NamespaceSession, accessToken))
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("[sessions.Get] corrupt session: %w", err)
	}
	return &s, nil
}
