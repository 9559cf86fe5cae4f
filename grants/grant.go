// Package grants stores pending grants: the result of a completed identity
// provider round trip, waiting to be redeemed once at the token endpoint.
package grants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-bridge/idp"
	"github.com/jrsteele09/go-auth-bridge/store"
)

type PendingGrant struct {
	Code                string       `json:"-"`
	ClientID            string       `json:"client_id"`
	RedirectURI         string       `json:"redirect_uri"`
	Scope               string       `json:"scope,omitempty"`
	CodeChallenge       string       `json:"code_challenge,omitempty"`
	CodeChallengeMethod string       `json:"code_challenge_method,omitempty"`
	Upstream            idp.Tokens   `json:"upstream"`
	Identity            idp.Identity `json:"identity"`
	Credential          string       `json:"credential"`
	CreatedAt           time.Time    `json:"created_at"`
	ExpiresAt           time.Time    `json:"expires_at"`
}

// IsExpired reports whether the grant's absolute expiry has passed.
func (g *PendingGrant) IsExpired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

type Repo interface {
	Put(ctx context.Context, grant *PendingGrant, ttl time.Duration) error
	// Consume removes the grant and returns it, or store.ErrNotFound. It does
	// not check expiry.
	Consume(ctx context.Context, code string) (*PendingGrant, error)
}

var _ Repo = (*StoreRepo)(nil)

type StoreRepo struct {
	store store.Store
}

func NewRepo(s store.Store) *StoreRepo {
	return &StoreRepo{store: s}
}

func (r *StoreRepo) Put(ctx context.Context, grant *PendingGrant, ttl time.Duration) error {
	if grant == nil || grant.Code == "" {
		return errors.New("[grants.Put] grant with a code is required")
	}
	raw, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("[grants.Put] %w", err)
	}
	return r.store.Put(ctx, store.Key(store.NamespaceGrant, grant.Code), raw, ttl)
}

func (r *StoreRepo) Consume(ctx context.Context, code string) (*PendingGrant, error) {
	if code == "" {
		return nil, store.ErrNotFound
	}
	raw, err := r.store.Take(ctx, store.Key(store.NamespaceGrant, code))
	if err != nil {
		return nil, err
	}
	var g PendingGrant
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("[grants.Consume] corrupt grant: %w", err)
	}
	g.Code = code
	return &g, nil
}
