package refresh

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-bridge/idp"
	"github.com/jrsteele09/go-auth-bridge/internal/config"
	apperrors "github.com/jrsteele09/go-auth-bridge/internal/errors"
	"github.com/jrsteele09/go-auth-bridge/store"
)

// Grant is the server-side record behind a refresh token. The client only
// ever sees the opaque token string.
type Grant struct {
	Identity   idp.Identity `json:"identity"`
	Credential string       `json:"credential"`
	ClientID   string       `json:"client_id"`
	Scope      string       `json:"scope,omitempty"`
	IssuedAt   time.Time    `json:"iat"`
	ExpiresAt  time.Time    `json:"exp"`
}

// Manager handles refresh token creation and single-use redemption
type Manager struct {
	store   store.Store
	config  config.OAuthConfig
	nowTime func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNowTime sets the clock used for issue and expiry times.
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a new refresh token manager
func NewManager(s store.Store, cfg config.OAuthConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   s,
		config:  cfg,
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create generates a new refresh token and stores its grant
func (m *Manager) Create(ctx context.Context, grant Grant) (string, error) {
	tokenBytes := make([]byte, m.config.GetAccessTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	tokenStr := hex.EncodeToString(tokenBytes)

	ttl := m.config.GetRefreshTokenTTL()
	grant.IssuedAt = m.nowTime().UTC()
	grant.ExpiresAt = grant.IssuedAt.Add(ttl)
	raw, err := json.Marshal(&grant)
	if err != nil {
		return "", fmt.Errorf("failed to encode refresh grant: %w", err)
	}
	if err := m.store.Put(ctx, store.Key(store.NamespaceRefresh, tokenStr), raw, ttl); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Redeem consumes a refresh token. The token is gone afterwards whether or
// not it was still valid, so every successful redemption must rotate.
func (m *Manager) Redeem(ctx context.Context, token string) (*Grant, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidToken
	}
	raw, err := m.store.Take(ctx, store.Key(store.NamespaceRefresh, token))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh token: %w", err)
	}
	var grant Grant
	if err := json.Unmarshal(raw, &grant); err != nil {
		return nil, fmt.Errorf("failed to decode refresh grant: %w", err)
	}
	if m.IsExpired(&grant) {
		return nil, apperrors.ErrTokenExpired
	}
	return &grant, nil
}

// IsExpired checks if a refresh grant has passed its expiry
func (m *Manager) IsExpired(g *Grant) bool {
	return !m.nowTime().Before(g.ExpiresAt)
}
