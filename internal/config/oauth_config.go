package config

import "time"

type OAuthConfig interface {
	GetClientID() string
	GetAllowedRedirectURIs() []string
	GetFlowStateTTL() time.Duration
	GetAuthCodeTimeout() time.Duration
	GetSessionTTL() time.Duration
	GetRefreshTokensEnabled() bool
	GetRefreshTokenTTL() time.Duration
	GetCodeGenerationLength() int
	GetAccessTokenLength() int
}

type OAuth struct {
	ClientID             string        `env:"CLIENT_ID" envDefault:"mcp-client"`
	AllowedRedirectURIs  []string      `env:"ALLOWED_REDIRECT_URIS" envSeparator:","`
	FlowStateTTL         time.Duration `env:"FLOW_STATE_TTL" envDefault:"600s"`
	AuthCodeTTL          time.Duration `env:"AUTH_CODE_TTL" envDefault:"600s"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"3600s"`
	RefreshTokensEnabled bool          `env:"REFRESH_TOKENS_ENABLED" envDefault:"false"`
	RefreshTokenTTL      time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	CodeLength           int           `env:"CODE_LENGTH" envDefault:"32"`
	TokenLength          int           `env:"TOKEN_LENGTH" envDefault:"32"`
}

var _ OAuthConfig = OAuth{}

// Minimum random bytes for one-time codes and access tokens.
const (
	minCodeLength  = 16 // 128 bits
	minTokenLength = 32 // 256 bits
)

func (o OAuth) GetClientID() string {
	return o.ClientID
}

func (o OAuth) GetAllowedRedirectURIs() []string {
	return o.AllowedRedirectURIs
}

func (o OAuth) GetFlowStateTTL() time.Duration {
	return o.FlowStateTTL
}

func (o OAuth) GetAuthCodeTimeout() time.Duration {
	return o.AuthCodeTTL
}

func (o OAuth) GetSessionTTL() time.Duration {
	return o.SessionTTL
}

func (o OAuth) GetRefreshTokensEnabled() bool {
	return o.RefreshTokensEnabled
}

func (o OAuth) GetRefreshTokenTTL() time.Duration {
	return o.RefreshTokenTTL
}

func (o OAuth) GetCodeGenerationLength() int {
	return max(o.CodeLength, minCodeLength)
}

func (o OAuth) GetAccessTokenLength() int {
	return max(o.TokenLength, minTokenLength)
}
