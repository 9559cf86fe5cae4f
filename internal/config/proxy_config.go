package config

import (
	"strings"
	"time"
)

type ProxyConfig interface {
	GetBackendURL() string
	GetProxyPrefix() string
	GetProxyTimeout() time.Duration
	GetAllowDirectTokens() bool
	GetCredentialHeader() string
	GetCredentialQueryParam() string
	GetBackendTokenHeader() string
	GetBackendUserIDHeader() string
	GetBackendUserEmailHeader() string
}

type Proxy struct {
	BackendURL             string        `env:"BACKEND_URL"`
	ProxyPrefix            string        `env:"PROXY_PREFIX" envDefault:"/mcp"`
	ProxyTimeout           time.Duration `env:"PROXY_TIMEOUT" envDefault:"30s"`
	AllowDirectTokens      bool          `env:"PROXY_ALLOW_DIRECT_TOKENS" envDefault:"true"`
	CredentialHeader       string        `env:"CREDENTIAL_HEADER" envDefault:"X-Backend-Token"`
	CredentialQueryParam   string        `env:"CREDENTIAL_QUERY_PARAM" envDefault:"token"`
	BackendTokenHeader     string        `env:"BACKEND_TOKEN_HEADER" envDefault:"X-Backend-Token"`
	BackendUserIDHeader    string        `env:"BACKEND_USER_ID_HEADER" envDefault:"X-Backend-User-Id"`
	BackendUserEmailHeader string        `env:"BACKEND_USER_EMAIL_HEADER" envDefault:"X-Backend-User-Email"`
}

var _ ProxyConfig = Proxy{}

func (p Proxy) GetBackendURL() string {
	return p.BackendURL
}

// GetProxyPrefix returns the prefix without a trailing slash.
func (p Proxy) GetProxyPrefix() string {
	prefix := strings.TrimRight(p.ProxyPrefix, "/")
	if prefix == "" {
		return "/"
	}
	return prefix
}

func (p Proxy) GetProxyTimeout() time.Duration {
	return p.ProxyTimeout
}

func (p Proxy) GetAllowDirectTokens() bool {
	return p.AllowDirectTokens
}

func (p Proxy) GetCredentialHeader() string {
	return p.CredentialHeader
}

func (p Proxy) GetCredentialQueryParam() string {
	return p.CredentialQueryParam
}

func (p Proxy) GetBackendTokenHeader() string {
	return p.BackendTokenHeader
}

func (p Proxy) GetBackendUserIDHeader() string {
	return p.BackendUserIDHeader
}

func (p Proxy) GetBackendUserEmailHeader() string {
	return p.BackendUserEmailHeader
}
