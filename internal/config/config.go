package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const minCookieSecretLength = 32

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	IdPConfig
	ProxyConfig
	StoreConfig

	// Validate checks the settings the bridge needs to serve traffic.
	Validate() error
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	IdP
	Proxy
	Store
}

// Load reads an optional .env file and then the process environment.
// The returned value is immutable.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("[config.Load] failed to read .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom builds a Config from the given variables only.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var c mainConfig
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, fmt.Errorf("[config.Load] failed to parse environment: %w", err)
	}
	return c, nil
}

func (c mainConfig) Validate() error {
	var problems []string
	if len(c.CookieSecret) < minCookieSecretLength {
		problems = append(problems, fmt.Sprintf("COOKIE_SECRET must be at least %d bytes", minCookieSecretLength))
	}
	if c.IdPClientID == "" {
		problems = append(problems, "IDP_CLIENT_ID is required")
	}
	if c.IdPClientSecret == "" {
		problems = append(problems, "IDP_CLIENT_SECRET is required")
	}
	if c.IdPIssuerURL == "" && !c.GetIdPEndpoints().Complete() {
		problems = append(problems, "IDP_ISSUER_URL or all explicit IdP endpoints are required")
	}
	if c.BackendURL == "" {
		problems = append(problems, "BACKEND_URL is required")
	}
	if !strings.HasPrefix(c.GetProxyPrefix(), "/") || c.GetProxyPrefix() == "/" {
		problems = append(problems, "PROXY_PREFIX must be a path such as /mcp")
	}
	switch c.StoreType {
	case StoreTypeMemory, StoreTypeRedis, StoreTypeSQLite:
	default:
		problems = append(problems, fmt.Sprintf("unknown STORE_TYPE %q", c.StoreType))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
