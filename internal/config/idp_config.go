package config

import "time"

type IdPConfig interface {
	GetIdPIssuerURL() string
	GetIdPClientID() string
	GetIdPClientSecret() string
	GetIdPScopes() []string
	GetIdPEndpoints() IdPEndpoints
	GetIdPAuthParams() map[string]string
	GetIdPTimeout() time.Duration
}

// IdPEndpoints are explicit provider endpoints. When all of them are set
// discovery is skipped.
type IdPEndpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	JWKSURL     string
}

func (e IdPEndpoints) Complete() bool {
	return e.AuthURL != "" && e.TokenURL != "" && e.UserInfoURL != "" && e.JWKSURL != ""
}

type IdP struct {
	IdPIssuerURL    string            `env:"IDP_ISSUER_URL" envDefault:"https://accounts.google.com"`
	IdPClientID     string            `env:"IDP_CLIENT_ID"`
	IdPClientSecret string            `env:"IDP_CLIENT_SECRET"`
	IdPScopes       []string          `env:"IDP_SCOPES" envDefault:"openid,email,profile" envSeparator:","`
	IdPAuthURL      string            `env:"IDP_AUTH_URL"`
	IdPTokenURL     string            `env:"IDP_TOKEN_URL"`
	IdPUserInfoURL  string            `env:"IDP_USERINFO_URL"`
	IdPJWKSURL      string            `env:"IDP_JWKS_URL"`
	IdPAuthParams   map[string]string `env:"IDP_AUTH_PARAMS" envDefault:"access_type:offline" envKeyValSeparator:":"`
	IdPTimeout      time.Duration     `env:"IDP_TIMEOUT" envDefault:"10s"`
}

var _ IdPConfig = IdP{}

func (i IdP) GetIdPIssuerURL() string {
	return i.IdPIssuerURL
}

func (i IdP) GetIdPClientID() string {
	return i.IdPClientID
}

func (i IdP) GetIdPClientSecret() string {
	return i.IdPClientSecret
}

func (i IdP) GetIdPScopes() []string {
	return i.IdPScopes
}

func (i IdP) GetIdPEndpoints() IdPEndpoints {
	return IdPEndpoints{
		AuthURL:     i.IdPAuthURL,
		TokenURL:    i.IdPTokenURL,
		UserInfoURL: i.IdPUserInfoURL,
		JWKSURL:     i.IdPJWKSURL,
	}
}

func (i IdP) GetIdPAuthParams() map[string]string {
	return i.IdPAuthParams
}

func (i IdP) GetIdPTimeout() time.Duration {
	return i.IdPTimeout
}
