package config

import (
	"fmt"
	"strings"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetCallbackURL() string
	GetLogLevel() string
	GetMetricsEnabled() bool
}

// CallbackPath is where the identity provider sends the user back to.
const CallbackPath = "/callback"

type EnvVars struct {
	Port           string `env:"PORT" envDefault:"8080"`
	AppName        string `env:"APP_NAME" envDefault:"Auth Bridge"`
	Environment    string `env:"ENV" envDefault:"DEV"`
	BaseURL        string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port == "" {
		port = "8080"
	}
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Environment == "" {
		return "DEV"
	}
	return e.Environment
}

// GetBaseURL returns the public URL of the bridge (e.g., "https://auth.example.com")
// without a trailing slash.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(e.BaseURL, "/")
}

// GetCallbackURL is the fixed redirect URI registered with the identity provider.
func (e EnvVars) GetCallbackURL() string {
	return e.GetBaseURL() + CallbackPath
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetMetricsEnabled() bool {
	return e.MetricsEnabled
}
