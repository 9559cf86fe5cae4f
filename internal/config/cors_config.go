package config

import "strings"

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type Cors struct {
	AllowedOrigins AllowedOrigins `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	AllowedMethods string         `env:"CORS_ALLOWED_METHODS" envDefault:"GET, POST, PUT, PATCH, DELETE, OPTIONS"`
	AllowedHeaders string         `env:"CORS_ALLOWED_HEADERS" envDefault:"Content-Type, Authorization, X-Backend-Token"`
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

// UnmarshalText parses a comma separated origin list.
func (a *AllowedOrigins) UnmarshalText(text []byte) error {
	origins := AllowedOrigins{}
	for _, origin := range strings.Split(string(text), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins[origin] = nullValue{}
		}
	}
	*a = origins
	return nil
}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	return c.AllowedOrigins
}

func (c Cors) GetAllowedMethods() string {
	return c.AllowedMethods
}

func (c Cors) GetAllowedHeaders() string {
	return c.AllowedHeaders
}
