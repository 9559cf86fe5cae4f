package config

type SecurityConfig interface {
	GetCookieSecret() []byte
	GetEnableRateLimiting() bool
	GetRateLimit() float64
	GetRateLimitBurst() int
}

type Security struct {
	CookieSecret     string  `env:"COOKIE_SECRET"`
	RateLimitEnabled bool    `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RateLimitRPS     float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst   int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

var _ SecurityConfig = Security{}

func (s Security) GetCookieSecret() []byte {
	return []byte(s.CookieSecret)
}

func (s Security) GetEnableRateLimiting() bool {
	return s.RateLimitEnabled
}

// GetRateLimit is the sustained requests per second allowed per client IP.
func (s Security) GetRateLimit() float64 {
	return s.RateLimitRPS
}

func (s Security) GetRateLimitBurst() int {
	return s.RateLimitBurst
}
