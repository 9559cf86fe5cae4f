package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	limiterIdleExpiry      = 10 * time.Minute
	limiterCleanupInterval = 5 * time.Minute
)

// ipRateLimiter keeps one token bucket per client IP. Buckets idle for
// limiterIdleExpiry are dropped by the cache janitor.
type ipRateLimiter struct {
	lock     sync.Mutex
	limiters *gocache.Cache
	rps      rate.Limit
	burst    int
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters: gocache.New(limiterIdleExpiry, limiterCleanupInterval),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *ipRateLimiter) Allow(ip string) bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	var limiter *rate.Limiter
	if v, ok := l.limiters.Get(ip); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.rps, l.burst)
	}
	// Re-set to push the idle expiry out.
	l.limiters.SetDefault(ip, limiter)
	return limiter.Allow()
}

// clientIP is the peer address of r. Forwarding headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
