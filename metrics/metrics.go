// Package metrics holds the bridge's Prometheus collectors on a registry of
// its own. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "auth_bridge"

// Flow steps and outcomes.
const (
	StepAuthorize = "authorize"
	StepCallback  = "callback"
	StepToken     = "token"

	OutcomeSuccess = "success"
)

// Security events, also used as the security_event log field.
const (
	EventCSRFStateMismatch = "csrf_state_mismatch"
	EventRateLimited       = "rate_limited"
)

// Proxy credential modes.
const (
	ModeSession = "session"
	ModeToken   = "token"
	ModeNone    = "none"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        prometheus.Gauge

	flowOutcomesTotal *prometheus.CounterVec
	securityEvents    *prometheus.CounterVec

	proxyRequestsTotal   *prometheus.CounterVec
	proxyUpstreamLatency prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "HTTP requests currently being served.",
		}),
		flowOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_outcomes_total",
			Help:      "Authorization flow results by step and outcome (success or OAuth error code).",
		}, []string{"step", "outcome"}),
		securityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_total",
			Help:      "Security relevant rejections such as CSRF state mismatches.",
		}, []string{"event"}),
		proxyRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      "Proxied requests by credential mode and response status.",
		}, []string{"mode", "status"}),
		proxyUpstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_upstream_duration_seconds",
			Help:      "Time until the backend answered with response headers.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpInflight,
		m.flowOutcomesTotal,
		m.securityEvents,
		m.proxyRequestsTotal,
		m.proxyUpstreamLatency,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so token-bearing paths never become label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInflight.Inc()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			m.httpInflight.Dec()
			route := routePattern(r)
			method := strings.ToUpper(r.Method)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		}()
		next.ServeHTTP(ww, r)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// RecordFlow counts one authorize, callback or token result.
func (m *Metrics) RecordFlow(step, outcome string) {
	if m == nil {
		return
	}
	m.flowOutcomesTotal.WithLabelValues(step, outcome).Inc()
}

func (m *Metrics) RecordSecurityEvent(event string) {
	if m == nil {
		return
	}
	m.securityEvents.WithLabelValues(event).Inc()
}

// RecordProxy counts a proxied request. upstream is zero when the backend
// was never reached.
func (m *Metrics) RecordProxy(mode string, status int, upstream time.Duration) {
	if m == nil {
		return
	}
	m.proxyRequestsTotal.WithLabelValues(mode, strconv.Itoa(status)).Inc()
	if upstream > 0 {
		m.proxyUpstreamLatency.Observe(upstream.Seconds())
	}
}
