package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/portalgate/pkg/gate"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

const namespace = "portalgate"

// Metrics holds the access-control collectors.
type Metrics struct {
	GateDecisions *prometheus.CounterVec
	SessionEvents *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	registry      *prometheus.Registry
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_decisions_total",
				Help:      "Request gate decisions by outcome and reason.",
			},
			[]string{"outcome", "reason"},
		),
		SessionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_events_total",
				Help:      "Session lifecycle transitions by event and reason.",
			},
			[]string{"event", "reason"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method and status.",
			},
			[]string{"method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		registry: reg,
	}

	reg.MustRegister(m.GateDecisions, m.SessionEvents, m.HTTPRequests, m.HTTPDuration)

	return m
}

// ActiveSessions registers a gauge reading count on every scrape.
// *session.Manager.ActiveCount fits.
func (m *Metrics) ActiveSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held by the session manager.",
		},
		func() float64 { return float64(count()) },
	))
}

// GateObserver counts gate decisions.
func (m *Metrics) GateObserver() gate.Observer {
	return func(_ context.Context, _ *http.Request, d gate.Decision) {
		m.GateDecisions.WithLabelValues(string(d.Outcome), string(d.Reason)).Inc()
	}
}

// SessionHook counts session lifecycle events.
func (m *Metrics) SessionHook() session.Hook {
	return func(_ context.Context, e session.Event) {
		m.SessionEvents.WithLabelValues(string(e.Type), string(e.Reason)).Inc()
	}
}

// Middleware records request counts and latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
