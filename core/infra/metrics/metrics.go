package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine session outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeBusy     = "busy"
	OutcomeCanceled = "canceled"
)

// GatewayMetrics captures request metrics for the HTTP surface.
type GatewayMetrics interface {
	ObserveRequest(method, route, status string, durationSeconds float64)
}

// EngineMetrics captures access to the shared scoring engine.
type EngineMetrics interface {
	IncSessions(outcome string)
	ObserveWait(durationSeconds float64)
	SetWaiters(n int)
}

// Noop implements every metrics interface without emitting anything.
type Noop struct{}

func (Noop) ObserveRequest(string, string, string, float64) {}
func (Noop) IncSessions(string)                             {}
func (Noop) ObserveWait(float64)                            {}
func (Noop) SetWaiters(int)                                 {}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// register adds c to the default registry, reusing an identical collector that is already there.
func register[C prometheus.Collector](c C) C {
	err := prometheus.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

// --- Gateway metrics ---

type gatewayProm struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewGatewayProm constructs a GatewayMetrics with counters/histograms.
func NewGatewayProm(namespace string) GatewayMetrics {
	g := &gatewayProm{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method/route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	g.requests = register(g.requests)
	g.latency = register(g.latency)
	return g
}

func (g *gatewayProm) ObserveRequest(method, route, status string, durationSeconds float64) {
	g.requests.WithLabelValues(method, route, status).Inc()
	g.latency.WithLabelValues(method, route).Observe(durationSeconds)
}

// --- Engine metrics ---

type engineProm struct {
	sessions *prometheus.CounterVec
	wait     prometheus.Histogram
	waiters  prometheus.Gauge
}

// NewEngineProm constructs EngineMetrics for the scoring gateway.
func NewEngineProm(namespace string) EngineMetrics {
	e := &engineProm{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_sessions_total",
			Help:      "Engine mutate-then-read sessions by outcome",
		}, []string{"outcome"}),
		wait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_wait_seconds",
			Help:      "Time spent waiting for exclusive engine access",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		waiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_waiters",
			Help:      "Callers currently queued for the engine",
		}),
	}
	e.sessions = register(e.sessions)
	e.wait = register(e.wait)
	e.waiters = register(e.waiters)
	return e
}

func (e *engineProm) IncSessions(outcome string) {
	e.sessions.WithLabelValues(outcome).Inc()
}

func (e *engineProm) ObserveWait(durationSeconds float64) {
	e.wait.Observe(durationSeconds)
}

func (e *engineProm) SetWaiters(n int) {
	e.waiters.Set(float64(n))
}
