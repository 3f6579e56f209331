package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the conversation core.
type Metrics struct {
	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec
	ActiveSessions     prometheus.Gauge
	SessionsSwept      prometheus.Counter
	EvictedTurns       prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CompletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deep_shiva_completions_total",
				Help: "Total number of remote completion calls",
			},
			[]string{"provider", "status"},
		),
		CompletionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deep_shiva_completion_duration_seconds",
				Help:    "Duration of remote completion calls in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"provider"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "deep_shiva_active_sessions",
				Help: "Number of conversation sessions held in the registry",
			},
		),
		SessionsSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "deep_shiva_sessions_swept_total",
				Help: "Total number of sessions reclaimed by the expiry sweep",
			},
		),
		EvictedTurns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "deep_shiva_memory_evicted_turns_total",
				Help: "Total number of turns dropped by the memory cap",
			},
		),
	}
}

// RecordCompletion records one remote call outcome.
func (m *Metrics) RecordCompletion(provider string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.CompletionsTotal.WithLabelValues(provider, status).Inc()
	m.CompletionDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// SetActiveSessions updates the registry size gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// AddSwept counts sessions removed by a sweep.
func (m *Metrics) AddSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsSwept.Add(float64(n))
}

// AddEvicted counts turns dropped by the memory cap.
func (m *Metrics) AddEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EvictedTurns.Add(float64(n))
}
