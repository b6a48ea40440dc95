package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quiz-leaderboard/internal/domain"
)

// Metrics holds the Prometheus collectors for leaderboard generation and live delivery.
type Metrics struct {
	registry          *prometheus.Registry
	generationsTotal  *prometheus.CounterVec
	generationSeconds *prometheus.HistogramVec
	deliveriesTotal   *prometheus.CounterVec
	activeSubscribers prometheus.Gauge
}

// NewMetrics registers the collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leaderboard_generations_total",
			Help: "Total number of leaderboard generations.",
		}, []string{"scope", "status"}),
		generationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leaderboard_generation_seconds",
			Help:    "Latency distribution of leaderboard generations, fetch included.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"scope"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leaderboard_live_deliveries_total",
			Help: "Total number of live leaderboard updates delivered to subscribers.",
		}, []string{"status"}),
		activeSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leaderboard_live_subscribers",
			Help: "Number of active live leaderboard subscriptions.",
		}),
	}
	m.registry.MustRegister(
		m.generationsTotal,
		m.generationSeconds,
		m.deliveriesTotal,
		m.activeSubscribers,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObserveGeneration(scope domain.ScopeKind, elapsed time.Duration, err error) {
	m.generationsTotal.WithLabelValues(string(scope), status(err != nil)).Inc()
	m.generationSeconds.WithLabelValues(string(scope)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveDelivery(failed bool) {
	m.deliveriesTotal.WithLabelValues(status(failed)).Inc()
}

func (m *Metrics) SubscriberDelta(delta int) {
	m.activeSubscribers.Add(float64(delta))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}
