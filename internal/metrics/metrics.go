// Package metrics exposes Prometheus collectors for chat turns and the
// dataset.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry     *prometheus.Registry
	turns        *prometheus.CounterVec
	turnDuration prometheus.Histogram
	repositories prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repoexplorer",
			Name:      "chat_turns_total",
			Help:      "Chat turns answered, by outcome.",
		}, []string{"outcome"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "repoexplorer",
			Name:      "chat_turn_duration_seconds",
			Help:      "Time to translate, execute and render one chat turn.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		repositories: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "repoexplorer",
			Name:      "dataset_repositories",
			Help:      "Repositories loaded into the dataset store.",
		}),
	}
	reg.MustRegister(
		m.turns,
		m.turnDuration,
		m.repositories,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveTurn(outcome string, elapsed time.Duration) {
	m.turns.WithLabelValues(outcome).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SetRepositories(n int) {
	m.repositories.Set(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
