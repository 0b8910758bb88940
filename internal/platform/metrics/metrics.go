// Package metrics exposes quiz activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reader"

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	scores   prometheus.Histogram
	requests *prometheus.CounterVec
}

// New registers the quiz collectors on a fresh registry. activeSessions is
// sampled on every scrape; nil disables the gauge.
func New(activeSessions func() int) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_events_total",
			Help:      "Applied quiz transitions by event type.",
		}, []string{"event"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quiz_score",
			Help:      "Scores of submitted quizzes.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
	}

	reg.MustRegister(m.events, m.scores, m.requests)
	reg.MustRegister(collectors.NewGoCollector())

	if activeSessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(activeSessions()) }))
	}

	return m
}

// ObserveEvent counts one applied transition.
func (m *Metrics) ObserveEvent(eventType string) {
	m.events.WithLabelValues(eventType).Inc()
}

// ObserveScore records the score of a submitted quiz.
func (m *Metrics) ObserveScore(score int) {
	m.scores.Observe(float64(score))
}

// ObserveRequest counts one HTTP response.
func (m *Metrics) ObserveRequest(route, code string) {
	m.requests.WithLabelValues(route, code).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
