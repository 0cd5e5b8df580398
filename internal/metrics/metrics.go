// Package metrics holds the Prometheus collectors of the analysis pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	analyses        *prometheus.CounterVec
	analyzerFailure *prometheus.CounterVec
	statuteLoad     *prometheus.HistogramVec
	statuteArticles *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contract_auditor",
			Name:      "analyses_total",
			Help:      "Completed contract analyses by risk status.",
		}, []string{"status"}),
		analyzerFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contract_auditor",
			Name:      "analyzer_failures_total",
			Help:      "External analysis calls replaced by a degraded result.",
		}, []string{"kind"}),
		statuteLoad: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "contract_auditor",
			Name:      "statute_load_seconds",
			Help:      "Time spent extracting and segmenting a statute source.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"statute"}),
		statuteArticles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "contract_auditor",
			Name:      "statute_articles",
			Help:      "Articles recovered from a statute source.",
		}, []string{"statute"}),
	}
	m.registry.MustRegister(m.analyses, m.analyzerFailure, m.statuteLoad, m.statuteArticles)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAnalysis counts a finished report.
func (m *Metrics) ObserveAnalysis(status string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(status).Inc()
}

// ObserveAnalyzerFailure counts a degraded external analysis.
func (m *Metrics) ObserveAnalyzerFailure(kind string) {
	if m == nil {
		return
	}
	m.analyzerFailure.WithLabelValues(kind).Inc()
}

// ObserveStatuteLoad records a statute parse.
func (m *Metrics) ObserveStatuteLoad(statuteID string, elapsed time.Duration, articles int) {
	if m == nil {
		return
	}
	m.statuteLoad.WithLabelValues(statuteID).Observe(elapsed.Seconds())
	m.statuteArticles.WithLabelValues(statuteID).Set(float64(articles))
}
