// Package metrics defines the Prometheus collectors for the document pipeline
// and the HTTP boundary. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	DocumentsProcessed     *prometheus.CounterVec
	StageDuration          *prometheus.HistogramVec
	ExtractionDegraded     *prometheus.CounterVec
	TranslationPassthrough *prometheus.CounterVec
	TranslationCache       *prometheus.CounterVec
	EventsPublished        *prometheus.CounterVec
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPRequestsInFlight   prometheus.Gauge
	QueueDepth             prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. A nil reg uses a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		DocumentsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meddocs_documents_processed_total",
				Help: "Documents run through the pipeline by category, strategy and outcome.",
			},
			[]string{"category", "strategy", "outcome"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meddocs_stage_duration_seconds",
				Help:    "Pipeline stage latency in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		ExtractionDegraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meddocs_extraction_degraded_total",
				Help: "Extractions that produced a placeholder or sentinel, by reason.",
			},
			[]string{"reason"},
		),
		TranslationPassthrough: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meddocs_translation_passthrough_total",
				Help: "Translations returned untranslated, by reason.",
			},
			[]string{"reason"},
		),
		TranslationCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meddocs_translation_cache_total",
				Help: "Translation cache lookups by result (hit, miss, error).",
			},
			[]string{"result"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meddocs_events_published_total",
				Help: "document.processed events by outcome.",
			},
			[]string{"outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "meddocs_queue_depth",
				Help: "Jobs waiting in the async processing queue.",
			},
		),
	}

	reg.MustRegister(
		m.DocumentsProcessed,
		m.StageDuration,
		m.ExtractionDegraded,
		m.TranslationPassthrough,
		m.TranslationCache,
		m.EventsPublished,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueueDepth,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) IncProcessed(category, strategy, outcome string) {
	if m == nil {
		return
	}
	m.DocumentsProcessed.WithLabelValues(category, strategy, outcome).Inc()
}

func (m *Metrics) IncDegraded(reason string) {
	if m == nil {
		return
	}
	m.ExtractionDegraded.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncPassthrough(reason string) {
	if m == nil {
		return
	}
	m.TranslationPassthrough.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncCache(result string) {
	if m == nil {
		return
	}
	m.TranslationCache.WithLabelValues(result).Inc()
}

func (m *Metrics) IncEvent(outcome string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// Handler returns the scrape handler for the registry the metrics were registered on.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
