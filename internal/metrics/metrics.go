package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	APICallsTotal   *prometheus.CounterVec
	APICallDuration *prometheus.HistogramVec

	RateLimitHitsTotal *prometheus.CounterVec

	PrivateDocumentsTotal *prometheus.CounterVec
}

// New регистрирует метрики в глобальном реестре, вызывать один раз на процесс.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copyscape_bot_requests_total",
				Help: "Total number of frontend requests processed",
			},
			[]string{"frontend", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copyscape_bot_request_duration_seconds",
				Help:    "Frontend request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"frontend"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "copyscape_bot_requests_in_flight",
				Help: "Number of requests currently being processed",
			},
		),

		APICallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copyscape_api_calls_total",
				Help: "Total number of Copyscape API calls by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		APICallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copyscape_api_call_duration_seconds",
				Help:    "Copyscape API call duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"operation"},
		),

		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copyscape_bot_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"frontend"},
		),

		PrivateDocumentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copyscape_bot_private_documents_total",
				Help: "Private index documents added and removed",
			},
			[]string{"action"},
		),
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor - для нестандартного реестра (тесты, отдельный процесс).
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(frontend, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(frontend, status).Inc()
	m.RequestDuration.WithLabelValues(frontend).Observe(duration.Seconds())
}

func (m *Metrics) RecordAPICall(operation, status string, duration time.Duration) {
	m.APICallsTotal.WithLabelValues(operation, status).Inc()
	m.APICallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimitHit(frontend string) {
	m.RateLimitHitsTotal.WithLabelValues(frontend).Inc()
}

func (m *Metrics) RecordDocumentAdded() {
	m.PrivateDocumentsTotal.WithLabelValues("added").Inc()
}

func (m *Metrics) RecordDocumentRemoved() {
	m.PrivateDocumentsTotal.WithLabelValues("removed").Inc()
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
