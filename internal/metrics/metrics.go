package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private Prometheus registry for the service.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal       *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	requestInFlight    prometheus.Gauge
	extractionsTotal   *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	stageFailuresTotal *prometheus.CounterVec
	uploadBytesTotal   prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freightx",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "freightx",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "freightx",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
		},
	)
	extractionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freightx",
			Name:      "extractions_total",
			Help:      "Completed extractions by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	extractionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "freightx",
			Name:      "extraction_duration_seconds",
			Help:      "End-to-end extraction duration in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"provider"},
	)
	stageFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freightx",
			Name:      "stage_failures_total",
			Help:      "Extraction failures by the stage that failed.",
		},
		[]string{"stage"},
	)
	uploadBytesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "freightx",
			Subsystem: "storage",
			Name:      "upload_bytes_total",
			Help:      "Bytes uploaded to object storage for file-reference providers.",
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		extractionsTotal,
		extractionDuration,
		stageFailuresTotal,
		uploadBytesTotal,
	)

	return &Metrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		extractionsTotal:   extractionsTotal,
		extractionDuration: extractionDuration,
		stageFailuresTotal: stageFailuresTotal,
		uploadBytesTotal:   uploadBytesTotal,
	}
}

// Registry exposes the underlying registry (used by tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts, latency and in-flight requests. Paths are taken from
// the matched route so cardinality stays bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveExtraction records one finished extraction.
func (m *Metrics) ObserveExtraction(provider, outcome string, d time.Duration) {
	if provider == "" {
		provider = "unknown"
	}
	m.extractionsTotal.WithLabelValues(provider, outcome).Inc()
	m.extractionDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// IncStageFailure counts a failure at the given orchestrator stage.
func (m *Metrics) IncStageFailure(stage string) {
	m.stageFailuresTotal.WithLabelValues(stage).Inc()
}

// AddUploadBytes counts bytes written to object storage.
func (m *Metrics) AddUploadBytes(n int) {
	if n > 0 {
		m.uploadBytesTotal.Add(float64(n))
	}
}
