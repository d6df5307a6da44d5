package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daikw/storyvoice/internal/voice/provider"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry *prometheus.Registry

	StoriesGenerated   *prometheus.CounterVec
	StoriesParsed      prometheus.Counter
	Segments           *prometheus.CounterVec
	SynthesisRequests  *prometheus.CounterVec
	SynthesisLatency   *prometheus.HistogramVec
	SynthesisBytes     prometheus.Counter
	AudiobooksInFlight prometheus.Gauge
	HTTPRequests       *prometheus.CounterVec
}

// NewMetrics registers every instrument on a private registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StoriesGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stories_generated_total",
			Help:      "Generated stories by model.",
		}, []string{"model"}),
		StoriesParsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stories_parsed_total",
			Help:      "Stories split into segments.",
		}),
		Segments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_total",
			Help:      "Segments produced by voice category.",
		}, []string{"category"}),
		SynthesisRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_requests_total",
			Help:      "Hosted synthesis requests by provider and result code.",
		}, []string{"provider", "code"}),
		SynthesisLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_ms",
			Help:      "Hosted synthesis latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000},
		}, []string{"provider"}),
		SynthesisBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_bytes_total",
			Help:      "Audio bytes received from hosted providers.",
		}),
		AudiobooksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audiobooks_in_flight",
			Help:      "Audiobook builds currently running.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
	}
}

// SegmentSynthesized records one hosted synthesis attempt.
func (m *Metrics) SegmentSynthesized(providerName, character string, elapsed time.Duration, size int, err error) {
	m.SynthesisRequests.WithLabelValues(providerName, resultCode(err)).Inc()
	m.SynthesisLatency.WithLabelValues(providerName).Observe(float64(elapsed.Milliseconds()))
	if err == nil {
		m.SynthesisBytes.Add(float64(size))
	}
}

// ObserveRequest records a finished HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func resultCode(err error) string {
	if err == nil {
		return "ok"
	}
	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		return strconv.Itoa(statusErr.StatusCode)
	}
	return "error"
}

// Registry exposes the private registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
