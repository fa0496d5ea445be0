package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ConnectedSources prometheus.Gauge
	QueueDepth       prometheus.Gauge
	MessagesIngested *prometheus.CounterVec
	MessagesDeduped  *prometheus.CounterVec
	Polls            *prometheus.CounterVec
	JobsSpoken       *prometheus.CounterVec
	JobsDropped      *prometheus.CounterVec
	PlaybackErrors   *prometheus.CounterVec
	SynthesisLatency prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ConnectedSources: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_sources",
			Help:      "Number of chat sources currently connected.",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speech_queue_depth",
			Help:      "Jobs waiting in the speech queue.",
		}),
		MessagesIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_ingested_total",
			Help:      "Chat messages handed to the scheduler by source.",
		}, []string{"source"}),
		MessagesDeduped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_deduped_total",
			Help:      "Fetched messages dropped as already seen, by source.",
		}, []string{"source"}),
		Polls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_polls_total",
			Help:      "Source poll attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		JobsSpoken: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_jobs_spoken_total",
			Help:      "Speech jobs played to completion by backend.",
		}, []string{"backend"}),
		JobsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_jobs_dropped_total",
			Help:      "Speech jobs dropped before playback by reason.",
		}, []string{"reason"}),
		PlaybackErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_errors_total",
			Help:      "Playback/synthesis failures by backend and code.",
		}, []string{"backend", "code"}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_ms",
			Help:      "Latency of synthesis backends in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000},
		}),
	}
}

func (m *Metrics) ObserveSynthesisLatency(d time.Duration) {
	m.SynthesisLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
