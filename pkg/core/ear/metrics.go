package ear

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus instrumentation for the listening orchestrator.
// A nil *Metrics disables recording.
type Metrics struct {
	registry *prometheus.Registry

	// Turn metrics
	TurnsTotal   *prometheus.CounterVec
	TurnDuration *prometheus.HistogramVec
	ListenCycles prometheus.Histogram

	// Interruption metrics
	InterruptionsTotal *prometheus.CounterVec

	// Audio metrics
	AudioSecondsTotal prometheus.Counter
}

// NewMetrics creates a Metrics instance with all collectors registered on a
// private registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "earshot"
	}

	registry := prometheus.NewRegistry()

	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of completed listening turns",
		},
		[]string{"mode"},
	)

	turnDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Listening turn duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	listenCycles := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "listen_cycles",
			Help:      "Capture/transcribe/segment cycles per batch turn",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)

	interruptionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Interruption loop outcomes",
		},
		[]string{"result"},
	)

	audioSecondsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_seconds_total",
			Help:      "Total seconds of audio transcribed",
		},
	)

	registry.MustRegister(
		turnsTotal,
		turnDuration,
		listenCycles,
		interruptionsTotal,
		audioSecondsTotal,
	)

	return &Metrics{
		registry:           registry,
		TurnsTotal:         turnsTotal,
		TurnDuration:       turnDuration,
		ListenCycles:       listenCycles,
		InterruptionsTotal: interruptionsTotal,
		AudioSecondsTotal:  audioSecondsTotal,
	}
}

// Handler returns an HTTP handler exposing the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTurn records a completed listening turn.
func (m *Metrics) RecordTurn(mode string, cycles int, duration time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(mode).Inc()
	m.TurnDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if cycles > 0 {
		m.ListenCycles.Observe(float64(cycles))
	}
}

// RecordInterruption records an interruption loop outcome: "real",
// "dismissed" or "none".
func (m *Metrics) RecordInterruption(result string) {
	if m == nil {
		return
	}
	m.InterruptionsTotal.WithLabelValues(result).Inc()
}

// RecordAudio records transcribed audio duration.
func (m *Metrics) RecordAudio(d time.Duration) {
	if m == nil {
		return
	}
	m.AudioSecondsTotal.Add(d.Seconds())
}
