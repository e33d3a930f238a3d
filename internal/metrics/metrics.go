// Package metrics exposes transcription counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics owns a private registry. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	transcriptions *prometheus.CounterVec
	audioSeconds   *prometheus.HistogramVec
	inFlight       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transcriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "speech",
			Name:      "transcriptions_total",
			Help:      "Transcription requests by engine and outcome.",
		}, []string{"engine", "outcome"}),
		audioSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "speech",
			Name:      "audio_seconds",
			Help:      "Duration of successfully transcribed audio.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"engine"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "speech",
			Name:      "transcriptions_in_flight",
			Help:      "Transcriptions currently streaming audio.",
		}),
	}

	m.registry.MustRegister(
		m.transcriptions,
		m.audioSeconds,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Observe records one finished transcription. audioSeconds is only
// recorded for successful outcomes.
func (m *Metrics) Observe(engine, outcome string, audioSeconds float64) {
	if m == nil {
		return
	}
	m.transcriptions.WithLabelValues(engine, outcome).Inc()
	if outcome == OutcomeOK {
		m.audioSeconds.WithLabelValues(engine).Observe(audioSeconds)
	}
}

// TrackInFlight increments the in-flight gauge and returns its release func.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}
