// Package metrics exports realtime conversation metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/codewandler/voicert-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "voicert"

// Metrics implements voicert.Observer.
type Metrics struct {
	registry          *prometheus.Registry
	WSMessages        *prometheus.CounterVec
	Turns             *prometheus.CounterVec
	TurnDuration      prometheus.Histogram
	FirstAudioLatency prometheus.Histogram
	Recordings        prometheus.Counter
	RecordedSeconds   prometheus.Histogram
}

var _ voicert.Observer = (*Metrics)(nil)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by outcome.",
		}, []string{"outcome"}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time from sending a turn to its terminal event.",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13, 21, 34},
		}),
		FirstAudioLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "first_audio_latency_ms",
			Help:      "Latency to first assistant audio chunk in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000},
		}),
		Recordings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "recordings_total",
			Help:      "Utterances captured from the microphone.",
		}),
		RecordedSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "recording_duration_seconds",
			Help:      "Length of captured utterances.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
	}
}

func (m *Metrics) MessageSent(eventType string) {
	m.WSMessages.WithLabelValues("out", eventType).Inc()
}

func (m *Metrics) MessageReceived(eventType string) {
	m.WSMessages.WithLabelValues("in", eventType).Inc()
}

func (m *Metrics) TurnCompleted(outcome voicert.TurnOutcome, d time.Duration) {
	m.Turns.WithLabelValues(string(outcome)).Inc()
	m.TurnDuration.Observe(d.Seconds())
}

func (m *Metrics) FirstAudio(d time.Duration) {
	m.FirstAudioLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) Recorded(d time.Duration) {
	m.Recordings.Inc()
	m.RecordedSeconds.Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
