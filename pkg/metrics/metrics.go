// Package metrics holds the Prometheus collectors for the webhook pipeline.
// Every method is safe on a nil *Metrics, which disables collection.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "spellar_vault"

// Metrics groups every collector the service exports.
type Metrics struct {
	WebhooksTotal     *prometheus.CounterVec
	TasksTotal        *prometheus.CounterVec
	TaskSeconds       prometheus.Histogram
	QueueDepth        prometheus.Gauge
	DailyLogTotal     *prometheus.CounterVec
	AudioTotal        *prometheus.CounterVec
	NotesWrittenTotal prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		WebhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhooks_total",
				Help:      "Webhook requests by response status",
			},
			[]string{"status"},
		),
		TasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Background meeting tasks by result",
			},
			[]string{"result"},
		),
		TaskSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_seconds",
				Help:      "Time to process one meeting, audio included",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
			},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Meetings waiting for a worker",
			},
		),
		DailyLogTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "daily_log_merges_total",
				Help:      "Daily log merges by outcome",
			},
			[]string{"outcome"},
		),
		AudioTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audio_total",
				Help:      "Recordings by outcome",
			},
			[]string{"outcome"},
		),
		NotesWrittenTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notes_written_total",
				Help:      "Summary and transcript notes written",
			},
		),
	}
}

func (m *Metrics) Webhook(status string) {
	if m == nil {
		return
	}
	m.WebhooksTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) Task(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(result).Inc()
	m.TaskSeconds.Observe(took.Seconds())
}

func (m *Metrics) Queue(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

func (m *Metrics) DailyLog(outcome string) {
	if m == nil {
		return
	}
	m.DailyLogTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Audio(outcome string) {
	if m == nil {
		return
	}
	m.AudioTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) NoteWritten() {
	if m == nil {
		return
	}
	m.NotesWrittenTotal.Inc()
}
