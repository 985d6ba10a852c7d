package fastresume

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/anacrolix/fastresume/alert"
)

var tracer = otel.Tracer("github.com/anacrolix/fastresume")

var (
	TorrentsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fastresume",
		Name:      "torrents",
		Help:      "Number of torrents in all sessions.",
	})

	AddsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastresume",
		Name:      "adds_total",
		Help:      "Torrents added, by whether resume data was applied, rejected or absent.",
	}, []string{"resume"})

	SavesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastresume",
		Name:      "saves_total",
		Help:      "Resume data saves by outcome.",
	}, []string{"result"})

	SaveRequestsCoalesced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fastresume",
		Name:      "save_requests_coalesced_total",
		Help:      "Save requests merged into an already pending save.",
	})

	SaveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fastresume",
		Name:      "save_duration_seconds",
		Help:      "Time to capture and store resume data.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	SaveBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fastresume",
		Name:      "save_bytes",
		Help:      "Size of encoded resume data.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
	})

	AlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastresume",
		Name:      "alerts_total",
		Help:      "Alerts pushed, by type.",
	}, []string{"type"})
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		TorrentsGauge,
		AddsTotal,
		SavesTotal,
		SaveRequestsCoalesced,
		SaveDuration,
		SaveBytes,
		AlertsTotal,
	)
}

func countAlert(a alert.Alert) {
	AlertsTotal.WithLabelValues(a.Type().String()).Inc()
}
