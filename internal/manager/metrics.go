package manager

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmchatd",
			Subsystem: "engine",
			Name:      "loads_total",
			Help:      "Engine load attempts by outcome",
		},
		[]string{"model", "outcome"},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llmchatd",
			Subsystem: "engine",
			Name:      "load_duration_seconds",
			Help:      "Time spent loading model weights",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	closesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmchatd",
			Subsystem: "engine",
			Name:      "closes_total",
			Help:      "Engine handles released",
		},
	)

	resetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmchatd",
			Subsystem: "engine",
			Name:      "session_resets_total",
			Help:      "Conversation sessions recreated",
		},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmchatd",
			Subsystem: "generation",
			Name:      "total",
			Help:      "Generations by terminal outcome",
		},
		[]string{"outcome"},
	)

	deltasTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmchatd",
			Subsystem: "generation",
			Name:      "deltas_total",
			Help:      "Text deltas received from the engine",
		},
	)

	generationInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llmchatd",
			Subsystem: "generation",
			Name:      "inflight",
			Help:      "Generations currently holding the session",
		},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDuration, closesTotal, resetsTotal,
		generationsTotal, deltasTotal, generationInflight)
}
