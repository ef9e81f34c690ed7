package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus instruments
type Metrics struct {
	ScoringDuration prometheus.Histogram
	Decisions       *prometheus.CounterVec
	ModelFallbacks  prometheus.Counter
	ModelUpdates    prometheus.Counter
}

// New registers the engine metrics on the given registerer
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScoringDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "risk",
			Name:      "scoring_duration_seconds",
			Help:      "Latency of one transaction scoring pass",
			Buckets:   prometheus.DefBuckets,
		}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk",
			Name:      "decisions_total",
			Help:      "Scoring decisions by recommended action",
		}, []string{"action"}),
		ModelFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "risk",
			Name:      "model_fallbacks_total",
			Help:      "Predictions served by the amount-bucket fallback",
		}),
		ModelUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "risk",
			Name:      "model_updates_total",
			Help:      "Online model updates applied from feedback labels",
		}),
	}
}
