package insight

import "github.com/prometheus/client_golang/prometheus"

// Prometheus analysis metrics.
var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycleinsight_analyses_total",
			Help: "Completed analyses by confidence tier and reported deviation.",
		},
		[]string{"confidence", "deviation"},
	)
	persistentDeviationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cycleinsight_persistent_deviations_total",
			Help: "Analyses in which a deviation was confirmed as persistent.",
		},
	)
	analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cycleinsight_analysis_duration_seconds",
			Help:    "Time spent in a single analysis.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"confidence"},
	)
	validationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycleinsight_validation_errors_total",
			Help: "Rejected analysis requests by offending field.",
		},
		[]string{"field"},
	)
)

func init() {
	prometheus.MustRegister(analysesTotal)
	prometheus.MustRegister(persistentDeviationsTotal)
	prometheus.MustRegister(analysisDuration)
	prometheus.MustRegister(validationErrorsTotal)
}
