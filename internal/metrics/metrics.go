// Package metrics declares the Prometheus collectors shared by the screening pipeline.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SimilarityAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similarity_attempts_total",
			Help: "Similarity service attempts by backend and classified outcome",
		},
		[]string{"backend", "outcome"},
	)
	SimilarityRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "similarity_request_duration_seconds",
			Help:    "Duration of a single similarity service attempt in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"backend"},
	)

	ScreeningResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_results_total",
			Help: "Screened resumes by result status",
		},
		[]string{"status"},
	)
	MatchScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screening_match_score",
			Help:    "Distribution of final match scores (0-100)",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)
)

// Register adds every collector to reg. Collectors already present are tolerated.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		SimilarityAttemptsTotal,
		SimilarityRequestDuration,
		ScreeningResultsTotal,
		MatchScore,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}

	return nil
}
