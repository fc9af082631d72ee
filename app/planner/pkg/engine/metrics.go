package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markee_plan_generations_total",
			Help: "Total number of marketing plan generation attempts.",
		},
		[]string{"status"},
	)
	generationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "markee_plan_generation_duration_seconds",
			Help:    "Histogram of marketing plan generation durations.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		},
	)
)
