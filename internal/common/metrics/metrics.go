// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_transitions_completed_total",
			Help: "Total number of committed stage transitions",
		},
		[]string{"target_stage", "automated"},
	)

	TransitionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_transitions_failed_total",
			Help: "Total number of rejected transition requests",
		},
		[]string{"target_stage", "error_code"},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_transition_duration_seconds",
			Help: "Duration of transition processing in seconds",
		},
		[]string{"target_stage"},
	)

	PayloadAmendments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_payload_amendments_total",
			Help: "Total number of committed payload amendments",
		},
		[]string{"stage"},
	)

	ApplicationsByStage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_applications_by_stage",
			Help: "Number of applications currently in each stage",
		},
		[]string{"stage"},
	)
)
