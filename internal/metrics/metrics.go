// Package metrics exposes the sync core's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderCalls counts live-value provider invocations per criterion.
	// Provider lookups are the expensive step; the short-circuit logic exists
	// to keep this number down, so it is the primary cost signal.
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_provider_calls_total",
			Help: "Total number of live-value provider calls",
		},
		[]string{"criterion"},
	)

	// DriftDetections counts rows flagged dirty per criterion.
	DriftDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_drift_detections_total",
			Help: "Total number of drift detections that flagged a tracking row",
		},
		[]string{"criterion"},
	)

	// RowsEvaluated counts tracking rows run through the drift detector.
	RowsEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalogsync_rows_evaluated_total",
			Help: "Total number of tracking rows evaluated by the drift detector",
		},
	)

	// RowEvaluationFailures counts rows whose evaluation errored and was
	// isolated from the rest of the batch.
	RowEvaluationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalogsync_row_evaluation_failures_total",
			Help: "Total number of tracking rows whose drift evaluation failed",
		},
	)

	// ConditionVetoes counts eligibility vetoes per condition.
	ConditionVetoes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_condition_vetoes_total",
			Help: "Total number of indexability vetoes per eligibility condition",
		},
		[]string{"condition"},
	)
)
