package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	gradingCyclesTotal   *prometheus.CounterVec
	gradingAttemptsTotal *prometheus.CounterVec
	duplicateDetections  *prometheus.CounterVec
	scoreDiscrepancies   prometheus.Counter
	penaltyTransitions   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 5, 15, 30, 60, 120},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		gradingCyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_cycles_total",
			Help: "Grading cycles by outcome (ok or error kind).",
		}, []string{"outcome"})

		gradingAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_attempts_total",
			Help: "External grading attempts by provider.",
		}, []string{"provider"})

		duplicateDetections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_duplicate_detections_total",
			Help: "Submissions whose fingerprint matched another student in the same group.",
		}, []string{"penalized"})

		scoreDiscrepancies = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_score_discrepancies_total",
			Help: "Grading answers whose reported score differed from the sum of awarded marks.",
		})

		penaltyTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_penalty_transitions_total",
			Help: "Penalty transactions applied and restored.",
		}, []string{"action"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			gradingCyclesTotal, gradingAttemptsTotal, duplicateDetections, scoreDiscrepancies, penaltyTransitions)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// GradingCycles exposes the grading cycle outcome counter.
func GradingCycles() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingCyclesTotal
}

// GradingAttempts exposes the external attempt counter.
func GradingAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingAttemptsTotal
}

// DuplicateDetections exposes the duplicate detection counter.
func DuplicateDetections() *prometheus.CounterVec {
	RegisterMetrics()
	return duplicateDetections
}

// ScoreDiscrepancies exposes the score mismatch counter.
func ScoreDiscrepancies() prometheus.Counter {
	RegisterMetrics()
	return scoreDiscrepancies
}

// PenaltyTransitions exposes the penalty apply/restore counter.
func PenaltyTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return penaltyTransitions
}
