package ai

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gradingCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "call_duration_seconds",
		Help:      "Duration of external grading requests",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"provider", "model"})

	gradingCallFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "call_failures_total",
		Help:      "Number of failed external grading requests by failure class",
	}, []string{"provider", "model", "class"})
)

func observeCall(provider, model string, start time.Time, err error) {
	gradingCallDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	if err != nil {
		gradingCallFailures.WithLabelValues(provider, model, failureClass(err)).Inc()
	}
}

func failureClass(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrContentRejected):
		return "content_rejected"
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload_too_large"
	default:
		return "unexpected"
	}
}
