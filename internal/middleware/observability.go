package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/observability"
)

// Observability records request metrics and writes one log line per API call,
// tagged with the caller and correlation id. Paths outside /api/ are skipped.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if !strings.HasPrefix(c.Path(), "/api/") {
			return err
		}

		duration := time.Since(start)
		route := routeTemplate(c)
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.APIRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.APILatency().WithLabelValues(method, route).Observe(duration.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.APIErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		event := logger.WithLevel(requestLogLevel(status)).
			Str("correlation_id", GetCorrelationID(c)).
			Str("method", method).
			Str("route", route).
			Int("status", status).
			Dur("latency", duration).
			Str("latency_bucket", latencyBucket(duration))
		if userID := UserID(c); userID != "" {
			event = event.Str("user_id", userID)
		}
		if role := UserRole(c); role != "" {
			event = event.Str("user_role", role)
		}
		event.Msg(requestLogMessage(status))

		return err
	}
}

func requestLogLevel(status int) zerolog.Level {
	switch {
	case status >= fiber.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= fiber.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func requestLogMessage(status int) string {
	switch {
	case status == fiber.StatusTooManyRequests:
		return "grading api request throttled"
	case status >= fiber.StatusInternalServerError:
		return "grading api request failed"
	case status >= fiber.StatusBadRequest:
		return "grading api request rejected"
	default:
		return "grading api request served"
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if c.Route() != nil && c.Route().Path != "" {
		return c.Route().Path
	}
	return c.Path()
}

// latencyBucket labels a request duration for log filtering.
func latencyBucket(duration time.Duration) string {
	switch {
	case duration <= 100*time.Millisecond:
		return "<=100ms"
	case duration <= time.Second:
		return "<=1s"
	case duration <= 10*time.Second:
		return "<=10s"
	case duration <= 30*time.Second:
		return "<=30s"
	default:
		return ">30s"
	}
}
