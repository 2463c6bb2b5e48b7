package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
)

// AnalyticsHandler exposes score analytics of the archive.
type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(service service.AnalyticsService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// Register attaches analytics routes to the router group.
func (h *AnalyticsHandler) Register(router fiber.Router) {
	router.Get("", h.get)
}

func (h *AnalyticsHandler) get(c *fiber.Ctx) error {
	summary, err := h.service.GetSummary(requestContext(c), c.Query("group"))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to fetch analytics summary")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load analytics")
	}

	return utils.SendSuccess(c, "analytics summary", summary)
}
