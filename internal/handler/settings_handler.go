package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
)

// SettingsHandler reads and updates the grading preferences.
type SettingsHandler struct {
	service service.SettingsService
	logger  zerolog.Logger
}

// NewSettingsHandler constructs the settings handler.
func NewSettingsHandler(service service.SettingsService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger.With().Str("component", "settings_handler").Logger(),
	}
}

// Register attaches settings routes. guard protects updates.
func (h *SettingsHandler) Register(router fiber.Router, guard fiber.Handler) {
	if guard == nil {
		guard = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Get("", h.get)
	router.Put("", guard, h.update)
}

func (h *SettingsHandler) get(c *fiber.Ctx) error {
	settings, err := h.service.Describe(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load settings")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load settings")
	}
	return utils.SendSuccess(c, "grading settings", settings)
}

func (h *SettingsHandler) update(c *fiber.Ctx) error {
	var payload dto.SettingsUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	settings, err := h.service.Update(requestContext(c), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid settings", validationDetails(err))
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to update settings")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update settings")
	}

	requestLogger(h.logger, c).Info().Bool("api_key_configured", settings.APIKeyConfigured).Msg("grading settings updated")
	return utils.SendSuccess(c, "grading settings updated", settings)
}
