package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
)

// ArchiveHandler exposes the archived grading results.
type ArchiveHandler struct {
	service   service.GradingService
	validator *validator.Validate
	maxFiles  int
	logger    zerolog.Logger
}

// NewArchiveHandler constructs the archive handler.
func NewArchiveHandler(service service.GradingService, validator *validator.Validate, maxFiles int, logger zerolog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		service:   service,
		validator: validator,
		maxFiles:  maxFiles,
		logger:    logger.With().Str("component", "archive_handler").Logger(),
	}
}

// Register attaches archive routes. guard protects the mutating routes.
func (h *ArchiveHandler) Register(router fiber.Router, guard fiber.Handler) {
	if guard == nil {
		guard = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Get("", h.list)
	router.Get("/lookup", h.lookup)
	router.Get("/:id", h.get)
	router.Put("/:id/regrade", guard, h.regrade)
	router.Delete("/:id", guard, h.remove)
	router.Delete("", guard, h.clear)
}

func (h *ArchiveHandler) list(c *fiber.Ctx) error {
	results, err := h.service.ListResults(requestContext(c), c.Query("group"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "archived results", dto.ArchiveListResponse{Items: results, Total: len(results)})
}

func (h *ArchiveHandler) lookup(c *fiber.Ctx) error {
	studentID := strings.TrimSpace(c.Query("student_id"))
	group := strings.TrimSpace(c.Query("group"))
	if studentID == "" || group == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "student_id and group are required")
	}

	existing, err := h.service.LookupExisting(requestContext(c), studentID, group)
	if err != nil {
		return h.handleError(c, err)
	}
	if existing == nil {
		return utils.SendError(c, fiber.StatusNotFound, "no archived result for this student")
	}
	return utils.SendSuccess(c, "archived result found", existing)
}

func (h *ArchiveHandler) get(c *fiber.Ctx) error {
	result, err := h.service.GetResult(requestContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "archived result", result)
}

func (h *ArchiveHandler) regrade(c *fiber.Ctx) error {
	var payload dto.RegradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid multipart form")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid regrade request", validationDetails(err))
	}

	submittedAt, err := parseSubmittedAt(payload.SubmittedAt)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "submitted_at must be an RFC3339 timestamp")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid multipart form")
	}
	files := form.File["files"]
	references := form.File["reference_files"]
	if len(files) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrNoSubmissionFiles.Error())
	}
	if h.maxFiles > 0 && len(files)+len(references) > h.maxFiles {
		return utils.SendError(c, fiber.StatusBadRequest, "too many files")
	}

	outcome, err := h.service.Regrade(requestContext(c), c.Params("id"), service.GradeInput{
		TotalMarks:     payload.TotalMarks,
		Files:          submissionFiles(files),
		ReferenceFiles: submissionFiles(references),
		ReferenceText:  payload.ReferenceText,
		Language:       payload.Language,
		SubmittedAt:    submittedAt,
		Policies: &service.GradingPolicies{
			Strictness:            payload.Strictness,
			PlagiarismSensitivity: payload.PlagiarismSensitivity,
			CustomInstructions:    payload.CustomInstructions,
		},
	})
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "submission regraded", newGradingResponse(outcome))
}

func (h *ArchiveHandler) remove(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteResult(requestContext(c), id); err != nil {
		return h.handleError(c, err)
	}
	requestLogger(h.logger, c).Info().Str("result_id", id).Msg("archived result deleted")
	return utils.SendSuccess(c, "archived result deleted", nil)
}

func (h *ArchiveHandler) clear(c *fiber.Ctx) error {
	if err := h.service.ClearArchive(requestContext(c)); err != nil {
		return h.handleError(c, err)
	}
	requestLogger(h.logger, c).Info().Msg("archive cleared")
	return utils.SendSuccess(c, "archive cleared", nil)
}

func (h *ArchiveHandler) handleError(c *fiber.Ctx, err error) error {
	return handleGradingError(c, requestLogger(h.logger, c), err)
}
