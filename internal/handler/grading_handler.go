package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
)

var gradingFailures = map[service.GradingErrorKind]struct {
	status  int
	message string
}{
	service.KindCredentialMissing:  {fiber.StatusPreconditionFailed, "no grading API key is configured, add one in the settings"},
	service.KindRateLimited:        {fiber.StatusTooManyRequests, "the grading provider is busy, try again in a minute"},
	service.KindInvalidCredential:  {fiber.StatusBadRequest, "the configured grading API key was rejected"},
	service.KindContentRejected:    {fiber.StatusUnprocessableEntity, "the submission was blocked by the provider safety filters"},
	service.KindPayloadTooLarge:    {fiber.StatusRequestEntityTooLarge, "the submission is too large for the grading provider"},
	service.KindResponseParseError: {fiber.StatusBadGateway, "the grading answer could not be understood, try again"},
	service.KindUnexpectedFailure:  {fiber.StatusInternalServerError, "grading failed unexpectedly"},
}

// GradingHandler runs grading cycles and exposes the pending penalty.
type GradingHandler struct {
	service   service.GradingService
	validator *validator.Validate
	maxFiles  int
	logger    zerolog.Logger
}

// NewGradingHandler constructs the grading handler. maxFiles bounds submission plus
// reference files of a single request.
func NewGradingHandler(service service.GradingService, validator *validator.Validate, maxFiles int, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service:   service,
		validator: validator,
		maxFiles:  maxFiles,
		logger:    logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading routes. gradeMiddleware wraps only the grading endpoint.
func (h *GradingHandler) Register(router fiber.Router, gradeMiddleware ...fiber.Handler) {
	router.Post("", append(gradeMiddleware, h.grade)...)
	router.Post("/restore", h.restore)
	router.Get("/penalty", h.penalty)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid multipart form")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid grading request", validationDetails(err))
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
		return utils.SendError(c, fiber.StatusBadRequest, fmt.Sprintf("at most %d files can be uploaded", h.maxFiles))
	}

	submittedAt, err := parseSubmittedAt(payload.SubmittedAt)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "submitted_at must be an RFC3339 timestamp")
	}

	input := service.GradeInput{
		StudentID:      payload.StudentID,
		Group:          payload.Group,
		TotalMarks:     payload.TotalMarks,
		Files:          submissionFiles(files),
		ReferenceFiles: submissionFiles(references),
		ReferenceText:  payload.ReferenceText,
		Language:       payload.Language,
		Policies: &service.GradingPolicies{
			Strictness:            payload.Strictness,
			PlagiarismSensitivity: payload.PlagiarismSensitivity,
			CustomInstructions:    payload.CustomInstructions,
		},
		SubmittedAt: submittedAt,
	}

	outcome, err := h.service.Grade(requestContext(c), input)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission graded", newGradingResponse(outcome))
}

func (h *GradingHandler) restore(c *fiber.Ctx) error {
	restored, err := h.service.Restore(requestContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().Str("result_id", restored.ID).Msg("penalty restored")
	return utils.SendSuccess(c, "penalty restored", restored)
}

func (h *GradingHandler) penalty(c *fiber.Ctx) error {
	pending := h.service.PendingPenalty()
	if pending == nil {
		return utils.SendError(c, fiber.StatusNotFound, service.ErrNoPendingPenalty.Error())
	}
	return utils.SendSuccess(c, "pending penalty", newPenaltyResponse(pending))
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	return handleGradingError(c, requestLogger(h.logger, c), err)
}

// handleGradingError maps service failures to responses. Grading failures carry a
// fixed message and their error kind, never the provider text.
func handleGradingError(c *fiber.Ctx, logger *zerolog.Logger, err error) error {
	if kind := service.ErrorKind(err); kind != "" {
		failure, ok := gradingFailures[kind]
		if !ok {
			failure = gradingFailures[service.KindUnexpectedFailure]
		}
		if failure.status >= fiber.StatusInternalServerError {
			logger.Error().Err(err).Str("kind", string(kind)).Msg("grading failed")
		} else {
			logger.Warn().Err(err).Str("kind", string(kind)).Msg("grading failed")
		}
		return utils.SendErrorKind(c, failure.status, failure.message, string(kind))
	}

	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid grading request", validationDetails(err))
	case errors.Is(err, service.ErrInvalidSubmission),
		errors.Is(err, service.ErrNoSubmissionFiles),
		errors.Is(err, service.ErrUnsupportedFileType):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrResultNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "grading result not found")
	case errors.Is(err, service.ErrNoPendingPenalty):
		return utils.SendError(c, fiber.StatusConflict, service.ErrNoPendingPenalty.Error())
	default:
		logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func parseSubmittedAt(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func newGradingResponse(outcome service.GradeOutcome) dto.GradingResponse {
	return dto.GradingResponse{
		Result:           outcome.Result,
		Archived:         outcome.Archived,
		Percentage:       outcome.Result.Percentage(),
		MatchedStudentID: outcome.MatchedStudentID,
		Penalty:          newPenaltyResponse(outcome.Penalty),
		PreviousResult:   outcome.PreviousResult,
	}
}

func newPenaltyResponse(penalty *service.PenaltyTransaction) *dto.PenaltyResponse {
	if penalty == nil {
		return nil
	}
	return &dto.PenaltyResponse{
		Original:  penalty.Original,
		Penalized: penalty.Penalized,
		CreatedAt: penalty.CreatedAt,
	}
}
