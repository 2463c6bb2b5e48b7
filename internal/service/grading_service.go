package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-grader/internal/middleware"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/observability"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

const scoreTolerance = 1e-6

// GradingState is one step of a grading cycle.
type GradingState string

// Grading cycle states.
const (
	StateIdle                   GradingState = "idle"
	StateFingerprinting         GradingState = "fingerprinting"
	StateAwaitingExternalResult GradingState = "awaiting_external_result"
	StateNormalizing            GradingState = "normalizing"
	StateReconciling            GradingState = "reconciling"
	StateDone                   GradingState = "done"
	StateErrored                GradingState = "errored"
)

// ErrInvalidSubmission indicates the grading input is incomplete.
var ErrInvalidSubmission = errors.New("invalid submission")

// GradingPolicies override the stored settings for a single grading cycle.
type GradingPolicies struct {
	Strictness            string
	PlagiarismSensitivity string
	CustomInstructions    string
}

// GradeInput describes one submission to grade.
type GradeInput struct {
	StudentID      string
	Group          string
	TotalMarks     float64
	Files          []SubmissionFile
	ReferenceFiles []SubmissionFile
	ReferenceText  string
	Language       string
	Policies       *GradingPolicies
	SubmittedAt    *time.Time
}

// PenaltyTransaction is the reversible zeroing of an archived result caused by a
// duplicate submission from another student.
type PenaltyTransaction struct {
	Original  models.GradingResult `json:"original"`
	Penalized models.GradingResult `json:"penalized"`
	CreatedAt time.Time            `json:"created_at"`
}

// GradeOutcome is the product of a successful grading cycle.
type GradeOutcome struct {
	Result           models.GradingResult
	Archived         bool
	MatchedStudentID string
	Penalty          *PenaltyTransaction
	// PreviousResult is an archived result for the same student and group found
	// before grading started. It is a warning only.
	PreviousResult *models.GradingResult
}

// GradingService orchestrates grading cycles and owns the archive and the session
// registry used for duplicate detection.
type GradingService interface {
	Grade(ctx context.Context, input GradeInput) (GradeOutcome, error)
	Regrade(ctx context.Context, id string, input GradeInput) (GradeOutcome, error)
	Restore(ctx context.Context) (models.GradingResult, error)
	PendingPenalty() *PenaltyTransaction
	LookupExisting(ctx context.Context, studentID, group string) (*models.GradingResult, error)
	ListResults(ctx context.Context, group string) ([]models.GradingResult, error)
	GetResult(ctx context.Context, id string) (models.GradingResult, error)
	DeleteResult(ctx context.Context, id string) error
	ClearArchive(ctx context.Context) error
}

// GradingServiceConfig tunes retries and limits of the grading cycle.
type GradingServiceConfig struct {
	MaxAttempts  int
	RetryDelay   time.Duration
	MaxFileBytes int64
	// OnTransition observes every state change of a cycle.
	OnTransition func(GradingState)
}

type gradingService struct {
	grader    ai.Grader
	archive   *ResultArchive
	registry  *SubmissionRegistry
	settings  SettingsService
	events    EventPublisher
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	config    GradingServiceConfig
	now       func() time.Time
	newID     func() string
	sleep     func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	pending *PenaltyTransaction
}

// NewGradingService constructs the grading orchestrator. events may be nil.
func NewGradingService(grader ai.Grader, archive *ResultArchive, registry *SubmissionRegistry, settings SettingsService, events EventPublisher, cfg GradingServiceConfig, logger zerolog.Logger) GradingService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if registry == nil {
		registry = NewSubmissionRegistry()
	}

	return &gradingService{
		grader:    grader,
		archive:   archive,
		registry:  registry,
		settings:  settings,
		events:    events,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "grading_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-grader/internal/service/grading"),
		config:    cfg,
		now:       time.Now,
		newID:     func() string { return uuid.Must(uuid.NewV7()).String() },
		sleep:     sleepContext,
	}
}

func (s *gradingService) Grade(ctx context.Context, input GradeInput) (GradeOutcome, error) {
	return s.run(ctx, input, "")
}

func (s *gradingService) Regrade(ctx context.Context, id string, input GradeInput) (GradeOutcome, error) {
	existing, err := s.archive.Get(ctx, id)
	if err != nil {
		return GradeOutcome{}, err
	}
	if strings.TrimSpace(input.StudentID) == "" {
		input.StudentID = existing.StudentID
	}
	if strings.TrimSpace(input.Group) == "" {
		input.Group = existing.Group
	}
	if input.TotalMarks <= 0 {
		input.TotalMarks = existing.TotalMarks
	}
	if input.SubmittedAt == nil && !existing.SubmittedAt.IsZero() {
		submittedAt := existing.SubmittedAt
		input.SubmittedAt = &submittedAt
	}
	return s.run(ctx, input, existing.ID)
}

type gradingCycle struct {
	state  GradingState
	span   trace.Span
	logger zerolog.Logger
	hook   func(GradingState)
}

func (c *gradingCycle) transition(next GradingState) {
	c.logger.Debug().Str("from", string(c.state)).Str("to", string(next)).Msg("grading state transition")
	c.state = next
	c.span.AddEvent(string(next))
	if c.hook != nil {
		c.hook(next)
	}
}

func (s *gradingService) run(ctx context.Context, input GradeInput, replaceID string) (GradeOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "grading.cycle")
	defer span.End()

	input = s.sanitizeInput(input)
	span.SetAttributes(
		attribute.String("grading.group", input.Group),
		attribute.Int("grading.files", len(input.Files)),
		attribute.Bool("grading.regrade", replaceID != ""),
	)

	logger := s.logger.With().Str("student_id", input.StudentID).Str("group", input.Group).Logger()
	if correlation := middleware.CorrelationIDFromContext(ctx); correlation != "" {
		logger = logger.With().Str("correlation_id", correlation).Logger()
	}
	cycle := &gradingCycle{state: StateIdle, span: span, logger: logger, hook: s.config.OnTransition}

	fail := func(err error) (GradeOutcome, error) {
		cycle.transition(StateErrored)
		kind := ErrorKind(err)
		outcome := string(kind)
		if outcome == "" {
			outcome = "invalid_input"
		}
		observability.GradingCycles().WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		logger.Warn().Err(err).Str("kind", outcome).Msg("grading cycle failed")
		return GradeOutcome{}, err
	}

	s.clearPending()

	if err := validateInput(input); err != nil {
		return fail(err)
	}

	apiKey, err := s.settings.Credential(ctx)
	if err != nil {
		if errors.Is(err, ErrCredentialMissing) {
			return fail(newGradingError(KindCredentialMissing, nil))
		}
		return fail(newGradingError(KindUnexpectedFailure, err))
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fail(newGradingError(KindUnexpectedFailure, err))
	}

	cycle.transition(StateFingerprinting)
	attachments, err := loadAttachments(input.Files, s.config.MaxFileBytes)
	if err != nil {
		return fail(fileError(err))
	}
	references, err := loadAttachments(input.ReferenceFiles, s.config.MaxFileBytes)
	if err != nil {
		return fail(fileError(err))
	}
	if err := acceptedByGrader(s.grader, attachments, references); err != nil {
		return fail(err)
	}
	fingerprint := Fingerprint(attachments)
	span.SetAttributes(attribute.String("grading.fingerprint", fingerprint))

	matched, hasMatch := s.registry.FindMatch(input.Group, fingerprint, input.StudentID)
	if hasMatch {
		logger.Info().Str("matching_student_id", matched).Msg("identical submission found in session registry")
	}

	var previous *models.GradingResult
	if existing, found, err := s.archive.FindByStudentAndGroup(ctx, input.StudentID, input.Group); err != nil {
		logger.Warn().Err(err).Msg("failed to check archive for an earlier result")
	} else if found && existing.ID != replaceID {
		logger.Info().Str("result_id", existing.ID).Msg("student already has an archived result in this group")
		previous = &existing
	}

	language := ai.NormalizeLanguage(firstNonEmpty(input.Language, settings.Language))
	policies := GradingPolicies{
		Strictness:            settings.Strictness,
		PlagiarismSensitivity: settings.PlagiarismSensitivity,
		CustomInstructions:    settings.CustomInstructions,
	}
	if input.Policies != nil {
		policies.Strictness = firstNonEmpty(input.Policies.Strictness, policies.Strictness)
		policies.PlagiarismSensitivity = firstNonEmpty(input.Policies.PlagiarismSensitivity, policies.PlagiarismSensitivity)
		policies.CustomInstructions = firstNonEmpty(input.Policies.CustomInstructions, policies.CustomInstructions)
	}

	prompt := ai.BuildPrompt(ai.PromptOptions{
		StudentID:             input.StudentID,
		Group:                 input.Group,
		TotalMarks:            input.TotalMarks,
		Strictness:            policies.Strictness,
		PlagiarismSensitivity: policies.PlagiarismSensitivity,
		CustomInstructions:    policies.CustomInstructions,
		MatchingStudentID:     matched,
		HasReference:          len(references) > 0 || strings.TrimSpace(input.ReferenceText) != "",
		ReferenceText:         input.ReferenceText,
		Language:              language,
	})

	cycle.transition(StateAwaitingExternalResult)
	request := ai.GradingRequest{
		APIKey:      apiKey,
		Instruction: prompt,
		Attachments: append(append([]ai.Attachment(nil), attachments...), references...),
	}
	raw, err := withRetry(ctx, retryPolicy{
		attempts:  s.config.MaxAttempts,
		delay:     s.config.RetryDelay,
		retryable: func(err error) bool { return errors.Is(err, ai.ErrRateLimited) },
		sleep:     s.sleep,
		onRetry: func(attempt int, err error) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", s.config.RetryDelay).Msg("grading provider rate limited, retrying")
		},
	}, func(ctx context.Context, attempt int) (string, error) {
		observability.GradingAttempts().WithLabelValues(s.grader.Name()).Inc()
		return s.grader.Grade(ctx, request)
	})
	if err != nil {
		return fail(classifyProviderError(err))
	}

	cycle.transition(StateNormalizing)
	payload, err := ai.ParseGradingResponse(raw)
	if err != nil {
		return fail(newGradingError(KindResponseParseError, err))
	}
	result := s.normalize(payload, input, fingerprint, language, matched, logger)
	if replaceID != "" {
		result.ID = replaceID
	}

	cycle.transition(StateReconciling)
	outcome, err := s.reconcile(ctx, result, input, matched, settings.AutoArchive || replaceID != "", replaceID, language, logger)
	if err != nil {
		return fail(newGradingError(KindUnexpectedFailure, err))
	}
	outcome.PreviousResult = previous

	cycle.transition(StateDone)
	observability.GradingCycles().WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Float64("grading.score", result.Score), attribute.Bool("grading.duplicate", hasMatch))

	s.publish(ctx, GradingEvent{Type: EventGradingCompleted, ResultID: result.ID, StudentID: result.StudentID, Group: result.Group, Result: &outcome.Result})
	if outcome.Penalty != nil {
		penalized := outcome.Penalty.Penalized
		s.publish(ctx, GradingEvent{Type: EventPenaltyApplied, ResultID: penalized.ID, StudentID: penalized.StudentID, Group: penalized.Group, Result: &penalized})
	}

	return outcome, nil
}

// normalize converts the provider payload into a result. The score is always the
// sum of the awarded marks and the total marks are always the requested ones.
func (s *gradingService) normalize(payload ai.GradingPayload, input GradeInput, fingerprint, language, matched string, logger zerolog.Logger) models.GradingResult {
	feedback := make([]models.FeedbackItem, 0, len(payload.DetailedFeedback))
	var awarded float64
	for _, item := range payload.DetailedFeedback {
		feedback = append(feedback, models.FeedbackItem{
			Question:      item.Question,
			StudentAnswer: item.StudentAnswer,
			IdealAnswer:   item.IdealAnswer,
			Evaluation:    item.Evaluation,
			MarksAwarded:  item.MarksAwarded,
			MaxMarks:      item.MaxMarks,
		})
		awarded += item.MarksAwarded
	}

	if math.Abs(payload.Score-awarded) > scoreTolerance {
		observability.ScoreDiscrepancies().Inc()
		logger.Warn().Float64("reported_score", payload.Score).Float64("computed_score", awarded).Msg("reported score differs from awarded marks, using the sum")
	}
	if payload.TotalMarks != nil && math.Abs(*payload.TotalMarks-input.TotalMarks) > scoreTolerance {
		logger.Debug().Float64("reported_total", *payload.TotalMarks).Float64("requested_total", input.TotalMarks).Msg("ignoring total marks reported by the provider")
	}

	sources := make([]models.PlagiarismSource, 0, len(payload.IntegrityAnalysis.PlagiarismSources))
	for _, source := range payload.IntegrityAnalysis.PlagiarismSources {
		sources = append(sources, models.PlagiarismSource{
			SourceURL:    source.SourceURL,
			OriginalText: source.OriginalText,
			StudentText:  source.StudentText,
		})
	}
	integrity := models.IntegrityAnalysis{
		Detected:          payload.IntegrityAnalysis.Detected,
		AIGenerated:       payload.IntegrityAnalysis.AIGenerated,
		Reasoning:         payload.IntegrityAnalysis.Reasoning,
		PlagiarismSources: sources,
	}
	if matched != "" {
		integrity.Detected = true
		integrity.Reasoning = ai.DuplicateReasoning(language, matched)
		if awarded != 0 {
			logger.Warn().Float64("computed_score", awarded).Msg("provider awarded marks to a duplicate submission")
		}
	}

	now := s.now().UTC()
	submittedAt := now
	if input.SubmittedAt != nil && !input.SubmittedAt.IsZero() {
		submittedAt = input.SubmittedAt.UTC()
	}

	return models.GradingResult{
		ID:               s.newID(),
		StudentID:        input.StudentID,
		StudentName:      strings.TrimSpace(payload.StudentName),
		Group:            input.Group,
		Score:            awarded,
		TotalMarks:       input.TotalMarks,
		Integrity:        integrity,
		Strengths:        nonNilStrings(payload.Strengths),
		Weaknesses:       nonNilStrings(payload.Weaknesses),
		DetailedFeedback: feedback,
		Fingerprint:      fingerprint,
		Language:         language,
		CreatedAt:        now,
		SubmittedAt:      submittedAt,
	}
}

// reconcile applies the duplicate penalty, archives the new result and records the
// submission. Nothing is mutated when an archive write fails.
func (s *gradingService) reconcile(ctx context.Context, result models.GradingResult, input GradeInput, matched string, archive bool, replaceID, language string, logger zerolog.Logger) (GradeOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := GradeOutcome{Result: result, MatchedStudentID: matched}

	var penalty *PenaltyTransaction
	if matched != "" {
		prior, found, err := s.archive.FindDuplicateSource(ctx, matched, input.Group, result.Fingerprint)
		if err != nil {
			return GradeOutcome{}, err
		}
		if found {
			penalized := applyPenalty(prior, ai.PenaltyReasoning(language, input.StudentID))
			if _, err := s.archive.Replace(ctx, prior.ID, penalized); err != nil {
				return GradeOutcome{}, fmt.Errorf("apply penalty: %w", err)
			}
			penalty = &PenaltyTransaction{Original: prior, Penalized: penalized, CreatedAt: s.now().UTC()}
			logger.Info().Str("penalized_student_id", prior.StudentID).Str("result_id", prior.ID).Msg("zeroed archived result of duplicate submission")
		} else {
			logger.Info().Str("matching_student_id", matched).Msg("matching student has no archived result to penalize")
		}
		observability.DuplicateDetections().WithLabelValues(fmt.Sprint(found)).Inc()
	}

	if archive {
		var err error
		if replaceID != "" {
			_, err = s.archive.Replace(ctx, replaceID, result)
		} else {
			err = s.archive.Append(ctx, result)
		}
		if err != nil {
			if penalty != nil {
				if _, rollbackErr := s.archive.Replace(ctx, penalty.Original.ID, penalty.Original); rollbackErr != nil {
					logger.Error().Err(rollbackErr).Str("result_id", penalty.Original.ID).Msg("failed to roll back penalty")
				}
			}
			return GradeOutcome{}, fmt.Errorf("archive result: %w", err)
		}
		outcome.Archived = true
	}

	s.registry.RecordIfAbsent(input.Group, input.StudentID, result.Fingerprint)

	if penalty != nil {
		observability.PenaltyTransitions().WithLabelValues("applied").Inc()
	}
	s.pending = penalty
	outcome.Penalty = penalty
	return outcome, nil
}

func (s *gradingService) Restore(ctx context.Context) (models.GradingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return models.GradingResult{}, ErrNoPendingPenalty
	}
	original := s.pending.Original

	replaced, err := s.archive.Replace(ctx, original.ID, original)
	if err != nil {
		return models.GradingResult{}, fmt.Errorf("restore penalty: %w", err)
	}
	s.pending = nil
	if !replaced {
		return models.GradingResult{}, ErrResultNotFound
	}

	observability.PenaltyTransitions().WithLabelValues("restored").Inc()
	s.logger.Info().Str("result_id", original.ID).Str("student_id", original.StudentID).Msg("restored penalized result")
	s.publish(ctx, GradingEvent{Type: EventPenaltyRestored, ResultID: original.ID, StudentID: original.StudentID, Group: original.Group, Result: &original})
	return original, nil
}

func (s *gradingService) PendingPenalty() *PenaltyTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	clone := PenaltyTransaction{
		Original:  s.pending.Original.Clone(),
		Penalized: s.pending.Penalized.Clone(),
		CreatedAt: s.pending.CreatedAt,
	}
	return &clone
}

func (s *gradingService) LookupExisting(ctx context.Context, studentID, group string) (*models.GradingResult, error) {
	existing, found, err := s.archive.FindByStudentAndGroup(ctx, studentID, group)
	if err != nil || !found {
		return nil, err
	}
	return &existing, nil
}

func (s *gradingService) ListResults(ctx context.Context, group string) ([]models.GradingResult, error) {
	results, err := s.archive.List(ctx)
	if err != nil {
		return nil, err
	}
	group = strings.TrimSpace(group)
	if group == "" {
		return results, nil
	}
	filtered := make([]models.GradingResult, 0, len(results))
	for _, result := range results {
		if strings.EqualFold(strings.TrimSpace(result.Group), group) {
			filtered = append(filtered, result)
		}
	}
	return filtered, nil
}

func (s *gradingService) GetResult(ctx context.Context, id string) (models.GradingResult, error) {
	return s.archive.Get(ctx, id)
}

func (s *gradingService) DeleteResult(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.archive.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrResultNotFound
	}
	if s.pending != nil && (s.pending.Original.ID == id) {
		s.pending = nil
	}
	s.publish(ctx, GradingEvent{Type: EventResultRemoved, ResultID: id})
	return nil
}

func (s *gradingService) ClearArchive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.archive.Clear(ctx); err != nil {
		return err
	}
	s.registry.Reset()
	s.pending = nil
	s.logger.Info().Msg("archive cleared and session registry reset")
	s.publish(ctx, GradingEvent{Type: EventArchiveCleared})
	return nil
}

func (s *gradingService) clearPending() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

func (s *gradingService) publish(ctx context.Context, event GradingEvent) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, event)
}

func (s *gradingService) sanitizeInput(input GradeInput) GradeInput {
	input.StudentID = s.stripMarkup(input.StudentID)
	input.Group = s.stripMarkup(input.Group)
	if input.Policies != nil {
		policies := *input.Policies
		policies.CustomInstructions = s.stripMarkup(policies.CustomInstructions)
		input.Policies = &policies
	}
	return input
}

// stripMarkup removes tags but keeps the plain text as typed, so identifiers such as
// O'Brien are stored and matched unescaped.
func (s *gradingService) stripMarkup(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

// acceptedByGrader rejects attachments the configured grader cannot take before any
// provider call is made.
func acceptedByGrader(grader ai.Grader, groups ...[]ai.Attachment) error {
	checker, ok := grader.(ai.AttachmentChecker)
	if !ok {
		return nil
	}
	for _, group := range groups {
		for _, attachment := range group {
			if !checker.SupportsAttachment(attachment.MimeType) {
				return fmt.Errorf("%s (%s) cannot be graded by %s: %w", attachment.Name, attachment.MimeType, grader.Name(), ErrUnsupportedFileType)
			}
		}
	}
	return nil
}

// applyPenalty zeroes every mark and replaces the integrity verdict.
func applyPenalty(result models.GradingResult, reasoning string) models.GradingResult {
	penalized := result.Clone()
	penalized.Score = 0
	for i := range penalized.DetailedFeedback {
		penalized.DetailedFeedback[i].MarksAwarded = 0
	}
	penalized.Integrity = models.IntegrityAnalysis{Detected: true, Reasoning: reasoning}
	return penalized
}

func validateInput(input GradeInput) error {
	switch {
	case input.StudentID == "":
		return fmt.Errorf("%w: student id is required", ErrInvalidSubmission)
	case input.Group == "":
		return fmt.Errorf("%w: group is required", ErrInvalidSubmission)
	case input.TotalMarks <= 0:
		return fmt.Errorf("%w: total marks must be positive", ErrInvalidSubmission)
	case len(input.Files) == 0:
		return ErrNoSubmissionFiles
	}
	return nil
}

// fileError keeps input problems as plain errors and wraps read failures.
func fileError(err error) error {
	if errors.Is(err, ErrUnsupportedFileType) || errors.Is(err, ErrFileTooLarge) {
		return err
	}
	return newGradingError(KindUnexpectedFailure, err)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
