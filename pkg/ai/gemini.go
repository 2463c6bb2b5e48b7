package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// GeminiConfig defines configuration options for the Gemini grader.
type GeminiConfig struct {
	Model       string
	Temperature float32
	// WebSearch enables Google Search grounding for the plagiarism check. Grounded
	// answers cannot use a JSON response MIME type, so the answer is parsed from text.
	WebSearch bool
	Logger    zerolog.Logger
}

// GeminiGrader implements Grader against the Gemini generateContent API.
type GeminiGrader struct {
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiGrader builds a grader for the Gemini API.
func NewGeminiGrader(cfg GeminiConfig) *GeminiGrader {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	return &GeminiGrader{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-grader/pkg/ai/gemini"),
		logger: cfg.Logger.With().Str("component", "gemini_grader").Logger(),
	}
}

// Name identifies the provider in logs and metrics.
func (g *GeminiGrader) Name() string { return "gemini" }

// Grade sends the instruction followed by every attachment as inline data.
func (g *GeminiGrader) Grade(parent context.Context, req GradingRequest) (string, error) {
	ctx, span := g.tracer.Start(parent, "gemini.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("attachments", len(req.Attachments)),
	))
	defer span.End()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  req.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("create gemini client: %w", err)
	}

	parts := make([]*genai.Part, 0, len(req.Attachments)+1)
	parts = append(parts, genai.NewPartFromText(req.Instruction))
	for _, attachment := range req.Attachments {
		parts = append(parts, genai.NewPartFromBytes(attachment.Data, attachment.MimeType))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.cfg.Temperature),
	}
	if g.cfg.WebSearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, g.cfg.Model, []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, config)
	if err != nil {
		err = classifyGeminiError(err)
	}
	observeCall(g.Name(), g.cfg.Model, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("gemini grade: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		span.SetStatus(codes.Error, "prompt blocked")
		return "", fmt.Errorf("gemini grade: %w: %s", ErrContentRejected, resp.PromptFeedback.BlockReason)
	}
	for _, candidate := range resp.Candidates {
		if candidate != nil && candidate.FinishReason == genai.FinishReasonSafety {
			span.SetStatus(codes.Error, "candidate blocked")
			return "", fmt.Errorf("gemini grade: %w", ErrContentRejected)
		}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		err := errors.New("gemini returned an empty answer")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if resp.UsageMetadata != nil {
		g.logger.Debug().
			Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount).
			Int32("candidate_tokens", resp.UsageMetadata.CandidatesTokenCount).
			Msg("gemini grading completed")
	}
	return text, nil
}

func classifyGeminiError(err error) error {
	code := 0
	status := ""
	message := ""
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, status, message = apiErr.Code, apiErr.Status, apiErr.Message
	case errors.As(err, &apiErrPtr):
		code, status, message = apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message
	default:
		return err
	}

	message = strings.ToLower(message)
	switch {
	case code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden || status == "PERMISSION_DENIED" ||
		status == "UNAUTHENTICATED" || strings.Contains(message, "api key not valid"):
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	case code == http.StatusRequestEntityTooLarge || strings.Contains(message, "payload size exceeds") ||
		strings.Contains(message, "request payload size"):
		return fmt.Errorf("%w: %v", ErrPayloadTooLarge, err)
	case strings.Contains(message, "safety") || strings.Contains(message, "blocked"):
		return fmt.Errorf("%w: %v", ErrContentRejected, err)
	default:
		return err
	}
}
