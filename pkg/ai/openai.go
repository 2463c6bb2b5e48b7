package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig defines configuration options for the OpenAI grader.
type OpenAIConfig struct {
	Model       string
	MaxTokens   int
	Temperature float32
	BaseURL     string
	Logger      zerolog.Logger
}

// OpenAIGrader implements Grader against the OpenAI chat completion API.
type OpenAIGrader struct {
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a new grader using the provided configuration. The API key
// travels with each request so it can be changed at runtime.
func NewOpenAIGrader(cfg OpenAIConfig) *OpenAIGrader {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	return &OpenAIGrader{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-grader/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_grader").Logger(),
	}
}

// Name identifies the provider in logs and metrics.
func (g *OpenAIGrader) Name() string { return "openai" }

// SupportsAttachment reports whether the chat completion API accepts the type. Only
// images can be sent as message parts.
func (g *OpenAIGrader) SupportsAttachment(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// Grade sends the instruction and the image attachments as one user message.
func (g *OpenAIGrader) Grade(parent context.Context, req GradingRequest) (string, error) {
	ctx, span := g.tracer.Start(parent, "openai.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("attachments", len(req.Attachments)),
	))
	defer span.End()

	parts := make([]openai.ChatMessagePart, 0, len(req.Attachments)+1)
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: req.Instruction})
	for _, attachment := range req.Attachments {
		if !g.SupportsAttachment(attachment.MimeType) {
			err := fmt.Errorf("openai grader: %w: %s", ErrUnsupportedAttachment, attachment.MimeType)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:" + attachment.MimeType + ";base64," + base64.StdEncoding.EncodeToString(attachment.Data),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	config := openai.DefaultConfig(req.APIKey)
	if g.cfg.BaseURL != "" {
		config.BaseURL = g.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(config)

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
	if err != nil {
		err = classifyOpenAIError(err)
	}
	observeCall(g.Name(), g.cfg.Model, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai grade: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := errors.New("no choices returned from openai")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		span.SetStatus(codes.Error, "content filtered")
		return "", fmt.Errorf("openai grade: %w", ErrContentRejected)
	}

	g.logger.Debug().Int("prompt_tokens", resp.Usage.PromptTokens).Int("completion_tokens", resp.Usage.CompletionTokens).Msg("openai grading completed")
	return strings.TrimSpace(choice.Message.Content), nil
}

func classifyOpenAIError(err error) error {
	status := 0
	code := ""
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		code = strings.ToLower(fmt.Sprint(apiErr.Code))
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden || code == "invalid_api_key":
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	case status == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %v", ErrPayloadTooLarge, err)
	case strings.Contains(code, "content_policy") || strings.Contains(code, "content_filter"):
		return fmt.Errorf("%w: %v", ErrContentRejected, err)
	default:
		return err
	}
}
