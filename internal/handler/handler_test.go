package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

type scriptedGrader struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (g *scriptedGrader) Grade(ctx context.Context, req ai.GradingRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func (g *scriptedGrader) Name() string { return "scripted" }

func answer(t *testing.T, marks ...float64) string {
	t.Helper()
	payload := ai.GradingPayload{
		StudentName:       "Ana",
		StudentID:         "x",
		IntegrityAnalysis: ai.IntegrityPayload{Reasoning: "original"},
		Strengths:         []string{"neat"},
		Weaknesses:        []string{},
		DetailedFeedback:  []ai.FeedbackPayload{},
	}
	for _, mark := range marks {
		payload.Score += mark
		payload.DetailedFeedback = append(payload.DetailedFeedback, ai.FeedbackPayload{
			Question: "q", StudentAnswer: "a", IdealAnswer: "i", Evaluation: "e", MarksAwarded: mark, MaxMarks: 10,
		})
	}
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(encoded)
}

type testServer struct {
	app    *fiber.App
	grader *scriptedGrader
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	logger := zerolog.New(io.Discard)
	validate := validator.New()
	store := repository.NewMemoryKeyValueRepository()

	grader := &scriptedGrader{}
	archive := service.NewResultArchive(store)
	settings := service.NewSettingsService(store, validate, apiKey, logger)
	events := service.NewEventPublisher(nil, nil, "", logger)
	grading := service.NewGradingService(grader, archive, service.NewSubmissionRegistry(), settings, events, service.GradingServiceConfig{
		MaxAttempts:  3,
		RetryDelay:   time.Millisecond,
		MaxFileBytes: 1 << 20,
	}, logger)
	analytics := service.NewAnalyticsService(archive, nil, time.Minute, logger)

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Get("/health", HealthCheck(config.Config{AppName: "grader", AppEnv: "test"}))
	NewGradingHandler(grading, validate, 3, logger).Register(api.Group("/grading"))
	NewArchiveHandler(grading, validate, 3, logger).Register(api.Group("/archive"), nil)
	NewSettingsHandler(settings, logger).Register(api.Group("/settings"), nil)
	NewAnalyticsHandler(analytics, logger).Register(api.Group("/analytics"))

	return &testServer{app: app, grader: grader}
}

type uploadPart struct {
	field    string
	filename string
	content  []byte
}

func pngPart(field, name, content string) uploadPart {
	return uploadPart{field: field, filename: name, content: append([]byte("\x89PNG\r\n\x1a\n"), content...)}
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, parts ...uploadPart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, part := range parts {
		fw, err := writer.CreateFormFile(part.field, part.filename)
		require.NoError(t, err)
		_, err = fw.Write(part.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	ErrorKind string          `json:"error_kind"`
	Details   map[string]string `json:"details"`
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func gradeFields(studentID string) map[string]string {
	return map[string]string{"student_id": studentID, "group": "A", "total_marks": "40"}
}
