package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type stubResponse struct {
	content string
	err     error
}

type stubGrader struct {
	mu        sync.Mutex
	responses []stubResponse
	requests  []ai.GradingRequest
}

func (g *stubGrader) Grade(ctx context.Context, req ai.GradingRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if len(g.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	next := g.responses[0]
	g.responses = g.responses[1:]
	return next.content, next.err
}

func (g *stubGrader) Name() string { return "stub" }

func (g *stubGrader) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *stubGrader) script(responses ...stubResponse) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, responses...)
}

func respond(content string) stubResponse { return stubResponse{content: content} }

func respondErr(err error) stubResponse { return stubResponse{err: err} }

func gradingResponse(t *testing.T, name string, reported float64, marks ...float64) string {
	t.Helper()
	payload := ai.GradingPayload{
		StudentName:       name,
		StudentID:         "from-provider",
		Score:             reported,
		IntegrityAnalysis: ai.IntegrityPayload{Reasoning: "original work"},
		Strengths:         []string{"clear structure"},
		Weaknesses:        []string{},
		DetailedFeedback:  []ai.FeedbackPayload{},
	}
	for i, mark := range marks {
		payload.DetailedFeedback = append(payload.DetailedFeedback, ai.FeedbackPayload{
			Question:      fmt.Sprintf("Question %d", i+1),
			StudentAnswer: "answer",
			IdealAnswer:   "ideal",
			Evaluation:    "fine",
			MarksAwarded:  mark,
			MaxMarks:      15,
		})
	}
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	return "Here is the evaluation:\n```json\n" + string(encoded) + "\n```"
}

func pngFile(name, content string) BytesFile {
	return BytesFile{FileName: name, Data: append([]byte("\x89PNG\r\n\x1a\n"), content...)}
}

type countingFile struct {
	BytesFile
	opens int
}

func (f *countingFile) Open() (io.ReadCloser, error) {
	f.opens++
	return f.BytesFile.Open()
}

type gradingFixture struct {
	service  GradingService
	grader   *stubGrader
	archive  *ResultArchive
	store    repository.KeyValueRepository
	settings SettingsService
	registry *SubmissionRegistry
	states   []GradingState
	sleeps   []time.Duration
}

func newGradingFixture(t *testing.T, fallbackKey string) *gradingFixture {
	t.Helper()
	store := repository.NewMemoryKeyValueRepository()
	f := &gradingFixture{
		grader:   &stubGrader{},
		archive:  NewResultArchive(store),
		store:    store,
		settings: NewSettingsService(store, validator.New(), fallbackKey, testLogger()),
		registry: NewSubmissionRegistry(),
	}

	svc := NewGradingService(f.grader, f.archive, f.registry, f.settings, nil, GradingServiceConfig{
		MaxAttempts:  3,
		RetryDelay:   2 * time.Second,
		MaxFileBytes: 1 << 20,
		OnTransition: func(state GradingState) { f.states = append(f.states, state) },
	}, testLogger())

	impl := svc.(*gradingService)
	impl.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	counter := 0
	impl.newID = func() string {
		counter++
		return fmt.Sprintf("result-%d", counter)
	}
	impl.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	f.service = svc
	return f
}

func gradeInput(studentID, group string, files ...SubmissionFile) GradeInput {
	return GradeInput{StudentID: studentID, Group: group, TotalMarks: 50, Files: files}
}
