package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

func TestGradingHandlerGradesSubmission(t *testing.T) {
	server := newTestServer(t, "key")
	server.grader.responses = []string{answer(t, 10, 8, 12, 10)}

	fields := gradeFields("s-1")
	fields["submitted_at"] = "2024-05-01T08:00:00Z"
	status, body := server.do(t, multipartRequest(t, http.MethodPost, "/api/v1/grading", fields, pngPart("files", "page.png", "answers")))
	require.Equal(t, fiber.StatusCreated, status)
	require.True(t, body.Success)

	var response dto.GradingResponse
	require.NoError(t, json.Unmarshal(body.Data, &response))
	require.Equal(t, 40.0, response.Result.Score)
	require.Equal(t, 40.0, response.Result.TotalMarks)
	require.Equal(t, 100.0, response.Percentage)
	require.Equal(t, "s-1", response.Result.StudentID)
	require.True(t, response.Archived)

	status, body = server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/archive?group=A", nil))
	require.Equal(t, fiber.StatusOK, status)
	var list dto.ArchiveListResponse
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Equal(t, 1, list.Total)
}

func TestGradingHandlerReportsErrorKind(t *testing.T) {
	server := newTestServer(t, "")

	status, body := server.do(t, multipartRequest(t, http.MethodPost, "/api/v1/grading", gradeFields("s-1"), pngPart("files", "page.png", "answers")))
	require.Equal(t, fiber.StatusPreconditionFailed, status)
	require.False(t, body.Success)
	require.Equal(t, "credential_missing", body.ErrorKind)
	require.Zero(t, server.grader.calls)
}

func TestGradingHandlerRateLimitKind(t *testing.T) {
	server := newTestServer(t, "key")
	server.grader.errs = []error{ai.ErrRateLimited, ai.ErrRateLimited, ai.ErrRateLimited}

	status, body := server.do(t, multipartRequest(t, http.MethodPost, "/api/v1/grading", gradeFields("s-1"), pngPart("files", "page.png", "answers")))
	require.Equal(t, fiber.StatusTooManyRequests, status)
	require.Equal(t, "rate_limited", body.ErrorKind)
	require.NotContains(t, body.Message, ai.ErrRateLimited.Error())
	require.Equal(t, 3, server.grader.calls)
}

func TestGradingHandlerValidatesInput(t *testing.T) {
	server := newTestServer(t, "key")

	status, body := server.do(t, multipartRequest(t, http.MethodPost, "/api/v1/grading", map[string]string{"group": "A", "total_marks": "40"}, pngPart("files", "page.png", "x")))
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "required", body.Details["student_id"])

	status, _ = server.do(t, multipartRequest(t, http.MethodPost, "/api/v1/grading", gradeFields("s-1")))
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = server.do(t, multipartRequest(t, http.MethodPost, "/api/v1/grading", gradeFields("s-1"),
		pngPart("files", "1.png", "1"), pngPart("files", "2.png", "2"), pngPart("reference_files", "3.png", "3"), pngPart("reference_files", "4.png", "4")))
	require.Equal(t, fiber.StatusBadRequest, status)

	fields := gradeFields("s-1")
	fields["submitted_at"] = "yesterday"
	status, _ = server.do(t, multipartRequest(t, http.MethodPost, "/api/v1/grading", fields, pngPart("files", "page.png", "x")))
	require.Equal(t, fiber.StatusBadRequest, status)

	status, body = server.do(t, multipartRequest(t, http.MethodPost, "/api/v1/grading", gradeFields("s-1"), uploadPart{field: "files", filename: "notes.txt", content: []byte("plain")}))
	require.Equal(t, fiber.StatusBadRequest, status)
	require.True(t, strings.Contains(body.Message, "PDF"))
	require.Zero(t, server.grader.calls)
}

func TestGradingHandlerPenaltyAndRestore(t *testing.T) {
	server := newTestServer(t, "key")
	server.grader.responses = []string{answer(t, 30), answer(t, 0)}

	status, body := server.do(t, multipartRequest(t, http.MethodPost, "/api/v1/grading", gradeFields("a"), pngPart("files", "sheet.png", "same")))
	require.Equal(t, fiber.StatusCreated, status)
	var first dto.GradingResponse
	require.NoError(t, json.Unmarshal(body.Data, &first))

	status, _ = server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/grading/penalty", nil))
	require.Equal(t, fiber.StatusNotFound, status)

	status, body = server.do(t, multipartRequest(t, http.MethodPost, "/api/v1/grading", gradeFields("b"), pngPart("files", "sheet.png", "same")))
	require.Equal(t, fiber.StatusCreated, status)
	var second dto.GradingResponse
	require.NoError(t, json.Unmarshal(body.Data, &second))
	require.Equal(t, "a", second.MatchedStudentID)
	require.NotNil(t, second.Penalty)

	status, body = server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/archive/"+first.Result.ID, nil))
	require.Equal(t, fiber.StatusOK, status)
	var penalized models.GradingResult
	require.NoError(t, json.Unmarshal(body.Data, &penalized))
	require.Zero(t, penalized.Score)

	status, _ = server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/grading/penalty", nil))
	require.Equal(t, fiber.StatusOK, status)

	status, body = server.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/grading/restore", nil))
	require.Equal(t, fiber.StatusOK, status)
	var restored models.GradingResult
	require.NoError(t, json.Unmarshal(body.Data, &restored))
	require.Equal(t, 30.0, restored.Score)

	status, _ = server.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/grading/restore", nil))
	require.Equal(t, fiber.StatusConflict, status)
}
