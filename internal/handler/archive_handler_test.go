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
)

func gradeOne(t *testing.T, server *testServer, studentID, content string) dto.GradingResponse {
	t.Helper()
	status, body := server.do(t, multipartRequest(t, http.MethodPost, "/api/v1/grading", gradeFields(studentID), pngPart("files", "sheet.png", content)))
	require.Equal(t, fiber.StatusCreated, status)
	var response dto.GradingResponse
	require.NoError(t, json.Unmarshal(body.Data, &response))
	return response
}

func TestArchiveHandlerLookupAndDelete(t *testing.T) {
	server := newTestServer(t, "key")
	server.grader.responses = []string{answer(t, 20), answer(t, 25)}

	first := gradeOne(t, server, "a", "one")
	gradeOne(t, server, "b", "two")

	status, body := server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/archive/lookup?student_id=A&group=a", nil))
	require.Equal(t, fiber.StatusOK, status)
	var found models.GradingResult
	require.NoError(t, json.Unmarshal(body.Data, &found))
	require.Equal(t, first.Result.ID, found.ID)

	status, _ = server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/archive/lookup?student_id=z&group=A", nil))
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/archive/lookup", nil))
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = server.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/archive/"+first.Result.ID, nil))
	require.Equal(t, fiber.StatusOK, status)

	status, _ = server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/archive/"+first.Result.ID, nil))
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = server.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/archive", nil))
	require.Equal(t, fiber.StatusOK, status)

	status, body = server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/archive", nil))
	require.Equal(t, fiber.StatusOK, status)
	var list dto.ArchiveListResponse
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Zero(t, list.Total)
}

func TestArchiveHandlerRegrade(t *testing.T) {
	server := newTestServer(t, "key")
	server.grader.responses = []string{answer(t, 20), answer(t, 35)}

	first := gradeOne(t, server, "a", "one")

	status, body := server.do(t, multipartRequest(t, http.MethodPut, "/api/v1/archive/"+first.Result.ID+"/regrade",
		map[string]string{"strictness": "lenient"}, pngPart("files", "sheet.png", "one")))
	require.Equal(t, fiber.StatusOK, status)
	var regraded dto.GradingResponse
	require.NoError(t, json.Unmarshal(body.Data, &regraded))
	require.Equal(t, first.Result.ID, regraded.Result.ID)
	require.Equal(t, 35.0, regraded.Result.Score)

	status, _ = server.do(t, multipartRequest(t, http.MethodPut, "/api/v1/archive/missing/regrade", nil, pngPart("files", "sheet.png", "one")))
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestSettingsHandlerHidesKey(t *testing.T) {
	server := newTestServer(t, "")

	status, body := server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
	require.Equal(t, fiber.StatusOK, status)
	var settings dto.SettingsResponse
	require.NoError(t, json.Unmarshal(body.Data, &settings))
	require.False(t, settings.APIKeyConfigured)
	require.Equal(t, "moderate", settings.Strictness)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(`{"api_key":"secret","plagiarism_sensitivity":"high"}`))
	req.Header.Set("Content-Type", "application/json")
	status, body = server.do(t, req)
	require.Equal(t, fiber.StatusOK, status)
	require.NotContains(t, string(body.Data), "secret")
	require.NoError(t, json.Unmarshal(body.Data, &settings))
	require.True(t, settings.APIKeyConfigured)
	require.Equal(t, "high", settings.PlagiarismSensitivity)

	req = httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(`{"strictness":"harsh"}`))
	req.Header.Set("Content-Type", "application/json")
	status, body = server.do(t, req)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "oneof", body.Details["strictness"])
}

func TestAnalyticsHandlerSummary(t *testing.T) {
	server := newTestServer(t, "key")
	server.grader.responses = []string{answer(t, 20), answer(t, 40)}
	gradeOne(t, server, "a", "one")
	gradeOne(t, server, "b", "two")

	status, body := server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?group=A", nil))
	require.Equal(t, fiber.StatusOK, status)
	var summary dto.AnalyticsSummaryResponse
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	require.Equal(t, 2, summary.TotalResults)
	require.Equal(t, 75.0, summary.AveragePercentage)
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t, "")

	status, body := server.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, fiber.StatusOK, status)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(body.Data, &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "grader", health.Service)
}
