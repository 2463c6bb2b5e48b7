package performance_test

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/database"
	"github.com/noah-isme/gema-grader/internal/handler"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/service"
)

func setupAnalyticsPerformanceApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := database.ConnectSQLite("file:analytics_perf?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	archive := service.NewResultArchive(repository.NewGormKeyValueRepository(db))
	now := time.Now().UTC()
	for i := 0; i < 300; i++ {
		result := models.GradingResult{
			ID:         fmt.Sprintf("result-%d", i),
			StudentID:  fmt.Sprintf("student-%d", i),
			Group:      fmt.Sprintf("group-%d", i%6),
			Score:      float64(i % 51),
			TotalMarks: 50,
			DetailedFeedback: []models.FeedbackItem{
				{Question: "1", StudentAnswer: "a", IdealAnswer: "b", Evaluation: "c", MarksAwarded: float64(i % 51), MaxMarks: 50},
			},
			CreatedAt:   now,
			SubmittedAt: now,
		}
		require.NoError(t, archive.Append(context.Background(), result))
	}

	analyticsService := service.NewAnalyticsService(archive, nil, 0, zerolog.Nop())
	app := fiber.New()
	handler.NewAnalyticsHandler(analyticsService, zerolog.Nop()).Register(app.Group("/api/v1/analytics"))
	return app
}

func TestAnalyticsP95LatencyBelow250ms(t *testing.T) {
	app := setupAnalyticsPerformanceApp(t)

	runs := 40
	durations := make([]time.Duration, 0, runs)

	for i := 0; i < runs; i++ {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/analytics?group=group-%d", i%6), nil)
		start := time.Now()
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	index := int(math.Ceil(0.95*float64(len(durations)))) - 1
	require.Less(t, durations[index], 250*time.Millisecond)
}
