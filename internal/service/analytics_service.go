package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/models"
)

const analyticsCachePrefix = "analytics:summary:"

var scoreBuckets = []dto.ScoreBucketResponse{
	{Label: "0-49", Min: 0, Max: 49.99},
	{Label: "50-69", Min: 50, Max: 69.99},
	{Label: "70-84", Min: 70, Max: 84.99},
	{Label: "85-100", Min: 85, Max: 100},
}

// AnalyticsService aggregates archived grading results.
type AnalyticsService interface {
	GetSummary(ctx context.Context, group string) (dto.AnalyticsSummaryResponse, error)
	// Start drops cached summaries whenever the archive changes.
	Start(ctx context.Context, events EventPublisher)
}

type analyticsService struct {
	archive  *ResultArchive
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAnalyticsService constructs the analytics service. cache may be nil.
func NewAnalyticsService(archive *ResultArchive, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AnalyticsService {
	return &analyticsService{
		archive:  archive,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "analytics_service").Logger(),
		now:      time.Now,
	}
}

func (s *analyticsService) GetSummary(ctx context.Context, group string) (dto.AnalyticsSummaryResponse, error) {
	group = strings.TrimSpace(group)
	cacheKey := analyticsCachePrefix + groupKey(group)
	tracer := otel.Tracer("github.com/noah-isme/gema-grader/internal/service/analytics")
	ctx, span := tracer.Start(ctx, "analytics.aggregate")
	span.SetAttributes(attribute.String("analytics.cache_key", cacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.AnalyticsSummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
			span.RecordError(err)
		}
	}

	results, err := s.archive.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_results_failed")
		return dto.AnalyticsSummaryResponse{}, err
	}

	summary := s.buildSummary(group, results)
	span.SetAttributes(attribute.Int("analytics.result_count", summary.TotalResults))

	if s.cache != nil {
		payload, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store analytics cache")
				span.RecordError(err)
			}
		}
	}

	return summary, nil
}

func (s *analyticsService) buildSummary(group string, results []models.GradingResult) dto.AnalyticsSummaryResponse {
	distribution := make([]dto.ScoreBucketResponse, len(scoreBuckets))
	copy(distribution, scoreBuckets)

	summary := dto.AnalyticsSummaryResponse{
		Group:        group,
		Distribution: distribution,
		GeneratedAt:  s.now().UTC(),
	}

	var scoreSum, percentageSum float64
	for _, result := range results {
		if group != "" && !strings.EqualFold(strings.TrimSpace(result.Group), group) {
			continue
		}
		percentage := result.Percentage()

		if summary.TotalResults == 0 {
			summary.HighestPercentage = percentage
			summary.LowestPercentage = percentage
		}
		summary.HighestPercentage = math.Max(summary.HighestPercentage, percentage)
		summary.LowestPercentage = math.Min(summary.LowestPercentage, percentage)

		summary.TotalResults++
		scoreSum += result.Score
		percentageSum += percentage
		if result.Integrity.Detected {
			summary.IntegrityFlagged++
		}
		if result.Integrity.AIGenerated {
			summary.AIGeneratedFlagged++
		}
		summary.Distribution[bucketIndex(percentage)].Count++
	}

	if summary.TotalResults > 0 {
		summary.AverageScore = round2(scoreSum / float64(summary.TotalResults))
		summary.AveragePercentage = round2(percentageSum / float64(summary.TotalResults))
	}
	summary.HighestPercentage = round2(summary.HighestPercentage)
	summary.LowestPercentage = round2(summary.LowestPercentage)
	return summary
}

func (s *analyticsService) Start(ctx context.Context, events EventPublisher) {
	if s.cache == nil || events == nil {
		return
	}
	updates, unsubscribe := events.Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-updates:
				if !ok {
					return
				}
				s.invalidate(ctx)
			}
		}
	}()
}

func (s *analyticsService) invalidate(ctx context.Context) {
	iter := s.cache.Scan(ctx, 0, analyticsCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", iter.Val()).Msg("failed to drop analytics cache entry")
		}
	}
	if err := iter.Err(); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn().Err(err).Msg("failed to scan analytics cache")
	}
}

func bucketIndex(percentage float64) int {
	for i := len(scoreBuckets) - 1; i > 0; i-- {
		if percentage >= scoreBuckets[i].Min {
			return i
		}
	}
	return 0
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
