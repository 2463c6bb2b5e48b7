package dto

import "time"

// ScoreBucketResponse counts results whose percentage falls in [Min, Max].
type ScoreBucketResponse struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// AnalyticsSummaryResponse aggregates the archived results of a group, or of the
// whole archive when Group is empty.
type AnalyticsSummaryResponse struct {
	Group              string                `json:"group,omitempty"`
	TotalResults       int                   `json:"total_results"`
	AverageScore       float64               `json:"average_score"`
	AveragePercentage  float64               `json:"average_percentage"`
	HighestPercentage  float64               `json:"highest_percentage"`
	LowestPercentage   float64               `json:"lowest_percentage"`
	IntegrityFlagged   int                   `json:"integrity_flagged"`
	AIGeneratedFlagged int                   `json:"ai_generated_flagged"`
	Distribution       []ScoreBucketResponse `json:"distribution"`
	GeneratedAt        time.Time             `json:"generated_at"`
	CacheHit           bool                  `json:"cache_hit"`
}
