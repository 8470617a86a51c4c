package dto

import (
	"time"

	"github.com/noah-isme/moderation-api/internal/statistics"
)

// StatisticsResponse reports class statistics for one assignment.
type StatisticsResponse struct {
	AssignmentID      uint      `json:"assignment_id"`
	Count             int       `json:"count"`
	Mean              float64   `json:"mean"`
	Variance          float64   `json:"variance"`
	StandardDeviation float64   `json:"standard_deviation"`
	Median            float64   `json:"median"`
	Max               float64   `json:"max"`
	MaxScoreID        uint      `json:"max_score_id"`
	Min               float64   `json:"min"`
	MinScoreID        uint      `json:"min_score_id"`
	Formula           string    `json:"formula"`
	GeneratedAt       time.Time `json:"generated_at"`
	CacheHit          bool      `json:"cache_hit"`
}

// NewStatisticsResponse converts an engine summary into a DTO.
func NewStatisticsResponse(summary statistics.Summary, generatedAt time.Time) StatisticsResponse {
	return StatisticsResponse{
		AssignmentID:      summary.AssignmentID,
		Count:             summary.Count,
		Mean:              summary.Mean,
		Variance:          summary.Variance,
		StandardDeviation: summary.StandardDeviation,
		Median:            summary.Median,
		Max:               summary.Max,
		MaxScoreID:        summary.MaxScoreID,
		Min:               summary.Min,
		MinScoreID:        summary.MinScoreID,
		Formula:           string(summary.Formula),
		GeneratedAt:       generatedAt,
	}
}
