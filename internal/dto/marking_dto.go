package dto

import (
	"time"

	"github.com/noah-isme/moderation-api/internal/models"
)

// CriteriaScoreRequest scores one criterion.
type CriteriaScoreRequest struct {
	CriterionID uint `json:"criterion_id" validate:"required,gt=0"`
	Score       int  `json:"score" validate:"gte=0"`
}

// MarkingScoreSubmitRequest carries a marker's scores for an assignment. Total
// is optional; when present it must equal the sum of the criteria scores.
type MarkingScoreSubmitRequest struct {
	Total  *float64               `json:"total_score" validate:"omitempty,gte=0"`
	Scores []CriteriaScoreRequest `json:"scores" validate:"required,min=1,dive"`
}

// CriteriaScoreResponse is the serialized representation of a criteria score.
type CriteriaScoreResponse struct {
	ID          uint `json:"id"`
	CriterionID uint `json:"criterion_id"`
	Score       int  `json:"score"`
}

// MarkingScoreResponse is the serialized representation of a marking score.
type MarkingScoreResponse struct {
	ID             uint                    `json:"id"`
	MarkerID       uint                    `json:"marker_id"`
	AssignmentID   uint                    `json:"assignment_id"`
	Total          float64                 `json:"total_score"`
	CriteriaScores []CriteriaScoreResponse `json:"criteria_scores"`
	SubmittedAt    time.Time               `json:"submitted_at"`
}

// NewMarkingScoreResponse converts a model into a DTO.
func NewMarkingScoreResponse(model models.MarkingScore) MarkingScoreResponse {
	scores := make([]CriteriaScoreResponse, 0, len(model.CriteriaScores))
	for _, score := range model.CriteriaScores {
		scores = append(scores, CriteriaScoreResponse{
			ID:          score.ID,
			CriterionID: score.CriterionID,
			Score:       score.Score,
		})
	}

	return MarkingScoreResponse{
		ID:             model.ID,
		MarkerID:       model.MarkerID,
		AssignmentID:   model.AssignmentID,
		Total:          model.Total,
		CriteriaScores: scores,
		SubmittedAt:    model.SubmittedAt,
	}
}

// NewMarkingScoreResponseSlice converts a slice of models into DTOs.
func NewMarkingScoreResponseSlice(items []models.MarkingScore) []MarkingScoreResponse {
	responses := make([]MarkingScoreResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewMarkingScoreResponse(item))
	}
	return responses
}
