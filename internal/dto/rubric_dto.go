package dto

import (
	"time"

	"github.com/noah-isme/moderation-api/internal/models"
)

// CriterionRequest describes one criterion of a rubric. Order in the request
// is the display order.
type CriterionRequest struct {
	Title        string `json:"title" validate:"required,min=1,max=255"`
	Description  string `json:"description" validate:"omitempty,max=5000"`
	MaxScore     int    `json:"max_score" validate:"gte=0"`
	AwardedScore *int   `json:"awarded_score" validate:"omitempty,gte=0"`
}

// RubricCreateRequest creates a rubric with its criteria.
type RubricCreateRequest struct {
	AssignmentID uint               `json:"assignment_id" validate:"required,gt=0"`
	Title        string             `json:"title" validate:"required,min=3,max=255"`
	Criteria     []CriterionRequest `json:"criteria" validate:"required,min=1,dive"`
}

// CriterionResponse is the serialized representation of a criterion.
type CriterionResponse struct {
	ID           uint   `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Position     int    `json:"position"`
	MaxScore     int    `json:"max_score"`
	AwardedScore *int   `json:"awarded_score"`
}

// RubricResponse is the serialized representation of a rubric.
type RubricResponse struct {
	ID           uint                `json:"id"`
	Title        string              `json:"title"`
	AssignmentID uint                `json:"assignment_id"`
	Published    bool                `json:"published"`
	PublishedAt  *time.Time          `json:"published_at"`
	MaxTotal     int                 `json:"max_total"`
	Criteria     []CriterionResponse `json:"criteria"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewRubricResponse converts a model into a DTO.
func NewRubricResponse(model models.Rubric) RubricResponse {
	criteria := make([]CriterionResponse, 0, len(model.Criteria))
	for _, criterion := range model.Criteria {
		criteria = append(criteria, CriterionResponse{
			ID:           criterion.ID,
			Title:        criterion.Title,
			Description:  criterion.Description,
			Position:     criterion.Position,
			MaxScore:     criterion.MaxScore,
			AwardedScore: criterion.AwardedScore,
		})
	}

	return RubricResponse{
		ID:           model.ID,
		Title:        model.Title,
		AssignmentID: model.AssignmentID,
		Published:    model.Published,
		PublishedAt:  model.PublishedAt,
		MaxTotal:     model.MaxTotal(),
		Criteria:     criteria,
		CreatedAt:    model.CreatedAt,
	}
}

// NewRubricResponseSlice converts a slice of models into DTOs.
func NewRubricResponseSlice(rubrics []models.Rubric) []RubricResponse {
	responses := make([]RubricResponse, 0, len(rubrics))
	for _, rubric := range rubrics {
		responses = append(responses, NewRubricResponse(rubric))
	}
	return responses
}
