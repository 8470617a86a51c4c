package dto

import (
	"time"

	"github.com/noah-isme/moderation-api/internal/models"
)

// ModerationCreateRequest opens a moderation round for an assignment.
type ModerationCreateRequest struct {
	AssignmentID uint   `json:"assignment_id" validate:"required,gt=0"`
	Name         string `json:"name" validate:"required,min=3,max=255"`
	Status       string `json:"status" validate:"omitempty,max=32"`
}

// ModerationStatusRequest changes the status of a moderation round. Either the
// symbolic name or the display label is accepted.
type ModerationStatusRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}

// ModerationResponse is the serialized representation of a moderation round.
type ModerationResponse struct {
	ID           uint      `json:"id"`
	AssignmentID uint      `json:"assignment_id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewModerationResponse converts a model into a DTO.
func NewModerationResponse(model models.Moderation) ModerationResponse {
	return ModerationResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		Name:         model.Name,
		Status:       model.Status.DisplayName(),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// ModerationRow is one line of the comparison table. Scores follow the
// order of Criteria; a nil entry means the criterion was not scored.
type ModerationRow struct {
	Label    string     `json:"label"`
	MarkerID *uint      `json:"marker_id,omitempty"`
	Scores   []*float64 `json:"scores"`
	Total    *float64   `json:"total"`
	InRange  []bool     `json:"in_range,omitempty"`
	Agreed   *bool      `json:"agreed,omitempty"`
}

// ModerationComparisonResponse compares each marker against the reference
// marks and their tolerance range.
type ModerationComparisonResponse struct {
	ModerationID   uint            `json:"moderation_id"`
	ModerationName string          `json:"moderation_name"`
	Status         string          `json:"status"`
	Tolerance      float64         `json:"tolerance"`
	Criteria       []string        `json:"criteria"`
	Rows           []ModerationRow `json:"rows"`
}
