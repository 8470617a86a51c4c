package dto

import (
	"time"

	"github.com/noah-isme/moderation-api/internal/models"
)

// UserCreateRequest registers a marker or administrator.
type UserCreateRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department" validate:"required,min=1,max=255"`
	RoleLabel  string `json:"role_label" validate:"required,min=1,max=64"`
	Kind       string `json:"kind" validate:"required,oneof=standard marker admin"`
}

// MarkerModerationRequest marks one of a marker's two moderation rounds and
// optionally updates their status label.
type MarkerModerationRequest struct {
	Round     int    `json:"round" validate:"required,oneof=1 2"`
	Completed bool   `json:"completed"`
	Status    string `json:"status" validate:"omitempty,max=32"`
}

// UserResponse is the serialized representation of a user.
type UserResponse struct {
	ID                     uint      `json:"id"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
	Department             string    `json:"department"`
	RoleLabel              string    `json:"role_label"`
	Kind                   string    `json:"kind"`
	Priority               int       `json:"priority"`
	Capabilities           []string  `json:"capabilities"`
	ModerationOneCompleted *bool     `json:"moderation_one_completed,omitempty"`
	ModerationTwoCompleted *bool     `json:"moderation_two_completed,omitempty"`
	Status                 string    `json:"status,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

// NewUserResponse converts a model into a DTO. Moderation fields are only
// present for markers.
func NewUserResponse(model models.User) UserResponse {
	capabilities := make([]string, 0)
	for _, capability := range model.Kind.Capabilities() {
		capabilities = append(capabilities, string(capability))
	}

	response := UserResponse{
		ID:           model.ID,
		Name:         model.Name,
		Email:        model.Email,
		Department:   model.Department,
		RoleLabel:    model.RoleLabel,
		Kind:         string(model.Kind),
		Priority:     model.Priority,
		Capabilities: capabilities,
		CreatedAt:    model.CreatedAt,
	}

	if model.IsMarker() {
		one := model.ModerationOneCompleted
		two := model.ModerationTwoCompleted
		response.ModerationOneCompleted = &one
		response.ModerationTwoCompleted = &two
		response.Status = model.StatusLabel
	}

	return response
}

// NewUserResponseSlice converts a slice of models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}
	return responses
}
