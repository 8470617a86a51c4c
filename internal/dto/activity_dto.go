package dto

import (
	"time"

	"github.com/noah-isme/moderation-api/internal/models"
)

// ActivityLogResponse is the serialized representation of an audit entry.
type ActivityLogResponse struct {
	ID         uint                   `json:"id"`
	ActorID    uint                   `json:"actor_id"`
	ActorKind  string                 `json:"actor_kind"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewActivityLogResponseSlice converts audit entries into DTOs.
func NewActivityLogResponseSlice(items []models.ActivityLog) []ActivityLogResponse {
	responses := make([]ActivityLogResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, ActivityLogResponse{
			ID:         item.ID,
			ActorID:    item.ActorID,
			ActorKind:  string(item.ActorKind),
			Action:     item.Action,
			EntityType: item.EntityType,
			EntityID:   item.EntityID,
			Metadata:   item.Metadata,
			CreatedAt:  item.CreatedAt,
		})
	}
	return responses
}
