package models

import "time"

// Moderation is a marking work unit whose markers are compared against the
// reference marks of the assignment's rubric.
type Moderation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"not null;index" json:"assignment_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Status       Status    `gorm:"type:varchar(32);not null" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
