// Package events carries marking workflow events between service instances.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	TypeMarkingSubmitted = "marking.submitted"
	TypeRubricPublished  = "rubric.published"
)

// Event is published after a state change that affects an assignment.
type Event struct {
	Type         string    `json:"type"`
	AssignmentID uint      `json:"assignment_id"`
	EntityID     uint      `json:"entity_id"`
	ActorID      uint      `json:"actor_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher sends events to other instances.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Handler consumes a received event.
type Handler func(ctx context.Context, event Event)

// Subscriber delivers events to a handler until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, handler Handler) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
