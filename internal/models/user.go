package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RoleKind tags the variant of a user account.
type RoleKind string

const (
	RoleStandard RoleKind = "standard"
	RoleMarker   RoleKind = "marker"
	RoleAdmin    RoleKind = "admin"
)

// Priority levels. Elevated actors hold every standard capability.
const (
	PriorityStandard = 0
	PriorityElevated = 1
)

// Capability names an action an actor may perform.
type Capability string

const (
	CapViewRubric       Capability = "rubric.view"
	CapSubmitMarks      Capability = "marks.submit"
	CapCreateRubric     Capability = "rubric.create"
	CapPublishRubric    Capability = "rubric.publish"
	CapManageMarkers    Capability = "markers.manage"
	CapViewStatistics   Capability = "statistics.view"
	CapManageModeration Capability = "moderation.manage"
)

// ErrInvalidUser is returned when a user is constructed with missing fields.
var ErrInvalidUser = errors.New("invalid user")

// ErrUnknownRole is returned when a role label cannot be mapped to a kind.
var ErrUnknownRole = errors.New("unknown role")

// Priority returns the fixed priority for the kind.
func (k RoleKind) Priority() int {
	switch k {
	case RoleAdmin:
		return PriorityElevated
	default:
		return PriorityStandard
	}
}

// Capabilities lists what the kind is allowed to do.
func (k RoleKind) Capabilities() []Capability {
	switch k {
	case RoleAdmin:
		return []Capability{
			CapViewRubric,
			CapSubmitMarks,
			CapCreateRubric,
			CapPublishRubric,
			CapManageMarkers,
			CapViewStatistics,
			CapManageModeration,
		}
	case RoleMarker:
		return []Capability{CapViewRubric, CapSubmitMarks}
	case RoleStandard:
		return []Capability{CapViewRubric}
	default:
		return nil
	}
}

// Can reports whether the kind grants the capability.
func (k RoleKind) Can(capability Capability) bool {
	for _, c := range k.Capabilities() {
		if c == capability {
			return true
		}
	}
	return false
}

// ParseRoleKind maps a role claim or label onto a kind. Teachers and unit
// chairs are treated as admins.
func ParseRoleKind(value string) (RoleKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin", "teacher", "unit_chair", "unit chair":
		return RoleAdmin, nil
	case "marker":
		return RoleMarker, nil
	case "standard", "user":
		return RoleStandard, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
}

// User is an actor in the marking workflow. Marker-only fields stay zero for
// other kinds.
type User struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	Name       string   `gorm:"size:255;not null" json:"name"`
	Email      string   `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Department string   `gorm:"size:255;not null" json:"department"`
	RoleLabel  string   `gorm:"size:64;not null" json:"role_label"`
	Kind       RoleKind `gorm:"size:16;not null;index" json:"kind"`
	Priority   int      `gorm:"not null" json:"priority"`

	ModerationOneCompleted bool   `gorm:"not null;default:false" json:"moderation_one_completed"`
	ModerationTwoCompleted bool   `gorm:"not null;default:false" json:"moderation_two_completed"`
	StatusLabel            string `gorm:"size:32" json:"status_label"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser builds a user of the given kind. Priority comes from the kind only.
func NewUser(name, email, department, roleLabel string, kind RoleKind) (User, error) {
	fields := map[string]string{
		"name":       name,
		"email":      email,
		"department": department,
		"role label": roleLabel,
	}
	for _, field := range []string{"name", "email", "department", "role label"} {
		if strings.TrimSpace(fields[field]) == "" {
			return User{}, fmt.Errorf("%w: %s is required", ErrInvalidUser, field)
		}
	}
	if kind.Capabilities() == nil {
		return User{}, fmt.Errorf("%w: %w %q", ErrInvalidUser, ErrUnknownRole, kind)
	}

	return User{
		Name:       strings.TrimSpace(name),
		Email:      strings.ToLower(strings.TrimSpace(email)),
		Department: strings.TrimSpace(department),
		RoleLabel:  strings.TrimSpace(roleLabel),
		Kind:       kind,
		Priority:   kind.Priority(),
	}, nil
}

// NewMarker builds a marker account.
func NewMarker(name, email, department, roleLabel string) (User, error) {
	return NewUser(name, email, department, roleLabel, RoleMarker)
}

// NewAdmin builds an admin account.
func NewAdmin(name, email, department, roleLabel string) (User, error) {
	return NewUser(name, email, department, roleLabel, RoleAdmin)
}

// Can reports whether the user holds the capability.
func (u User) Can(capability Capability) bool {
	return u.Kind.Can(capability)
}

// IsMarker reports whether the account is a marker.
func (u User) IsMarker() bool {
	return u.Kind == RoleMarker
}

// AssignmentMarker links a marker to an assignment they are allowed to mark.
type AssignmentMarker struct {
	AssignmentID uint      `gorm:"primaryKey" json:"assignment_id"`
	MarkerID     uint      `gorm:"primaryKey" json:"marker_id"`
	CreatedAt    time.Time `json:"created_at"`
}
