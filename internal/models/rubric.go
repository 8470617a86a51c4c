package models

import "time"

// Rubric is an ordered set of criteria attached to one assignment.
type Rubric struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Title        string      `gorm:"size:255;not null" json:"title"`
	AssignmentID uint        `gorm:"not null;index" json:"assignment_id"`
	CreatedBy    uint        `gorm:"not null" json:"created_by"`
	Published    bool        `gorm:"not null;default:false" json:"published"`
	PublishedAt  *time.Time  `json:"published_at"`
	Criteria     []Criterion `gorm:"foreignKey:RubricID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"criteria"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// MaxTotal sums the maximum score of every criterion.
func (r Rubric) MaxTotal() int {
	total := 0
	for _, criterion := range r.Criteria {
		total += criterion.MaxScore
	}
	return total
}

// CriterionByID returns the criterion with the given id.
func (r Rubric) CriterionByID(id uint) (Criterion, bool) {
	for _, criterion := range r.Criteria {
		if criterion.ID == id {
			return criterion, true
		}
	}
	return Criterion{}, false
}

// Criterion is a single scored dimension of a rubric. MaxScore is the ceiling
// a marker may award; AwardedScore is the reference mark set by the unit chair.
type Criterion struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RubricID     uint      `gorm:"not null;index" json:"rubric_id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Position     int       `gorm:"not null" json:"position"`
	MaxScore     int       `gorm:"not null" json:"max_score"`
	AwardedScore *int      `json:"awarded_score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName keeps the plural of criterion.
func (Criterion) TableName() string {
	return "criteria"
}
