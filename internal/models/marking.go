package models

import "time"

// MarkingScore is one marker's total for one assignment. Total is stored as
// given and is not recomputed from CriteriaScores.
type MarkingScore struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	MarkerID       uint            `gorm:"not null;uniqueIndex:idx_marker_assignment" json:"marker_id"`
	AssignmentID   uint            `gorm:"not null;uniqueIndex:idx_marker_assignment;index" json:"assignment_id"`
	Total          float64         `gorm:"column:total_score;not null" json:"total_score"`
	CriteriaScores []CriteriaScore `gorm:"foreignKey:MarkingScoreID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"criteria_scores"`
	SubmittedAt    time.Time       `json:"submitted_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CriteriaSum adds up the per-criterion scores.
func (m MarkingScore) CriteriaSum() int {
	sum := 0
	for _, score := range m.CriteriaScores {
		sum += score.Score
	}
	return sum
}

// ScoreFor returns the score awarded for a criterion.
func (m MarkingScore) ScoreFor(criterionID uint) (int, bool) {
	for _, score := range m.CriteriaScores {
		if score.CriterionID == criterionID {
			return score.Score, true
		}
	}
	return 0, false
}

// CriteriaScore is one marker's score for one criterion.
type CriteriaScore struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	MarkingScoreID uint `gorm:"not null;index" json:"marking_score_id"`
	CriterionID    uint `gorm:"not null;index" json:"criterion_id"`
	Score          int  `gorm:"not null" json:"score"`
}
