package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/moderation-api/internal/models"
)

// MarkingScoreRepository persists marking scores. It satisfies statistics.Store.
type MarkingScoreRepository interface {
	FindByAssignmentID(ctx context.Context, assignmentID uint) ([]models.MarkingScore, error)
	CountByAssignmentID(ctx context.Context, assignmentID uint) (int64, error)
	GetByID(ctx context.Context, id uint) (models.MarkingScore, error)
	Replace(ctx context.Context, score *models.MarkingScore) error
}

type markingScoreRepository struct {
	db *gorm.DB
}

// NewMarkingScoreRepository constructs the marking score repository.
func NewMarkingScoreRepository(db *gorm.DB) MarkingScoreRepository {
	return &markingScoreRepository{db: db}
}

func (r *markingScoreRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.MarkingScore{}).
		Preload("CriteriaScores", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

func (r *markingScoreRepository) FindByAssignmentID(ctx context.Context, assignmentID uint) ([]models.MarkingScore, error) {
	var scores []models.MarkingScore
	err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&scores).Error
	if err != nil {
		return nil, err
	}
	return scores, nil
}

func (r *markingScoreRepository) CountByAssignmentID(ctx context.Context, assignmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MarkingScore{}).
		Where("assignment_id = ?", assignmentID).
		Count(&count).Error
	return count, err
}

func (r *markingScoreRepository) GetByID(ctx context.Context, id uint) (models.MarkingScore, error) {
	var score models.MarkingScore
	if err := r.baseQuery(ctx).First(&score, id).Error; err != nil {
		return models.MarkingScore{}, err
	}
	return score, nil
}

// Replace stores the marker's score for the assignment, dropping any earlier
// submission and its criteria scores in the same transaction.
func (r *markingScoreRepository) Replace(ctx context.Context, score *models.MarkingScore) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.MarkingScore
		if err := tx.Where("marker_id = ? AND assignment_id = ?", score.MarkerID, score.AssignmentID).
			Find(&existing).Error; err != nil {
			return err
		}

		for _, old := range existing {
			if err := tx.Where("marking_score_id = ?", old.ID).Delete(&models.CriteriaScore{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.MarkingScore{}, old.ID).Error; err != nil {
				return err
			}
		}

		score.ID = 0
		for i := range score.CriteriaScores {
			score.CriteriaScores[i].ID = 0
			score.CriteriaScores[i].MarkingScoreID = 0
		}
		return tx.Create(score).Error
	})
}
