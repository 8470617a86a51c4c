package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/moderation-api/internal/models"
)

// RubricRepository persists rubrics together with their ordered criteria.
type RubricRepository interface {
	Create(ctx context.Context, rubric *models.Rubric) error
	GetByID(ctx context.Context, id uint) (models.Rubric, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Rubric, error)
	FindPublishedByAssignment(ctx context.Context, assignmentID uint) ([]models.Rubric, error)
	MarkPublished(ctx context.Context, id uint, at time.Time) error
}

type rubricRepository struct {
	db *gorm.DB
}

// NewRubricRepository constructs the rubric repository.
func NewRubricRepository(db *gorm.DB) RubricRepository {
	return &rubricRepository{db: db}
}

func (r *rubricRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Rubric{}).
		Preload("Criteria", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		})
}

func (r *rubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	return r.db.WithContext(ctx).Create(rubric).Error
}

func (r *rubricRepository) GetByID(ctx context.Context, id uint) (models.Rubric, error) {
	var rubric models.Rubric
	if err := r.baseQuery(ctx).First(&rubric, id).Error; err != nil {
		return models.Rubric{}, err
	}
	return rubric, nil
}

func (r *rubricRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Rubric, error) {
	var rubrics []models.Rubric
	err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&rubrics).Error
	if err != nil {
		return nil, err
	}
	return rubrics, nil
}

func (r *rubricRepository) FindPublishedByAssignment(ctx context.Context, assignmentID uint) ([]models.Rubric, error) {
	var rubrics []models.Rubric
	err := r.baseQuery(ctx).
		Where("assignment_id = ? AND published = ?", assignmentID, true).
		Order("id ASC").
		Find(&rubrics).Error
	if err != nil {
		return nil, err
	}
	return rubrics, nil
}

func (r *rubricRepository) MarkPublished(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Rubric{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"published": true, "published_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
