package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/moderation-api/internal/models"
)

// AssignmentRepository persists assignments and their marker allocations.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	AddMarker(ctx context.Context, assignmentID, markerID uint) error
	RemoveMarker(ctx context.Context, assignmentID, markerID uint) error
	ListMarkers(ctx context.Context, assignmentID uint) ([]models.User, error)
	IsMarker(ctx context.Context, assignmentID, markerID uint) (bool, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (r *assignmentRepository) AddMarker(ctx context.Context, assignmentID, markerID uint) error {
	link := models.AssignmentMarker{AssignmentID: assignmentID, MarkerID: markerID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
}

func (r *assignmentRepository) RemoveMarker(ctx context.Context, assignmentID, markerID uint) error {
	result := r.db.WithContext(ctx).
		Where("assignment_id = ? AND marker_id = ?", assignmentID, markerID).
		Delete(&models.AssignmentMarker{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *assignmentRepository) ListMarkers(ctx context.Context, assignmentID uint) ([]models.User, error) {
	var markers []models.User
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN assignment_markers ON assignment_markers.marker_id = users.id").
		Where("assignment_markers.assignment_id = ?", assignmentID).
		Order("users.id ASC").
		Find(&markers).Error
	if err != nil {
		return nil, err
	}
	return markers, nil
}

func (r *assignmentRepository) IsMarker(ctx context.Context, assignmentID, markerID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AssignmentMarker{}).
		Where("assignment_id = ? AND marker_id = ?", assignmentID, markerID).
		Count(&count).Error
	return count > 0, err
}
