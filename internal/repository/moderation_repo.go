package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/moderation-api/internal/models"
)

// ModerationRepository persists moderation work units.
type ModerationRepository interface {
	Create(ctx context.Context, moderation *models.Moderation) error
	GetByID(ctx context.Context, id uint) (models.Moderation, error)
	Update(ctx context.Context, moderation *models.Moderation) error
}

type moderationRepository struct {
	db *gorm.DB
}

// NewModerationRepository constructs the moderation repository.
func NewModerationRepository(db *gorm.DB) ModerationRepository {
	return &moderationRepository{db: db}
}

func (r *moderationRepository) Create(ctx context.Context, moderation *models.Moderation) error {
	return r.db.WithContext(ctx).Create(moderation).Error
}

func (r *moderationRepository) GetByID(ctx context.Context, id uint) (models.Moderation, error) {
	var moderation models.Moderation
	if err := r.db.WithContext(ctx).First(&moderation, id).Error; err != nil {
		return models.Moderation{}, err
	}
	return moderation, nil
}

func (r *moderationRepository) Update(ctx context.Context, moderation *models.Moderation) error {
	return r.db.WithContext(ctx).Save(moderation).Error
}
