package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/moderation-api/internal/dto"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/repository"
)

var (
	// ErrUserNotFound indicates the user was not located.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken indicates another account already uses the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrNotMarker indicates a marker-only operation targeted another kind of user.
	ErrNotMarker = errors.New("user is not a marker")
)

// UserService manages marker and admin accounts.
type UserService interface {
	Create(ctx context.Context, actor Actor, payload dto.UserCreateRequest) (dto.UserResponse, error)
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
	UpdateMarkerModeration(ctx context.Context, actor Actor, markerID uint, payload dto.MarkerModerationRequest) (dto.UserResponse, error)
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(repo repository.UserRepository, validator *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) UserService {
	return &userService{
		repo:      repo,
		validator: validator,
		activity:  activity,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Create(ctx context.Context, actor Actor, payload dto.UserCreateRequest) (dto.UserResponse, error) {
	if err := actor.require(models.CapManageMarkers); err != nil {
		return dto.UserResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	kind, err := models.ParseRoleKind(payload.Kind)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user, err := models.NewUser(payload.Name, payload.Email, payload.Department, payload.RoleLabel, kind)
	if err != nil {
		return dto.UserResponse{}, err
	}
	if user.IsMarker() {
		user.StatusLabel = models.StatusUnconfirmed.DisplayName()
	}

	if _, err := s.repo.GetByEmail(ctx, user.Email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	if err := s.repo.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "user.created",
		EntityType: "user",
		EntityID:   &user.ID,
		Metadata:   map[string]interface{}{"kind": string(user.Kind), "email": user.Email},
	})

	return dto.NewUserResponse(user), nil
}

func (s *userService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) UpdateMarkerModeration(ctx context.Context, actor Actor, markerID uint, payload dto.MarkerModerationRequest) (dto.UserResponse, error) {
	if err := actor.require(models.CapManageMarkers); err != nil {
		return dto.UserResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	marker, err := s.repo.GetByID(ctx, markerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	if !marker.IsMarker() {
		return dto.UserResponse{}, ErrNotMarker
	}

	switch payload.Round {
	case 1:
		marker.ModerationOneCompleted = payload.Completed
	case 2:
		marker.ModerationTwoCompleted = payload.Completed
	default:
		return dto.UserResponse{}, fmt.Errorf("unknown moderation round %d", payload.Round)
	}

	if label := strings.TrimSpace(payload.Status); label != "" {
		status, err := models.StatusFromString(label)
		if err != nil {
			return dto.UserResponse{}, err
		}
		marker.StatusLabel = status.DisplayName()
	}

	if err := s.repo.Update(ctx, &marker); err != nil {
		return dto.UserResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "marker.moderation_updated",
		EntityType: "user",
		EntityID:   &marker.ID,
		Metadata: map[string]interface{}{
			"round":     payload.Round,
			"completed": payload.Completed,
			"status":    marker.StatusLabel,
		},
	})

	return dto.NewUserResponse(marker), nil
}
