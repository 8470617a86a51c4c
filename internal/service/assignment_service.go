package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/moderation-api/internal/dto"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/repository"
)

var (
	// ErrAssignmentNotFound indicates the assignment was not located.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrMarkerNotAssigned indicates the marker is not allocated to the assignment.
	ErrMarkerNotAssigned = errors.New("marker not assigned to assignment")
)

// AssignmentService manages assignments and the markers allocated to them.
type AssignmentService interface {
	Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	AddMarker(ctx context.Context, actor Actor, assignmentID uint, payload dto.AssignmentMarkerRequest) error
	RemoveMarker(ctx context.Context, actor Actor, assignmentID, markerID uint) error
	ListMarkers(ctx context.Context, assignmentID uint) ([]dto.UserResponse, error)
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	users     repository.UserRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, users repository.UserRepository, validator *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		users:     users,
		validator: validator,
		activity:  activity,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
	}
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := actor.require(models.CapCreateRubric); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		Name:      strings.TrimSpace(payload.Name),
		CreatedBy: actor.ID,
	}
	if err := s.repo.Create(ctx, &assignment); err != nil {
		s.logger.Error().Err(err).Msg("failed to create assignment")
		return dto.AssignmentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "assignment.created",
		EntityType: "assignment",
		EntityID:   &assignment.ID,
	})

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.getAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) AddMarker(ctx context.Context, actor Actor, assignmentID uint, payload dto.AssignmentMarkerRequest) error {
	if err := actor.require(models.CapManageMarkers); err != nil {
		return err
	}
	if err := s.validator.Struct(payload); err != nil {
		return err
	}
	if _, err := s.getAssignment(ctx, assignmentID); err != nil {
		return err
	}

	marker, err := s.users.GetByID(ctx, payload.MarkerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !marker.Can(models.CapSubmitMarks) {
		return ErrNotMarker
	}

	if err := s.repo.AddMarker(ctx, assignmentID, marker.ID); err != nil {
		return err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "marker.added",
		EntityType: "assignment",
		EntityID:   &assignmentID,
		Metadata:   map[string]interface{}{"marker_id": marker.ID},
	})
	return nil
}

func (s *assignmentService) RemoveMarker(ctx context.Context, actor Actor, assignmentID, markerID uint) error {
	if err := actor.require(models.CapManageMarkers); err != nil {
		return err
	}
	if err := s.repo.RemoveMarker(ctx, assignmentID, markerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMarkerNotAssigned
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "marker.removed",
		EntityType: "assignment",
		EntityID:   &assignmentID,
		Metadata:   map[string]interface{}{"marker_id": markerID},
	})
	return nil
}

func (s *assignmentService) ListMarkers(ctx context.Context, assignmentID uint) ([]dto.UserResponse, error) {
	if _, err := s.getAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}
	markers, err := s.repo.ListMarkers(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponseSlice(markers), nil
}

func (s *assignmentService) getAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}
