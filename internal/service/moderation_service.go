package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/moderation-api/internal/dto"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/repository"
)

// DefaultTolerance is the relative band around reference marks.
const DefaultTolerance = 0.05

// ErrModerationNotFound indicates the moderation round was not located.
var ErrModerationNotFound = errors.New("moderation not found")

// ModerationService manages moderation rounds and compares markers against
// the reference marks.
type ModerationService interface {
	Create(ctx context.Context, actor Actor, payload dto.ModerationCreateRequest) (dto.ModerationResponse, error)
	Get(ctx context.Context, id uint) (dto.ModerationResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id uint, payload dto.ModerationStatusRequest) (dto.ModerationResponse, error)
	Compare(ctx context.Context, actor Actor, id uint) (dto.ModerationComparisonResponse, error)
}

type moderationService struct {
	repo        repository.ModerationRepository
	assignments repository.AssignmentRepository
	rubrics     repository.RubricRepository
	scores      repository.MarkingScoreRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	tolerance   float64
	logger      zerolog.Logger
}

// NewModerationService constructs the moderation service. A tolerance outside
// (0, 1) falls back to DefaultTolerance.
func NewModerationService(repo repository.ModerationRepository, assignments repository.AssignmentRepository, rubrics repository.RubricRepository, scores repository.MarkingScoreRepository, validator *validator.Validate, activity ActivityRecorder, tolerance float64, logger zerolog.Logger) ModerationService {
	if tolerance <= 0 || tolerance >= 1 {
		tolerance = DefaultTolerance
	}
	return &moderationService{
		repo:        repo,
		assignments: assignments,
		rubrics:     rubrics,
		scores:      scores,
		validator:   validator,
		activity:    activity,
		tolerance:   tolerance,
		logger:      logger.With().Str("component", "moderation_service").Logger(),
	}
}

func (s *moderationService) Create(ctx context.Context, actor Actor, payload dto.ModerationCreateRequest) (dto.ModerationResponse, error) {
	if err := actor.require(models.CapManageModeration); err != nil {
		return dto.ModerationResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ModerationResponse{}, err
	}

	status := models.StatusInProgress
	if strings.TrimSpace(payload.Status) != "" {
		parsed, err := models.StatusFromString(payload.Status)
		if err != nil {
			return dto.ModerationResponse{}, err
		}
		status = parsed
	}

	if _, err := s.assignments.GetByID(ctx, payload.AssignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ModerationResponse{}, ErrAssignmentNotFound
		}
		return dto.ModerationResponse{}, err
	}

	moderation := models.Moderation{
		AssignmentID: payload.AssignmentID,
		Name:         strings.TrimSpace(payload.Name),
		Status:       status,
	}
	if err := s.repo.Create(ctx, &moderation); err != nil {
		return dto.ModerationResponse{}, err
	}

	id := moderation.ID
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "moderation.created",
		EntityType: "moderation",
		EntityID:   &id,
		Metadata: map[string]interface{}{
			"assignment_id": moderation.AssignmentID,
			"status":        status.Name(),
		},
	})

	return dto.NewModerationResponse(moderation), nil
}

func (s *moderationService) Get(ctx context.Context, id uint) (dto.ModerationResponse, error) {
	moderation, err := s.load(ctx, id)
	if err != nil {
		return dto.ModerationResponse{}, err
	}
	return dto.NewModerationResponse(moderation), nil
}

func (s *moderationService) UpdateStatus(ctx context.Context, actor Actor, id uint, payload dto.ModerationStatusRequest) (dto.ModerationResponse, error) {
	if err := actor.require(models.CapManageModeration); err != nil {
		return dto.ModerationResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ModerationResponse{}, err
	}
	status, err := models.StatusFromString(payload.Status)
	if err != nil {
		return dto.ModerationResponse{}, err
	}

	moderation, err := s.load(ctx, id)
	if err != nil {
		return dto.ModerationResponse{}, err
	}
	previous := moderation.Status
	moderation.Status = status
	if err := s.repo.Update(ctx, &moderation); err != nil {
		return dto.ModerationResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "moderation.status_changed",
		EntityType: "moderation",
		EntityID:   &id,
		Metadata: map[string]interface{}{
			"from": previous.Name(),
			"to":   status.Name(),
		},
	})

	return dto.NewModerationResponse(moderation), nil
}

func (s *moderationService) Compare(ctx context.Context, actor Actor, id uint) (dto.ModerationComparisonResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/moderation-api/internal/service/moderation")
	ctx, span := tracer.Start(ctx, "moderation.compare")
	span.SetAttributes(attribute.Int64("moderation.id", int64(id)))
	defer span.End()

	if err := actor.require(models.CapViewStatistics); err != nil {
		span.SetStatus(codes.Error, "forbidden")
		return dto.ModerationComparisonResponse{}, err
	}

	moderation, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.ModerationComparisonResponse{}, err
	}

	rubrics, err := s.rubrics.FindPublishedByAssignment(ctx, moderation.AssignmentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_rubrics_failed")
		return dto.ModerationComparisonResponse{}, err
	}
	markers, err := s.assignments.ListMarkers(ctx, moderation.AssignmentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_markers_failed")
		return dto.ModerationComparisonResponse{}, err
	}
	scores, err := s.scores.FindByAssignmentID(ctx, moderation.AssignmentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_scores_failed")
		return dto.ModerationComparisonResponse{}, err
	}

	criteria := make([]models.Criterion, 0)
	for _, rubric := range rubrics {
		criteria = append(criteria, rubric.Criteria...)
	}

	response := dto.ModerationComparisonResponse{
		ModerationID:   moderation.ID,
		ModerationName: moderation.Name,
		Status:         moderation.Status.DisplayName(),
		Tolerance:      s.tolerance,
		Criteria:       make([]string, 0, len(criteria)),
		Rows:           compareMarkers(criteria, markers, scores, s.tolerance),
	}
	for _, criterion := range criteria {
		response.Criteria = append(response.Criteria, criterion.Title)
	}

	span.SetAttributes(
		attribute.Int("moderation.criteria", len(criteria)),
		attribute.Int("moderation.markers", len(markers)),
	)
	return response, nil
}

func (s *moderationService) load(ctx context.Context, id uint) (models.Moderation, error) {
	moderation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Moderation{}, ErrModerationNotFound
		}
		return models.Moderation{}, err
	}
	return moderation, nil
}

// compareMarkers builds the reference row, the lower and upper tolerance rows,
// and one row per allocated marker. Criteria without a reference mark count as
// zero; unscored criteria are nil and never in range.
func compareMarkers(criteria []models.Criterion, markers []models.User, scores []models.MarkingScore, tolerance float64) []dto.ModerationRow {
	reference := make([]*float64, len(criteria))
	lower := make([]*float64, len(criteria))
	upper := make([]*float64, len(criteria))
	var refTotal, lowTotal, highTotal float64
	for i, criterion := range criteria {
		mark := 0.0
		if criterion.AwardedScore != nil {
			mark = float64(*criterion.AwardedScore)
		}
		lo := round2(mark * (1 - tolerance))
		hi := round2(mark * (1 + tolerance))
		reference[i], lower[i], upper[i] = floatPtr(mark), floatPtr(lo), floatPtr(hi)
		refTotal += mark
		lowTotal += lo
		highTotal += hi
	}

	percent := fmt.Sprintf("%g%%", round2(tolerance*100))
	rows := []dto.ModerationRow{
		{Label: "Unit Chair Marks", Scores: reference, Total: floatPtr(refTotal)},
		{Label: percent + " Lower Range", Scores: lower, Total: floatPtr(round2(lowTotal))},
		{Label: percent + " Upper Range", Scores: upper, Total: floatPtr(round2(highTotal))},
	}

	byMarker := make(map[uint]models.MarkingScore, len(scores))
	for _, score := range scores {
		byMarker[score.MarkerID] = score
	}

	for _, marker := range markers {
		markerID := marker.ID
		row := dto.ModerationRow{
			Label:    marker.Name,
			MarkerID: &markerID,
			Scores:   make([]*float64, len(criteria)),
			InRange:  make([]bool, len(criteria)),
		}
		if strings.TrimSpace(row.Label) == "" {
			row.Label = fmt.Sprintf("Marker %d", marker.ID)
		}

		score, submitted := byMarker[marker.ID]
		if submitted {
			total := 0.0
			scored := false
			for i, criterion := range criteria {
				value, ok := score.ScoreFor(criterion.ID)
				if !ok {
					continue
				}
				mark := float64(value)
				row.Scores[i] = floatPtr(mark)
				row.InRange[i] = mark >= *lower[i] && mark <= *upper[i]
				total += mark
				scored = true
			}
			if scored {
				row.Total = floatPtr(total)
				agreed := total >= round2(lowTotal) && total <= round2(highTotal)
				row.Agreed = &agreed
			}
		}

		rows = append(rows, row)
	}

	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func floatPtr(v float64) *float64 {
	return &v
}
