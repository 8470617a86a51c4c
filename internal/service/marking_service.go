package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/moderation-api/internal/dto"
	"github.com/noah-isme/moderation-api/internal/events"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/repository"
)

var (
	// ErrNoPublishedRubric indicates the assignment cannot be marked yet.
	ErrNoPublishedRubric = errors.New("assignment has no published rubric")
	// ErrUnknownCriterion indicates a score referenced a criterion outside the published rubrics.
	ErrUnknownCriterion = errors.New("criterion does not belong to a published rubric of the assignment")
	// ErrDuplicateCriterion indicates a criterion was scored more than once.
	ErrDuplicateCriterion = errors.New("criterion scored more than once")
	// ErrScoreExceedsMax indicates a criterion score surpasses the criterion max.
	ErrScoreExceedsMax = errors.New("score exceeds criterion max")
	// ErrTotalMismatch indicates the supplied total differs from the sum of criteria scores.
	ErrTotalMismatch = errors.New("total score does not equal the sum of criteria scores")
)

// CacheInvalidator drops cached statistics for an assignment.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, assignmentID uint) error
}

// MarkingService records marker scores against published rubrics.
type MarkingService interface {
	Submit(ctx context.Context, actor Actor, assignmentID uint, payload dto.MarkingScoreSubmitRequest) (dto.MarkingScoreResponse, error)
	List(ctx context.Context, actor Actor, assignmentID uint) ([]dto.MarkingScoreResponse, error)
}

type markingService struct {
	scores      repository.MarkingScoreRepository
	rubrics     repository.RubricRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	cache       CacheInvalidator
	publisher   events.Publisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewMarkingService constructs the marking service.
func NewMarkingService(scores repository.MarkingScoreRepository, rubrics repository.RubricRepository, assignments repository.AssignmentRepository, validator *validator.Validate, cache CacheInvalidator, publisher events.Publisher, logger zerolog.Logger) MarkingService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &markingService{
		scores:      scores,
		rubrics:     rubrics,
		assignments: assignments,
		validator:   validator,
		cache:       cache,
		publisher:   publisher,
		logger:      logger.With().Str("component", "marking_service").Logger(),
		now:         time.Now,
	}
}

func (s *markingService) Submit(ctx context.Context, actor Actor, assignmentID uint, payload dto.MarkingScoreSubmitRequest) (dto.MarkingScoreResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/moderation-api/internal/service/marking")
	ctx, span := tracer.Start(ctx, "marking.submit")
	span.SetAttributes(
		attribute.Int64("marking.assignment_id", int64(assignmentID)),
		attribute.Int64("marking.marker_id", int64(actor.ID)),
	)
	defer span.End()

	if err := actor.require(models.CapSubmitMarks); err != nil {
		span.SetStatus(codes.Error, "forbidden")
		return dto.MarkingScoreResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.MarkingScoreResponse{}, err
	}

	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MarkingScoreResponse{}, ErrAssignmentNotFound
		}
		return dto.MarkingScoreResponse{}, err
	}

	// Only allocated markers score; admins hold the capability but are never allocated.
	assigned, err := s.assignments.IsMarker(ctx, assignmentID, actor.ID)
	if err != nil {
		return dto.MarkingScoreResponse{}, err
	}
	if !assigned {
		span.SetStatus(codes.Error, "marker_not_assigned")
		return dto.MarkingScoreResponse{}, ErrMarkerNotAssigned
	}

	rubrics, err := s.rubrics.FindPublishedByAssignment(ctx, assignmentID)
	if err != nil {
		span.RecordError(err)
		return dto.MarkingScoreResponse{}, err
	}
	if len(rubrics) == 0 {
		return dto.MarkingScoreResponse{}, ErrNoPublishedRubric
	}

	score, err := buildMarkingScore(rubrics, actor.ID, assignmentID, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_scores")
		return dto.MarkingScoreResponse{}, err
	}
	score.SubmittedAt = s.now().UTC()

	if err := s.scores.Replace(ctx, &score); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marking_store_failed")
		return dto.MarkingScoreResponse{}, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, assignmentID); err != nil {
			s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to invalidate statistics cache")
		}
	}
	if err := s.publisher.Publish(ctx, events.Event{
		Type:         events.TypeMarkingSubmitted,
		AssignmentID: assignmentID,
		EntityID:     score.ID,
		ActorID:      actor.ID,
		OccurredAt:   score.SubmittedAt,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("marking_score_id", score.ID).Msg("failed to publish marking event")
		span.RecordError(err)
	}

	span.SetAttributes(attribute.Float64("marking.total", score.Total))
	return dto.NewMarkingScoreResponse(score), nil
}

func (s *markingService) List(ctx context.Context, actor Actor, assignmentID uint) ([]dto.MarkingScoreResponse, error) {
	if err := actor.require(models.CapSubmitMarks); err != nil {
		return nil, err
	}

	scores, err := s.scores.FindByAssignmentID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if !actor.Kind.Can(models.CapViewStatistics) {
		own := scores[:0]
		for _, score := range scores {
			if score.MarkerID == actor.ID {
				own = append(own, score)
			}
		}
		scores = own
	}

	return dto.NewMarkingScoreResponseSlice(scores), nil
}

// buildMarkingScore checks every criteria score against the published rubrics
// and derives the total from them.
func buildMarkingScore(rubrics []models.Rubric, markerID, assignmentID uint, payload dto.MarkingScoreSubmitRequest) (models.MarkingScore, error) {
	criteria := make(map[uint]models.Criterion)
	for _, rubric := range rubrics {
		for _, criterion := range rubric.Criteria {
			criteria[criterion.ID] = criterion
		}
	}

	seen := make(map[uint]struct{}, len(payload.Scores))
	items := make([]models.CriteriaScore, 0, len(payload.Scores))
	sum := 0
	for _, item := range payload.Scores {
		criterion, ok := criteria[item.CriterionID]
		if !ok {
			return models.MarkingScore{}, fmt.Errorf("%w: %d", ErrUnknownCriterion, item.CriterionID)
		}
		if _, dup := seen[item.CriterionID]; dup {
			return models.MarkingScore{}, fmt.Errorf("%w: %q", ErrDuplicateCriterion, criterion.Title)
		}
		seen[item.CriterionID] = struct{}{}

		if item.Score < 0 || item.Score > criterion.MaxScore {
			return models.MarkingScore{}, fmt.Errorf("%w: %q scored %d of %d", ErrScoreExceedsMax, criterion.Title, item.Score, criterion.MaxScore)
		}

		sum += item.Score
		items = append(items, models.CriteriaScore{CriterionID: item.CriterionID, Score: item.Score})
	}

	total := float64(sum)
	if payload.Total != nil && math.Abs(*payload.Total-total) > 1e-9 {
		return models.MarkingScore{}, fmt.Errorf("%w: got %.2f, criteria sum to %d", ErrTotalMismatch, *payload.Total, sum)
	}

	return models.MarkingScore{
		MarkerID:       markerID,
		AssignmentID:   assignmentID,
		Total:          total,
		CriteriaScores: items,
	}, nil
}
