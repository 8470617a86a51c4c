package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
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
	// ErrRubricNotFound indicates the rubric was not located.
	ErrRubricNotFound = errors.New("rubric not found")
	// ErrRubricPublished indicates the rubric can no longer change.
	ErrRubricPublished = errors.New("rubric already published")
	// ErrInvalidRubric wraps rubric content problems.
	ErrInvalidRubric = errors.New("invalid rubric")
)

const rubricImportSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["assignment_id", "title", "criteria"],
  "additionalProperties": false,
  "properties": {
    "assignment_id": {"type": "integer", "minimum": 1},
    "title": {"type": "string", "minLength": 3, "maxLength": 255},
    "criteria": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["title", "max_score"],
        "additionalProperties": false,
        "properties": {
          "title": {"type": "string", "minLength": 1, "maxLength": 255},
          "description": {"type": "string", "maxLength": 5000},
          "max_score": {"type": "integer", "minimum": 0},
          "awarded_score": {"type": ["integer", "null"], "minimum": 0}
        }
      }
    }
  }
}`

// RubricService manages rubrics and their criteria.
type RubricService interface {
	Create(ctx context.Context, actor Actor, payload dto.RubricCreateRequest) (dto.RubricResponse, error)
	Import(ctx context.Context, actor Actor, document []byte) (dto.RubricResponse, error)
	Get(ctx context.Context, id uint) (dto.RubricResponse, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.RubricResponse, error)
	Publish(ctx context.Context, actor Actor, id uint) (dto.RubricResponse, error)
}

type rubricService struct {
	repo        repository.RubricRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	schema      *jsonschema.Schema
	activity    ActivityRecorder
	publisher   events.Publisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewRubricService constructs the rubric service.
func NewRubricService(repo repository.RubricRepository, assignments repository.AssignmentRepository, validator *validator.Validate, activity ActivityRecorder, publisher events.Publisher, logger zerolog.Logger) RubricService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &rubricService{
		repo:        repo,
		assignments: assignments,
		validator:   validator,
		sanitizer:   bluemonday.StrictPolicy(),
		schema:      jsonschema.MustCompileString("rubric_import.schema.json", rubricImportSchema),
		activity:    activity,
		publisher:   publisher,
		logger:      logger.With().Str("component", "rubric_service").Logger(),
		now:         time.Now,
	}
}

func (s *rubricService) Create(ctx context.Context, actor Actor, payload dto.RubricCreateRequest) (dto.RubricResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/moderation-api/internal/service/rubric")
	ctx, span := tracer.Start(ctx, "rubric.create")
	span.SetAttributes(
		attribute.Int64("rubric.assignment_id", int64(payload.AssignmentID)),
		attribute.Int("rubric.criteria_count", len(payload.Criteria)),
	)
	defer span.End()

	if err := actor.require(models.CapCreateRubric); err != nil {
		span.SetStatus(codes.Error, "forbidden")
		return dto.RubricResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.RubricResponse{}, err
	}

	if _, err := s.assignments.GetByID(ctx, payload.AssignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RubricResponse{}, ErrAssignmentNotFound
		}
		span.RecordError(err)
		return dto.RubricResponse{}, err
	}

	rubric, err := s.buildRubric(actor, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_rubric")
		return dto.RubricResponse{}, err
	}

	if err := s.repo.Create(ctx, &rubric); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rubric_create_failed")
		return dto.RubricResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "rubric.created",
		EntityType: "rubric",
		EntityID:   &rubric.ID,
		Metadata: map[string]interface{}{
			"assignment_id": rubric.AssignmentID,
			"max_total":     rubric.MaxTotal(),
		},
	})

	return dto.NewRubricResponse(rubric), nil
}

func (s *rubricService) Import(ctx context.Context, actor Actor, document []byte) (dto.RubricResponse, error) {
	var raw interface{}
	if err := json.Unmarshal(document, &raw); err != nil {
		return dto.RubricResponse{}, fmt.Errorf("%w: malformed json: %v", ErrInvalidRubric, err)
	}
	if err := s.schema.Validate(raw); err != nil {
		return dto.RubricResponse{}, fmt.Errorf("%w: %v", ErrInvalidRubric, err)
	}

	var payload dto.RubricCreateRequest
	if err := json.Unmarshal(document, &payload); err != nil {
		return dto.RubricResponse{}, fmt.Errorf("%w: %v", ErrInvalidRubric, err)
	}
	return s.Create(ctx, actor, payload)
}

func (s *rubricService) Get(ctx context.Context, id uint) (dto.RubricResponse, error) {
	rubric, err := s.getRubric(ctx, id)
	if err != nil {
		return dto.RubricResponse{}, err
	}
	return dto.NewRubricResponse(rubric), nil
}

func (s *rubricService) ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.RubricResponse, error) {
	rubrics, err := s.repo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return dto.NewRubricResponseSlice(rubrics), nil
}

func (s *rubricService) Publish(ctx context.Context, actor Actor, id uint) (dto.RubricResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/moderation-api/internal/service/rubric")
	ctx, span := tracer.Start(ctx, "rubric.publish")
	span.SetAttributes(attribute.Int64("rubric.id", int64(id)))
	defer span.End()

	if err := actor.require(models.CapPublishRubric); err != nil {
		span.SetStatus(codes.Error, "forbidden")
		return dto.RubricResponse{}, err
	}

	rubric, err := s.getRubric(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.RubricResponse{}, err
	}
	if rubric.Published {
		return dto.RubricResponse{}, ErrRubricPublished
	}
	if len(rubric.Criteria) == 0 {
		return dto.RubricResponse{}, fmt.Errorf("%w: no criteria", ErrInvalidRubric)
	}

	publishedAt := s.now().UTC()
	if err := s.repo.MarkPublished(ctx, rubric.ID, publishedAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rubric_publish_failed")
		return dto.RubricResponse{}, err
	}
	rubric.Published = true
	rubric.PublishedAt = &publishedAt

	if err := s.publisher.Publish(ctx, events.Event{
		Type:         events.TypeRubricPublished,
		AssignmentID: rubric.AssignmentID,
		EntityID:     rubric.ID,
		ActorID:      actor.ID,
		OccurredAt:   publishedAt,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("rubric_id", rubric.ID).Msg("failed to publish rubric event")
		span.RecordError(err)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "rubric.published",
		EntityType: "rubric",
		EntityID:   &rubric.ID,
		Metadata:   map[string]interface{}{"assignment_id": rubric.AssignmentID},
	})

	return dto.NewRubricResponse(rubric), nil
}

func (s *rubricService) getRubric(ctx context.Context, id uint) (models.Rubric, error) {
	rubric, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Rubric{}, ErrRubricNotFound
		}
		return models.Rubric{}, err
	}
	return rubric, nil
}

// buildRubric sanitises the payload and enforces rubric rules: a non-empty
// title, unique criterion titles, non-negative maxima and reference marks
// within the maximum.
func (s *rubricService) buildRubric(actor Actor, payload dto.RubricCreateRequest) (models.Rubric, error) {
	title := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	if title == "" {
		return models.Rubric{}, fmt.Errorf("%w: title empty after sanitization", ErrInvalidRubric)
	}
	if len(payload.Criteria) == 0 {
		return models.Rubric{}, fmt.Errorf("%w: at least one criterion is required", ErrInvalidRubric)
	}

	seen := make(map[string]struct{}, len(payload.Criteria))
	criteria := make([]models.Criterion, 0, len(payload.Criteria))
	for i, item := range payload.Criteria {
		criterionTitle := strings.TrimSpace(s.sanitizer.Sanitize(item.Title))
		if criterionTitle == "" {
			return models.Rubric{}, fmt.Errorf("%w: criterion %d has no title", ErrInvalidRubric, i+1)
		}
		key := strings.ToLower(criterionTitle)
		if _, dup := seen[key]; dup {
			return models.Rubric{}, fmt.Errorf("%w: duplicate criterion %q", ErrInvalidRubric, criterionTitle)
		}
		seen[key] = struct{}{}

		if item.MaxScore < 0 {
			return models.Rubric{}, fmt.Errorf("%w: criterion %q has negative max score", ErrInvalidRubric, criterionTitle)
		}
		if item.AwardedScore != nil && (*item.AwardedScore < 0 || *item.AwardedScore > item.MaxScore) {
			return models.Rubric{}, fmt.Errorf("%w: reference mark for %q outside 0..%d", ErrInvalidRubric, criterionTitle, item.MaxScore)
		}

		criteria = append(criteria, models.Criterion{
			Title:        criterionTitle,
			Description:  strings.TrimSpace(s.sanitizer.Sanitize(item.Description)),
			Position:     i,
			MaxScore:     item.MaxScore,
			AwardedScore: item.AwardedScore,
		})
	}

	return models.Rubric{
		Title:        title,
		AssignmentID: payload.AssignmentID,
		CreatedBy:    actor.ID,
		Criteria:     criteria,
	}, nil
}
