package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/moderation-api/internal/dto"
	"github.com/noah-isme/moderation-api/internal/events"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/observability"
	"github.com/noah-isme/moderation-api/internal/statistics"
)

// StatisticsService serves cached class statistics per assignment.
type StatisticsService interface {
	CacheInvalidator
	Summary(ctx context.Context, actor Actor, assignmentID uint) (dto.StatisticsResponse, error)
	Start(ctx context.Context, subscriber events.Subscriber) error
}

type statisticsService struct {
	engine   *statistics.Engine
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewStatisticsService constructs the statistics service. A nil cache disables caching.
func NewStatisticsService(engine *statistics.Engine, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StatisticsService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &statisticsService{
		engine:   engine,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "statistics_service").Logger(),
		now:      time.Now,
	}
}

func (s *statisticsService) cacheKey(assignmentID uint) string {
	return fmt.Sprintf("statistics:assignment:%d:%s", assignmentID, s.engine.Formula())
}

func (s *statisticsService) Summary(ctx context.Context, actor Actor, assignmentID uint) (dto.StatisticsResponse, error) {
	cacheKey := s.cacheKey(assignmentID)
	tracer := otel.Tracer("github.com/noah-isme/moderation-api/internal/service/statistics")
	ctx, span := tracer.Start(ctx, "statistics.summary")
	span.SetAttributes(
		attribute.Int64("statistics.assignment_id", int64(assignmentID)),
		attribute.String("statistics.cache_key", cacheKey),
	)
	defer span.End()

	if err := actor.require(models.CapViewStatistics); err != nil {
		span.SetStatus(codes.Error, "forbidden")
		return dto.StatisticsResponse{}, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.StatisticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				observability.StatisticsCacheLookups().WithLabelValues("hit").Inc()
				span.SetAttributes(attribute.Bool("statistics.cache_hit", true))
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read statistics cache")
			span.RecordError(err)
		}
		observability.StatisticsCacheLookups().WithLabelValues("miss").Inc()
	}

	formula := string(s.engine.Formula())
	summary, err := s.engine.Summary(ctx, assignmentID)
	if err != nil {
		result := "error"
		if errors.Is(err, statistics.ErrNoData) {
			result = "no_data"
		}
		observability.StatisticsComputations().WithLabelValues(formula, result).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "statistics_failed")
		return dto.StatisticsResponse{}, err
	}
	observability.StatisticsComputations().WithLabelValues(formula, "ok").Inc()
	span.SetAttributes(
		attribute.Int("statistics.count", summary.Count),
		attribute.Float64("statistics.mean", summary.Mean),
	)

	response := dto.NewStatisticsResponse(summary, s.now().UTC())

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store statistics cache")
				span.RecordError(err)
			}
		}
	}

	return response, nil
}

func (s *statisticsService) Invalidate(ctx context.Context, assignmentID uint) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Del(ctx, s.cacheKey(assignmentID)).Err(); err != nil {
		return fmt.Errorf("invalidate statistics cache: %w", err)
	}
	return nil
}

// Start invalidates cached statistics whenever another instance reports a
// change to an assignment's scores or rubrics.
func (s *statisticsService) Start(ctx context.Context, subscriber events.Subscriber) error {
	if subscriber == nil {
		return nil
	}
	return subscriber.Subscribe(ctx, func(ctx context.Context, event events.Event) {
		switch event.Type {
		case events.TypeMarkingSubmitted, events.TypeRubricPublished:
		default:
			return
		}
		if err := s.Invalidate(ctx, event.AssignmentID); err != nil {
			s.logger.Warn().Err(err).Uint("assignment_id", event.AssignmentID).Str("event", event.Type).Msg("failed to apply event")
			return
		}
		s.logger.Debug().Uint("assignment_id", event.AssignmentID).Str("event", event.Type).Msg("statistics cache invalidated")
	})
}
