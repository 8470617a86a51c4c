package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/moderation-api/internal/events"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/statistics"
)

type fakeScoreStore struct {
	scores []models.MarkingScore
	calls  int
}

func (f *fakeScoreStore) FindByAssignmentID(_ context.Context, assignmentID uint) ([]models.MarkingScore, error) {
	f.calls++
	result := make([]models.MarkingScore, 0, len(f.scores))
	for _, score := range f.scores {
		if score.AssignmentID == assignmentID {
			result = append(result, score)
		}
	}
	return result, nil
}

func (f *fakeScoreStore) CountByAssignmentID(_ context.Context, assignmentID uint) (int64, error) {
	var count int64
	for _, score := range f.scores {
		if score.AssignmentID == assignmentID {
			count++
		}
	}
	return count, nil
}

type captureSubscriber struct {
	handler events.Handler
}

func (c *captureSubscriber) Subscribe(_ context.Context, handler events.Handler) error {
	c.handler = handler
	return nil
}

func newCachedStatistics(t *testing.T, store statistics.Store) (StatisticsService, *miniredis.Miniredis) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine := statistics.NewEngine(store)
	return NewStatisticsService(engine, client, time.Minute, testLogger()), server
}

func classScores() []models.MarkingScore {
	return []models.MarkingScore{
		{ID: 1, MarkerID: 10, AssignmentID: 7, Total: 70},
		{ID: 2, MarkerID: 11, AssignmentID: 7, Total: 80},
		{ID: 3, MarkerID: 12, AssignmentID: 7, Total: 90},
	}
}

func TestStatisticsServiceCachesSummary(t *testing.T) {
	store := &fakeScoreStore{scores: classScores()}
	svc, server := newCachedStatistics(t, store)
	ctx := context.Background()

	first, err := svc.Summary(ctx, adminActor, 7)
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.InDelta(t, 80, first.Mean, 1e-9)
	require.InDelta(t, 10, first.StandardDeviation, 1e-9)
	require.Equal(t, 90.0, first.Max)
	require.Equal(t, 70.0, first.Min)
	require.True(t, server.Exists("statistics:assignment:7:sample"))

	second, err := svc.Summary(ctx, adminActor, 7)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, 1, store.calls)
}

func TestStatisticsServiceInvalidateDropsCache(t *testing.T) {
	store := &fakeScoreStore{scores: classScores()}
	svc, server := newCachedStatistics(t, store)
	ctx := context.Background()

	_, err := svc.Summary(ctx, adminActor, 7)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx, 7))
	require.False(t, server.Exists("statistics:assignment:7:sample"))

	store.scores = append(store.scores, models.MarkingScore{ID: 4, MarkerID: 13, AssignmentID: 7, Total: 100})
	refreshed, err := svc.Summary(ctx, adminActor, 7)
	require.NoError(t, err)
	require.False(t, refreshed.CacheHit)
	require.Equal(t, 4, refreshed.Count)
	require.InDelta(t, 85, refreshed.Mean, 1e-9)
}

func TestStatisticsServiceNoData(t *testing.T) {
	svc, server := newCachedStatistics(t, &fakeScoreStore{})

	_, err := svc.Summary(context.Background(), adminActor, 42)
	require.ErrorIs(t, err, statistics.ErrNoData)
	require.False(t, server.Exists("statistics:assignment:42:sample"))
}

func TestStatisticsServiceRequiresCapability(t *testing.T) {
	svc, _ := newCachedStatistics(t, &fakeScoreStore{scores: classScores()})

	_, err := svc.Summary(context.Background(), Actor{ID: 10, Kind: models.RoleMarker}, 7)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestStatisticsServiceWithoutCache(t *testing.T) {
	engine := statistics.NewEngine(&fakeScoreStore{scores: classScores()}, statistics.WithFormula(statistics.FormulaPopulation))
	svc := NewStatisticsService(engine, nil, 0, testLogger())

	summary, err := svc.Summary(context.Background(), adminActor, 7)
	require.NoError(t, err)
	require.Equal(t, "population", summary.Formula)
	require.NoError(t, svc.Invalidate(context.Background(), 7))
}

func TestStatisticsServiceStartInvalidatesOnEvents(t *testing.T) {
	store := &fakeScoreStore{scores: classScores()}
	svc, server := newCachedStatistics(t, store)
	ctx := context.Background()

	_, err := svc.Summary(ctx, adminActor, 7)
	require.NoError(t, err)

	subscriber := &captureSubscriber{}
	require.NoError(t, svc.Start(ctx, subscriber))
	require.NotNil(t, subscriber.handler)

	subscriber.handler(ctx, events.Event{Type: "unrelated", AssignmentID: 7})
	require.True(t, server.Exists("statistics:assignment:7:sample"))

	subscriber.handler(ctx, events.Event{Type: events.TypeMarkingSubmitted, AssignmentID: 7})
	require.False(t, server.Exists("statistics:assignment:7:sample"))
}
