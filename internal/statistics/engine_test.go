package statistics

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/moderation-api/internal/models"
)

type memoryStore struct {
	scores   map[uint][]models.MarkingScore
	countAdj int64
	findErr  error
}

func newMemoryStore(assignmentID uint, totals ...float64) *memoryStore {
	scores := make([]models.MarkingScore, 0, len(totals))
	for i, total := range totals {
		scores = append(scores, models.MarkingScore{
			ID:           uint(i + 1),
			MarkerID:     uint(100 + i),
			AssignmentID: assignmentID,
			Total:        total,
		})
	}
	return &memoryStore{scores: map[uint][]models.MarkingScore{assignmentID: scores}}
}

func (m *memoryStore) FindByAssignmentID(_ context.Context, assignmentID uint) ([]models.MarkingScore, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.scores[assignmentID], nil
}

func (m *memoryStore) CountByAssignmentID(_ context.Context, assignmentID uint) (int64, error) {
	return int64(len(m.scores[assignmentID])) + m.countAdj, nil
}

func TestEngineAverage(t *testing.T) {
	engine := NewEngine(newMemoryStore(1, 70, 80, 90))

	avg, err := engine.Average(context.Background(), 1)
	require.NoError(t, err)
	require.InDelta(t, 80.0, avg, 1e-9)
}

func TestEngineSampleDeviation(t *testing.T) {
	engine := NewEngine(newMemoryStore(1, 70, 80, 90))

	dev, err := engine.StandardDeviation(context.Background(), 1)
	require.NoError(t, err)
	require.InDelta(t, 10.0, dev, 1e-9)

	equal := NewEngine(newMemoryStore(2, 75, 75, 75))
	dev, err = equal.StandardDeviation(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 0.0, dev)
}

func TestEngineLegacyDeviationReproducesOldArithmetic(t *testing.T) {
	engine := NewEngine(newMemoryStore(1, 70, 80, 90), WithFormula(FormulaLegacy))

	dev, err := engine.StandardDeviation(context.Background(), 1)
	require.NoError(t, err)
	require.InDelta(t, math.Sqrt(200.0/3.0-1), dev, 1e-9)

	equal := NewEngine(newMemoryStore(2, 75, 75, 75), WithFormula(FormulaLegacy))
	_, err = equal.StandardDeviation(context.Background(), 2)
	require.ErrorIs(t, err, ErrNonFinite)
}

func TestEngineLegacyVarianceIsPopulationVariance(t *testing.T) {
	equal := NewEngine(newMemoryStore(2, 75, 75, 75), WithFormula(FormulaLegacy))
	variance, err := equal.Variance(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 0.0, variance)

	spread := NewEngine(newMemoryStore(1, 70, 80, 90), WithFormula(FormulaLegacy))
	summary, err := spread.Summary(context.Background(), 1)
	require.NoError(t, err)
	require.InDelta(t, 200.0/3.0, summary.Variance, 1e-9)
	require.InDelta(t, math.Sqrt(summary.Variance-1), summary.StandardDeviation, 1e-9)
}

func TestEnginePopulationDeviation(t *testing.T) {
	engine := NewEngine(newMemoryStore(1, 70, 80, 90), WithFormula(FormulaPopulation))

	dev, err := engine.StandardDeviation(context.Background(), 1)
	require.NoError(t, err)
	require.InDelta(t, math.Sqrt(200.0/3.0), dev, 1e-9)
}

func TestEngineMaxMin(t *testing.T) {
	engine := NewEngine(newMemoryStore(1, 70, 95, 60))
	ctx := context.Background()

	maxScore, err := engine.Max(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 95.0, maxScore.Total)
	require.Equal(t, uint(2), maxScore.ID)

	minScore, err := engine.Min(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 60.0, minScore.Total)
	require.Equal(t, uint(3), minScore.ID)
}

func TestEngineMaxTieGoesToLowestID(t *testing.T) {
	store := &memoryStore{scores: map[uint][]models.MarkingScore{
		1: {
			{ID: 7, Total: 88},
			{ID: 3, Total: 88},
			{ID: 5, Total: 12},
		},
	}}
	engine := NewEngine(store)

	maxScore, err := engine.Max(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, uint(3), maxScore.ID)
}

func TestEngineEmptyAssignment(t *testing.T) {
	engine := NewEngine(newMemoryStore(1))
	ctx := context.Background()

	_, err := engine.Max(ctx, 1)
	require.ErrorIs(t, err, ErrNoData)
	_, err = engine.Min(ctx, 1)
	require.ErrorIs(t, err, ErrNoData)
	_, err = engine.Average(ctx, 1)
	require.ErrorIs(t, err, ErrNoData)
	_, err = engine.StandardDeviation(ctx, 1)
	require.ErrorIs(t, err, ErrNoData)
	_, err = engine.Median(ctx, 1)
	require.ErrorIs(t, err, ErrNoData)
	_, err = engine.Summary(ctx, 99)
	require.ErrorIs(t, err, ErrNoData)
}

func TestEngineCountMismatchUsesResultSetLength(t *testing.T) {
	store := newMemoryStore(1, 70, 80, 90)
	store.countAdj = 2

	var buf bytes.Buffer
	engine := NewEngine(store, WithLogger(zerolog.New(&buf)))

	avg, err := engine.Average(context.Background(), 1)
	require.NoError(t, err)
	require.InDelta(t, 80.0, avg, 1e-9)
	require.Contains(t, buf.String(), "marking score count differs")
}

func TestEngineStrictCountRejectsMismatch(t *testing.T) {
	store := newMemoryStore(1, 70, 80, 90)
	store.countAdj = -1

	engine := NewEngine(store, WithStrictCount())

	_, err := engine.Average(context.Background(), 1)
	require.ErrorIs(t, err, ErrCountMismatch)
}

func TestEngineStoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection reset")
	store := newMemoryStore(1, 70)
	store.findErr = storeErr

	_, err := NewEngine(store).Average(context.Background(), 1)
	require.ErrorIs(t, err, storeErr)
}

func TestEngineMedian(t *testing.T) {
	ctx := context.Background()

	odd, err := NewEngine(newMemoryStore(1, 90, 70, 80)).Median(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 80.0, odd)

	even, err := NewEngine(newMemoryStore(1, 90, 60, 70, 80)).Median(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 75.0, even)
}

func TestEngineSummary(t *testing.T) {
	summary, err := NewEngine(newMemoryStore(4, 70, 95, 60)).Summary(context.Background(), 4)
	require.NoError(t, err)

	require.Equal(t, uint(4), summary.AssignmentID)
	require.Equal(t, 3, summary.Count)
	require.InDelta(t, 75.0, summary.Mean, 1e-9)
	require.InDelta(t, 325.0, summary.Variance, 1e-9)
	require.InDelta(t, math.Sqrt(325.0), summary.StandardDeviation, 1e-9)
	require.Equal(t, 70.0, summary.Median)
	require.Equal(t, 95.0, summary.Max)
	require.Equal(t, 60.0, summary.Min)
	require.Equal(t, FormulaSample, summary.Formula)
}
