// Package statistics reduces the marking scores of an assignment into class
// summary values. It reads through a Store and holds no state between calls.
package statistics

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/moderation-api/internal/models"
)

// ErrCountMismatch is returned in strict mode when the store's count does not
// match the number of scores it returned.
var ErrCountMismatch = errors.New("marking score count does not match result set")

// Store supplies marking scores by assignment.
type Store interface {
	FindByAssignmentID(ctx context.Context, assignmentID uint) ([]models.MarkingScore, error)
	CountByAssignmentID(ctx context.Context, assignmentID uint) (int64, error)
}

// Summary holds every statistic for one assignment, computed from one read.
type Summary struct {
	AssignmentID      uint    `json:"assignment_id"`
	Count             int     `json:"count"`
	Mean              float64 `json:"mean"`
	Variance          float64 `json:"variance"`
	StandardDeviation float64 `json:"standard_deviation"`
	Median            float64 `json:"median"`
	Max               float64 `json:"max"`
	MaxScoreID        uint    `json:"max_score_id"`
	Min               float64 `json:"min"`
	MinScoreID        uint    `json:"min_score_id"`
	Formula           Formula `json:"formula"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithFormula selects the deviation formula.
func WithFormula(formula Formula) Option {
	return func(e *Engine) {
		if formula == "" {
			formula = FormulaSample
		}
		e.formula = formula
	}
}

// WithStrictCount makes a count mismatch an error instead of a warning.
func WithStrictCount() Option {
	return func(e *Engine) {
		e.strictCount = true
	}
}

// WithLogger sets the logger used for count mismatch warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "statistics_engine").Logger()
	}
}

// Engine computes statistics over the marking scores of an assignment.
// Denominators always use the number of scores returned by the store; the
// separate count is only used to detect an inconsistent store.
type Engine struct {
	store       Store
	formula     Formula
	strictCount bool
	logger      zerolog.Logger
}

// NewEngine constructs an engine reading from store.
func NewEngine(store Store, opts ...Option) *Engine {
	engine := &Engine{
		store:   store,
		formula: FormulaSample,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Formula reports the configured deviation formula.
func (e *Engine) Formula() Formula {
	return e.formula
}

// Scores loads the marking scores for an assignment and checks them against
// the store's count.
func (e *Engine) Scores(ctx context.Context, assignmentID uint) ([]models.MarkingScore, error) {
	scores, err := e.store.FindByAssignmentID(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("find marking scores: %w", err)
	}

	count, err := e.store.CountByAssignmentID(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("count marking scores: %w", err)
	}

	if count != int64(len(scores)) {
		if e.strictCount {
			return nil, fmt.Errorf("%w: count %d, returned %d", ErrCountMismatch, count, len(scores))
		}
		e.logger.Warn().
			Uint("assignment_id", assignmentID).
			Int64("count", count).
			Int("returned", len(scores)).
			Msg("marking score count differs from result set; using result set length")
	}

	if len(scores) == 0 {
		return nil, ErrNoData
	}
	return scores, nil
}

// Average returns the mean total score.
func (e *Engine) Average(ctx context.Context, assignmentID uint) (float64, error) {
	scores, err := e.Scores(ctx, assignmentID)
	if err != nil {
		return 0, err
	}
	return Mean(Totals(scores))
}

// StandardDeviation returns the deviation of total scores under the
// configured formula.
func (e *Engine) StandardDeviation(ctx context.Context, assignmentID uint) (float64, error) {
	scores, err := e.Scores(ctx, assignmentID)
	if err != nil {
		return 0, err
	}
	return Deviation(Totals(scores), e.formula)
}

// Variance returns the variance of total scores under the configured formula.
func (e *Engine) Variance(ctx context.Context, assignmentID uint) (float64, error) {
	scores, err := e.Scores(ctx, assignmentID)
	if err != nil {
		return 0, err
	}
	return Variance(Totals(scores), e.formula)
}

// Max returns the marking score with the greatest total.
func (e *Engine) Max(ctx context.Context, assignmentID uint) (models.MarkingScore, error) {
	scores, err := e.Scores(ctx, assignmentID)
	if err != nil {
		return models.MarkingScore{}, err
	}
	return MaxOf(scores)
}

// Min returns the marking score with the least total.
func (e *Engine) Min(ctx context.Context, assignmentID uint) (models.MarkingScore, error) {
	scores, err := e.Scores(ctx, assignmentID)
	if err != nil {
		return models.MarkingScore{}, err
	}
	return MinOf(scores)
}

// Median returns the median total score.
func (e *Engine) Median(ctx context.Context, assignmentID uint) (float64, error) {
	scores, err := e.Scores(ctx, assignmentID)
	if err != nil {
		return 0, err
	}
	return MedianOf(Totals(scores))
}

// Summary computes every statistic from a single read of the store.
func (e *Engine) Summary(ctx context.Context, assignmentID uint) (Summary, error) {
	scores, err := e.Scores(ctx, assignmentID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(assignmentID, scores, e.formula)
}

// Summarize reduces already loaded scores.
func Summarize(assignmentID uint, scores []models.MarkingScore, formula Formula) (Summary, error) {
	values := Totals(scores)

	mean, err := Mean(values)
	if err != nil {
		return Summary{}, err
	}
	variance, err := Variance(values, formula)
	if err != nil {
		return Summary{}, err
	}
	deviation, err := Deviation(values, formula)
	if err != nil {
		return Summary{}, err
	}
	median, err := MedianOf(values)
	if err != nil {
		return Summary{}, err
	}
	maxScore, err := MaxOf(scores)
	if err != nil {
		return Summary{}, err
	}
	minScore, err := MinOf(scores)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		AssignmentID:      assignmentID,
		Count:             len(scores),
		Mean:              mean,
		Variance:          variance,
		StandardDeviation: deviation,
		Median:            median,
		Max:               maxScore.Total,
		MaxScoreID:        maxScore.ID,
		Min:               minScore.Total,
		MinScoreID:        minScore.ID,
		Formula:           formula,
	}, nil
}
