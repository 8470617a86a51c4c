package statistics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/moderation-api/internal/models"
)

var (
	// ErrNoData is returned when there are no marking scores to reduce.
	ErrNoData = errors.New("no data available for this assignment")
	// ErrNonFinite is returned instead of a NaN or infinite result.
	ErrNonFinite = errors.New("statistic is not a finite number")
	// ErrUnknownFormula is returned for an unrecognised deviation formula.
	ErrUnknownFormula = errors.New("unknown deviation formula")
)

// Formula selects the divisor used for variance and standard deviation.
type Formula string

const (
	// FormulaSample divides the sum of squared deviations by n-1.
	FormulaSample Formula = "sample"
	// FormulaPopulation divides the sum of squared deviations by n.
	FormulaPopulation Formula = "population"
	// FormulaLegacy divides by n and then subtracts one before the square
	// root. Kept to reproduce numbers produced by the earlier marking tool;
	// it goes negative whenever the spread is small.
	FormulaLegacy Formula = "legacy"
)

// ParseFormula maps a configuration value onto a formula. Empty means sample.
func ParseFormula(value string) (Formula, error) {
	switch Formula(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormulaSample:
		return FormulaSample, nil
	case FormulaPopulation:
		return FormulaPopulation, nil
	case FormulaLegacy:
		return FormulaLegacy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormula, value)
	}
}

// Totals extracts the stored total of each marking score.
func Totals(scores []models.MarkingScore) []float64 {
	values := make([]float64, 0, len(scores))
	for _, score := range scores {
		values = append(values, score.Total)
	}
	return values
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoData
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return finite(sum / float64(len(values)))
}

// SumSquaredDeviations returns Σ(v-mean)².
func SumSquaredDeviations(values []float64, mean float64) float64 {
	acc := 0.0
	for _, v := range values {
		d := v - mean
		acc += d * d
	}
	return acc
}

// Variance returns the variance of values under the given formula.
// FormulaLegacy only changes the deviation, so its variance is the
// population variance.
func Variance(values []float64, formula Formula) (float64, error) {
	mean, err := Mean(values)
	if err != nil {
		return 0, err
	}
	n := float64(len(values))
	ss := SumSquaredDeviations(values, mean)

	switch formula {
	case FormulaSample, "":
		if len(values) == 1 {
			return 0, nil
		}
		return finite(ss / (n - 1))
	case FormulaPopulation, FormulaLegacy:
		return finite(ss / n)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormula, formula)
	}
}

// Deviation returns the standard deviation of values under the given
// formula. Under FormulaLegacy the radicand is the population variance minus
// one, which is negative whenever the spread is small.
func Deviation(values []float64, formula Formula) (float64, error) {
	radicand, err := Variance(values, formula)
	if err != nil {
		return 0, err
	}
	if formula == FormulaLegacy {
		radicand--
	}
	if radicand < 0 {
		return 0, fmt.Errorf("%w: square root of negative radicand %.4f", ErrNonFinite, radicand)
	}
	return finite(math.Sqrt(radicand))
}

// MedianOf returns the middle value, or the mean of the two middle values
// when the length is even.
func MedianOf(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoData
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return finite(sorted[mid])
	}
	return finite((sorted[mid-1] + sorted[mid]) / 2)
}

// MaxOf selects the marking score with the greatest total. Ties go to the
// lowest id.
func MaxOf(scores []models.MarkingScore) (models.MarkingScore, error) {
	return pick(scores, func(candidate, best float64) bool { return candidate > best })
}

// MinOf selects the marking score with the least total. Ties go to the
// lowest id.
func MinOf(scores []models.MarkingScore) (models.MarkingScore, error) {
	return pick(scores, func(candidate, best float64) bool { return candidate < best })
}

func pick(scores []models.MarkingScore, better func(candidate, best float64) bool) (models.MarkingScore, error) {
	if len(scores) == 0 {
		return models.MarkingScore{}, ErrNoData
	}
	best := scores[0]
	for _, score := range scores {
		if _, err := finite(score.Total); err != nil {
			return models.MarkingScore{}, fmt.Errorf("marking score %d: %w", score.ID, err)
		}
		if better(score.Total, best.Total) || (score.Total == best.Total && score.ID < best.ID) {
			best = score
		}
	}
	return best, nil
}

func finite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFinite
	}
	return v, nil
}
