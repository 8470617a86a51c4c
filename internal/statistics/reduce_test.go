package statistics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/moderation-api/internal/models"
)

func TestDeviationIsNonNegative(t *testing.T) {
	samples := [][]float64{
		{1},
		{3, 3},
		{0, 100},
		{12.5, 17.25, 3, 44},
		{-5, 5, -5, 5},
	}
	for _, values := range samples {
		for _, formula := range []Formula{FormulaSample, FormulaPopulation} {
			dev, err := Deviation(values, formula)
			require.NoError(t, err)
			require.GreaterOrEqual(t, dev, 0.0)
		}
	}
}

func TestSingleScoreSampleDeviationIsZero(t *testing.T) {
	dev, err := Deviation([]float64{42}, FormulaSample)
	require.NoError(t, err)
	require.Equal(t, 0.0, dev)
}

func TestNaNTotalsAreRejected(t *testing.T) {
	_, err := Mean([]float64{1, math.NaN()})
	require.ErrorIs(t, err, ErrNonFinite)

	_, err = MaxOf([]models.MarkingScore{{ID: 1, Total: 1}, {ID: 2, Total: math.Inf(1)}})
	require.ErrorIs(t, err, ErrNonFinite)
}

func TestParseFormula(t *testing.T) {
	formula, err := ParseFormula("")
	require.NoError(t, err)
	require.Equal(t, FormulaSample, formula)

	formula, err = ParseFormula(" Legacy ")
	require.NoError(t, err)
	require.Equal(t, FormulaLegacy, formula)

	_, err = ParseFormula("bessel")
	require.ErrorIs(t, err, ErrUnknownFormula)
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	median, err := MedianOf(values)
	require.NoError(t, err)
	require.Equal(t, 2.0, median)
	require.Equal(t, []float64{3, 1, 2}, values)
}
