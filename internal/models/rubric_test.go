package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRubricMaxTotalAndLookup(t *testing.T) {
	rubric := Rubric{
		Criteria: []Criterion{
			{ID: 1, Title: "Structure", MaxScore: 20},
			{ID: 2, Title: "Analysis", MaxScore: 50},
			{ID: 3, Title: "Referencing", MaxScore: 30},
		},
	}

	require.Equal(t, 100, rubric.MaxTotal())

	criterion, ok := rubric.CriterionByID(2)
	require.True(t, ok)
	require.Equal(t, "Analysis", criterion.Title)

	_, ok = rubric.CriterionByID(9)
	require.False(t, ok)
}

func TestMarkingScoreTotalIsNotRecomputed(t *testing.T) {
	score := MarkingScore{
		Total: 99,
		CriteriaScores: []CriteriaScore{
			{CriterionID: 1, Score: 10},
			{CriterionID: 2, Score: 15},
		},
	}

	require.Equal(t, 25, score.CriteriaSum())
	require.Equal(t, 99.0, score.Total)

	value, ok := score.ScoreFor(2)
	require.True(t, ok)
	require.Equal(t, 15, value)
}
