package services

import (
	"testing"

	"puzzlearena/models"

	"github.com/stretchr/testify/assert"
)

func TestHintPenaltySeconds(t *testing.T) {
	settings := &models.GameSettings{HintPenaltySeconds: 30}
	puzzle := &models.Puzzle{
		Hints: []models.PuzzleHint{
			{Ordinal: 1, PenaltySeconds: 15},
			{Ordinal: 2, PenaltySeconds: 0},
		},
	}

	assert.Equal(t, 15, HintPenaltySeconds(puzzle, settings, 1), "hint with its own penalty")
	assert.Equal(t, 30, HintPenaltySeconds(puzzle, settings, 2), "hint without a penalty falls back to the default")
	assert.Equal(t, 30, HintPenaltySeconds(puzzle, settings, 7), "unknown ordinal falls back to the default")
}

func TestComputeSessionAggregates(t *testing.T) {
	rows := []models.TeamQuestionProgress{
		{Status: models.QuestionCompleted, TimeSpentSeconds: 150, TimePenaltySeconds: 30, HintsUsed: 1},
		{Status: models.QuestionSkipped, TimeSpentSeconds: 40, TimePenaltySeconds: 60, SkipCount: 1},
		{Status: models.QuestionPaused, TimeSpentSeconds: 25},
		{Status: models.QuestionNotStarted},
	}

	agg := ComputeSessionAggregates(rows)

	assert.Equal(t, 215, agg.TotalTimeSeconds)
	assert.Equal(t, 90, agg.TotalPenaltySeconds)
	assert.Equal(t, 305, agg.EffectiveTimeSeconds)
	assert.Equal(t, 1, agg.QuestionsCompleted)
	assert.Equal(t, 1, agg.QuestionsSkipped)
	assert.Equal(t, 1, agg.TotalSkips)
	assert.Equal(t, 1, agg.TotalHints)
}

func TestComputeSessionAggregatesEmpty(t *testing.T) {
	agg := ComputeSessionAggregates(nil)
	assert.Zero(t, agg.EffectiveTimeSeconds)
	assert.Zero(t, agg.QuestionsCompleted)
}

// A question that took 150s of wall time and one 30s hint costs 180s of
// effective time.
func TestEffectiveTimeWithHintPenalty(t *testing.T) {
	rows := []models.TeamQuestionProgress{
		{Status: models.QuestionCompleted, TimeSpentSeconds: 150, TimePenaltySeconds: 30, HintsUsed: 1},
	}
	agg := ComputeSessionAggregates(rows)
	assert.Equal(t, 180, agg.EffectiveTimeSeconds)
}
