package services

import (
	"testing"
	"time"

	"puzzlearena/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseExpiredQuestions(t *testing.T) {
	tracker, clock, team, puzzle := newTestTracker(t)
	fresh := seedPuzzle(t, tracker.db, 1, 2, 100, 600)

	_, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	clock.Advance(601 * time.Second)
	_, err = tracker.StartQuestion(team.ID, fresh.ID)
	require.NoError(t, err)

	svc := &CleanupService{db: tracker.db, tracker: tracker}
	require.NoError(t, svc.PauseExpiredQuestions())

	var expired models.TeamQuestionProgress
	require.NoError(t, tracker.db.Where("team_id = ? AND puzzle_id = ?", team.ID, puzzle.ID).First(&expired).Error)
	assert.Equal(t, models.QuestionPaused, expired.Status)
	assert.Equal(t, 601, expired.TimeSpentSeconds)

	var active models.TeamQuestionProgress
	require.NoError(t, tracker.db.Where("team_id = ? AND puzzle_id = ?", team.ID, fresh.ID).First(&active).Error)
	assert.Equal(t, models.QuestionActive, active.Status, "questions with time left stay active")
}
