package services

import (
	"testing"
	"time"

	"puzzlearena/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) (*TimeTracker, *fakeClock, *models.Team, *models.Puzzle) {
	db := testDB(t)
	clock := newFakeClock()
	tracker := NewTimeTracker(db)
	tracker.now = clock.Now

	team := seedTeam(t, db, "alpha")
	seedLevel(t, db, 1, models.EvalInProgress)
	puzzle := seedPuzzle(t, db, 1, 1, 100, 600,
		models.PuzzleHint{Ordinal: 1, Text: "first", PenaltySeconds: 30},
		models.PuzzleHint{Ordinal: 2, Text: "second", PenaltySeconds: 45},
	)
	return tracker, clock, team, puzzle
}

func TestStartQuestionCreatesRowLazily(t *testing.T) {
	tracker, _, team, puzzle := newTestTracker(t)

	row, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionActive, row.Status)
	assert.NotNil(t, row.StartedAt)
	assert.Zero(t, row.TimeSpentSeconds)

	// retry is a no-op, not a second interval
	again, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, row.StartedAt.Unix(), again.StartedAt.Unix())

	session, err := tracker.GetSession(team.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionToken)
}

func TestPauseAccumulatesElapsedTime(t *testing.T) {
	tracker, clock, team, puzzle := newTestTracker(t)

	_, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)

	clock.Advance(90 * time.Second)
	row, err := tracker.PauseQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionPaused, row.Status)
	assert.Equal(t, 90, row.TimeSpentSeconds)
	assert.Nil(t, row.StartedAt)

	// paused time does not count
	clock.Advance(5 * time.Minute)
	remaining, err := tracker.GetRemainingTime(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, remaining.TimeSpentSeconds)
	assert.Equal(t, 510, remaining.RemainingSeconds)
}

func TestPauseResumeCycleKeepsTotal(t *testing.T) {
	tracker, clock, team, puzzle := newTestTracker(t)

	_, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	clock.Advance(60 * time.Second)
	_, err = tracker.PauseQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)

	_, err = tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	clock.Advance(90 * time.Second)
	row, err := tracker.PauseQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)

	assert.Equal(t, 150, row.TimeSpentSeconds)
}

func TestPauseRequiresActive(t *testing.T) {
	tracker, _, team, puzzle := newTestTracker(t)

	_, err := tracker.PauseQuestion(team.ID, puzzle.ID)
	assert.ErrorIs(t, err, ErrNotActive)

	_, err = tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	_, err = tracker.PauseQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)

	// already paused
	_, err = tracker.PauseQuestion(team.ID, puzzle.ID)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestCompleteQuestionIsTerminal(t *testing.T) {
	tracker, clock, team, puzzle := newTestTracker(t)

	_, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	clock.Advance(120 * time.Second)

	row, err := tracker.CompleteQuestion(team.ID, puzzle.ID, SubmissionResult{
		Answer: "42", Correct: true, Points: 100, SubmittedBy: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, models.QuestionCompleted, row.Status)
	assert.Equal(t, 120, row.TimeSpentSeconds)
	assert.Equal(t, 1, row.Attempts)
	assert.NotNil(t, row.CompletedAt)

	// completed never reopens
	_, err = tracker.StartQuestion(team.ID, puzzle.ID)
	assert.True(t, IsInvalidTransition(err))
	_, err = tracker.CompleteQuestion(team.ID, puzzle.ID, SubmissionResult{})
	assert.True(t, IsInvalidTransition(err))

	var sub models.Submission
	require.NoError(t, tracker.db.Where("team_id = ?", team.ID).First(&sub).Error)
	assert.Equal(t, puzzle.Level, sub.Level)
	assert.True(t, sub.IsCorrect)
	assert.Equal(t, models.SubmissionPending, sub.EvaluationStatus)

	session, err := tracker.GetSession(team.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, session.QuestionsCompleted)
	assert.Equal(t, 120, session.EffectiveTimeSeconds)
}

func TestCompleteRefusedAfterTimeExpires(t *testing.T) {
	tracker, clock, team, puzzle := newTestTracker(t)

	_, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	clock.Advance(601 * time.Second)

	_, err = tracker.CompleteQuestion(team.ID, puzzle.ID, SubmissionResult{Correct: true})
	assert.ErrorIs(t, err, ErrTimeExpired)

	remaining, err := tracker.GetRemainingTime(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Zero(t, remaining.RemainingSeconds)
}

func TestSkipQuestion(t *testing.T) {
	tracker, clock, team, puzzle := newTestTracker(t)

	_, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	row, err := tracker.SkipQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionSkipped, row.Status)
	assert.Equal(t, 1, row.SkipCount)
	assert.Equal(t, 30, row.TimeSpentSeconds)
	assert.Equal(t, 60, row.TimePenaltySeconds)

	// skipped questions stay revisitable
	resumed, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionActive, resumed.Status)
}

func TestSkipRequiresActiveOrPaused(t *testing.T) {
	tracker, _, team, puzzle := newTestTracker(t)

	_, err := tracker.SkipQuestion(team.ID, puzzle.ID)
	assert.True(t, IsInvalidTransition(err))
}

func TestSkipBudgetIsSessionWide(t *testing.T) {
	tracker, _, team, _ := newTestTracker(t)

	// budget is 3; a fourth skip anywhere in the session must fail
	for i := 2; i <= 5; i++ {
		p := seedPuzzle(t, tracker.db, 1, i, 100, 600)
		_, err := tracker.StartQuestion(team.ID, p.ID)
		require.NoError(t, err)

		_, err = tracker.SkipQuestion(team.ID, p.ID)
		if i <= 4 {
			require.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrSkipLimitExceeded)
		}
	}

	session, err := tracker.GetSession(team.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, session.TotalSkips)
	assert.Equal(t, 180, session.TotalPenaltySeconds)
}

func TestSkipDisabled(t *testing.T) {
	tracker, _, team, puzzle := newTestTracker(t)
	require.NoError(t, tracker.db.Model(&models.GameSettings{}).Where("1 = 1").Update("skip_enabled", false).Error)

	_, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	_, err = tracker.SkipQuestion(team.ID, puzzle.ID)
	assert.ErrorIs(t, err, ErrSkipDisabled)
}

func TestUseHintOrderAndCap(t *testing.T) {
	tracker, _, team, puzzle := newTestTracker(t)

	_, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)

	first, err := tracker.UseHint(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Ordinal)
	assert.Equal(t, "first", first.Text)

	second, err := tracker.UseHint(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Ordinal)

	_, err = tracker.UseHint(team.ID, puzzle.ID)
	assert.ErrorIs(t, err, ErrNoHintsRemaining)

	remaining, err := tracker.GetRemainingTime(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, remaining.TimePenaltySeconds)
	assert.Equal(t, 525, remaining.RemainingSeconds)
}

func TestHintBeforeStartRefreshesSession(t *testing.T) {
	tracker, _, team, puzzle := newTestTracker(t)

	// the team's very first action is a hint; the session must be created
	// and carry the penalty in the same transaction
	hint, err := tracker.UseHint(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, hint.Ordinal)

	session, err := tracker.GetSession(team.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, session.TotalPenaltySeconds)
	assert.Equal(t, 30, session.EffectiveTimeSeconds)
	assert.Equal(t, 1, session.TotalHints)
	assert.NotEmpty(t, session.SessionToken)
}

func TestGetRemainingTimeLiveDelta(t *testing.T) {
	tracker, clock, team, puzzle := newTestTracker(t)

	// no row yet
	remaining, err := tracker.GetRemainingTime(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionNotStarted, remaining.Status)
	assert.Equal(t, 600, remaining.RemainingSeconds)

	_, err = tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)
	clock.Advance(200 * time.Second)

	remaining, err = tracker.GetRemainingTime(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, remaining.TimeSpentSeconds)
	assert.Equal(t, 400, remaining.RemainingSeconds)

	// reads must not mutate the stored row
	var row models.TeamQuestionProgress
	require.NoError(t, tracker.db.Where("team_id = ?", team.ID).First(&row).Error)
	assert.Zero(t, row.TimeSpentSeconds)
}

func TestWritesLockedWhenLevelClosed(t *testing.T) {
	tracker, _, team, puzzle := newTestTracker(t)

	_, err := tracker.StartQuestion(team.ID, puzzle.ID)
	require.NoError(t, err)

	require.NoError(t, tracker.db.Model(&models.LevelEvaluationState{}).
		Where("level = ?", 1).
		Update("evaluation_state", models.EvalSubmissionsClosed).Error)

	_, err = tracker.StartQuestion(team.ID, puzzle.ID)
	assert.ErrorIs(t, err, ErrQuestionLocked)
	_, err = tracker.CompleteQuestion(team.ID, puzzle.ID, SubmissionResult{})
	assert.ErrorIs(t, err, ErrQuestionLocked)
	_, err = tracker.SkipQuestion(team.ID, puzzle.ID)
	assert.ErrorIs(t, err, ErrQuestionLocked)
	_, err = tracker.UseHint(team.ID, puzzle.ID)
	assert.ErrorIs(t, err, ErrQuestionLocked)

	// reads stay available
	_, err = tracker.GetRemainingTime(team.ID, puzzle.ID)
	assert.NoError(t, err)
}

func TestWritesLockedWhenEventPaused(t *testing.T) {
	tracker, _, team, puzzle := newTestTracker(t)
	require.NoError(t, tracker.db.Model(&models.GameSettings{}).Where("1 = 1").Update("is_paused", true).Error)

	_, err := tracker.StartQuestion(team.ID, puzzle.ID)
	assert.ErrorIs(t, err, ErrQuestionLocked)
}

func TestPuzzleTimeLimitFallsBackToDefault(t *testing.T) {
	tracker, _, team, _ := newTestTracker(t)
	puzzle := seedPuzzle(t, tracker.db, 1, 9, 100, 0) // no own limit

	remaining, err := tracker.GetRemainingTime(team.ID, puzzle.ID)
	require.NoError(t, err)
	assert.Equal(t, 600, remaining.TimeLimitSeconds)
}
