package services

import (
	"testing"
	"time"

	"puzzlearena/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const adminID uint = 99

func newTestEvaluation(t *testing.T) (*EvaluationService, *gorm.DB) {
	db := testDB(t)
	svc := NewEvaluationService(db, NewEventHub())
	svc.now = newFakeClock().Now
	seedLevel(t, db, 1, models.EvalInProgress)
	return svc, db
}

func seedCutoff(t *testing.T, db *gorm.DB, level int) {
	t.Helper()
	require.NoError(t, db.Create(&models.QualificationCutoff{
		Level:       level,
		AutoQualify: true,
	}).Error)
}

// seedScoredTeam creates a team with one completed puzzle, its submission, and
// the session row the qualification engine reads.
func seedScoredTeam(t *testing.T, db *gorm.DB, name string, puzzle *models.Puzzle, correct bool, points, timeSeconds int) *models.Team {
	t.Helper()
	team := seedTeam(t, db, name)
	done := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.TeamQuestionProgress{
		TeamID:           team.ID,
		PuzzleID:         puzzle.ID,
		Status:           models.QuestionCompleted,
		CompletedAt:      &done,
		TimeSpentSeconds: timeSeconds,
	}).Error)
	require.NoError(t, db.Create(&models.Submission{
		TeamID:           team.ID,
		PuzzleID:         puzzle.ID,
		Level:            puzzle.Level,
		IsCorrect:        correct,
		Points:           points,
		EvaluationStatus: models.SubmissionPending,
	}).Error)
	require.NoError(t, db.Create(&models.TeamSession{
		TeamID:               team.ID,
		EffectiveTimeSeconds: timeSeconds,
		QuestionsCompleted:   1,
	}).Error)
	return team
}

func TestCloseSubmissions(t *testing.T) {
	svc, _ := newTestEvaluation(t)

	state, err := svc.CloseSubmissions(1, adminID)
	require.NoError(t, err)
	assert.Equal(t, models.EvalSubmissionsClosed, state.EvaluationState)
	assert.NotNil(t, state.ClosedAt)
	require.NotNil(t, state.ClosedBy)
	assert.Equal(t, adminID, *state.ClosedBy)

	// double close fails and leaves the state alone
	_, err = svc.CloseSubmissions(1, adminID)
	assert.True(t, IsInvalidTransition(err))

	current, err := svc.GetStatus(1)
	require.NoError(t, err)
	assert.Equal(t, models.EvalSubmissionsClosed, current.EvaluationState)
}

func TestReopenSubmissions(t *testing.T) {
	svc, _ := newTestEvaluation(t)

	_, err := svc.ReopenSubmissions(1, adminID)
	assert.True(t, IsInvalidTransition(err), "reopen from IN_PROGRESS")

	_, err = svc.CloseSubmissions(1, adminID)
	require.NoError(t, err)

	state, err := svc.ReopenSubmissions(1, adminID)
	require.NoError(t, err)
	assert.Equal(t, models.EvalInProgress, state.EvaluationState)
	assert.Nil(t, state.ClosedAt)
}

func TestEvaluateRequiresClosedAndCutoff(t *testing.T) {
	svc, db := newTestEvaluation(t)

	_, err := svc.Evaluate(1, adminID)
	assert.True(t, IsInvalidTransition(err), "evaluate from IN_PROGRESS")

	_, err = svc.CloseSubmissions(1, adminID)
	require.NoError(t, err)

	// no cutoff configured yet
	_, err = svc.Evaluate(1, adminID)
	assert.ErrorIs(t, err, ErrConfigurationError)

	// the failed attempt must not have advanced the state
	current, err := svc.GetStatus(1)
	require.NoError(t, err)
	assert.Equal(t, models.EvalSubmissionsClosed, current.EvaluationState)

	seedCutoff(t, db, 1)
	state, err := svc.Evaluate(1, adminID)
	require.NoError(t, err)
	assert.Equal(t, models.EvalEvaluating, state.EvaluationState)
}

func TestFullForwardPath(t *testing.T) {
	svc, db := newTestEvaluation(t)
	puzzle := seedPuzzle(t, db, 1, 1, 100, 600)
	team := seedScoredTeam(t, db, "alpha", puzzle, true, 100, 300)
	seedCutoff(t, db, 1)

	_, err := svc.CloseSubmissions(1, adminID)
	require.NoError(t, err)
	_, err = svc.Evaluate(1, adminID)
	require.NoError(t, err)

	state, err := svc.PublishResults(1, adminID)
	require.NoError(t, err)
	assert.Equal(t, models.EvalResultsPublished, state.EvaluationState)

	var status models.TeamLevelStatus
	require.NoError(t, db.Where("team_id = ? AND level = ?", team.ID, 1).First(&status).Error)
	assert.True(t, status.ResultsVisible)
	assert.Equal(t, models.QualQualified, status.QualificationStatus)

	var sub models.Submission
	require.NoError(t, db.Where("team_id = ?", team.ID).First(&sub).Error)
	assert.Equal(t, models.SubmissionEvaluated, sub.EvaluationStatus)
}

func TestPublishRequiresEvaluatedTeams(t *testing.T) {
	svc, db := newTestEvaluation(t)
	puzzle := seedPuzzle(t, db, 1, 1, 100, 600)
	seedScoredTeam(t, db, "alpha", puzzle, true, 100, 300)
	seedCutoff(t, db, 1)

	_, err := svc.PublishResults(1, adminID)
	assert.True(t, IsInvalidTransition(err), "publish from IN_PROGRESS")

	_, err = svc.CloseSubmissions(1, adminID)
	require.NoError(t, err)
	_, err = svc.Evaluate(1, adminID)
	require.NoError(t, err)

	// a team that submits after evaluation leaves the pass incomplete
	lateTeam := seedScoredTeam(t, db, "late", puzzle, true, 100, 200)
	_ = lateTeam
	_, err = svc.PublishResults(1, adminID)
	assert.True(t, IsInvalidTransition(err), "publish with unevaluated team")
}

func TestResetEvaluationRollsBackDecisionsNotEvidence(t *testing.T) {
	svc, db := newTestEvaluation(t)
	puzzle := seedPuzzle(t, db, 1, 1, 100, 600)
	team := seedScoredTeam(t, db, "alpha", puzzle, true, 100, 300)
	seedCutoff(t, db, 1)

	_, err := svc.CloseSubmissions(1, adminID)
	require.NoError(t, err)
	_, err = svc.Evaluate(1, adminID)
	require.NoError(t, err)
	_, err = svc.PublishResults(1, adminID)
	require.NoError(t, err)

	state, err := svc.ResetEvaluation(1, adminID)
	require.NoError(t, err)
	assert.Equal(t, models.EvalSubmissionsClosed, state.EvaluationState)
	assert.Nil(t, state.EvaluatedAt)
	assert.Nil(t, state.PublishedAt)

	var status models.TeamLevelStatus
	require.NoError(t, db.Where("team_id = ? AND level = ?", team.ID, 1).First(&status).Error)
	assert.Equal(t, models.QualPending, status.QualificationStatus)
	assert.False(t, status.ResultsVisible)

	// submissions survive, back in PENDING
	var subs []models.Submission
	require.NoError(t, db.Where("team_id = ?", team.ID).Find(&subs).Error)
	require.Len(t, subs, 1)
	assert.Equal(t, models.SubmissionPending, subs[0].EvaluationStatus)

	// evaluate again from the unchanged set gives the same answer
	_, err = svc.Evaluate(1, adminID)
	require.NoError(t, err)
	require.NoError(t, db.Where("team_id = ? AND level = ?", team.ID, 1).First(&status).Error)
	assert.Equal(t, models.QualQualified, status.QualificationStatus)
}

func TestAuditTrailRecordsEveryTransition(t *testing.T) {
	svc, db := newTestEvaluation(t)
	seedCutoff(t, db, 1)

	_, err := svc.CloseSubmissions(1, adminID)
	require.NoError(t, err)
	_, err = svc.ReopenSubmissions(1, adminID)
	require.NoError(t, err)
	_, err = svc.CloseSubmissions(1, adminID)
	require.NoError(t, err)
	_, err = svc.Evaluate(1, adminID)
	require.NoError(t, err)

	entries, err := svc.GetAuditTrail(1)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	// newest first
	assert.Equal(t, "evaluate", entries[0].Action)
	assert.Equal(t, models.EvalSubmissionsClosed, entries[0].FromState)
	assert.Equal(t, models.EvalEvaluating, entries[0].ToState)
	assert.Equal(t, adminID, entries[0].ActorID)
	for _, e := range entries {
		assert.NotEmpty(t, e.EntryID)
	}
}

func TestUpdateCutoffRefusedOnceEvaluating(t *testing.T) {
	svc, db := newTestEvaluation(t)
	seedCutoff(t, db, 1)

	saved, err := svc.UpdateCutoff(1, models.QualificationCutoff{
		MinScore:    500,
		MinAccuracy: 60,
		AutoQualify: true,
	}, adminID)
	require.NoError(t, err)
	assert.Equal(t, 500, saved.MinScore)

	_, err = svc.CloseSubmissions(1, adminID)
	require.NoError(t, err)

	// still editable while closed
	_, err = svc.UpdateCutoff(1, models.QualificationCutoff{MinScore: 550, AutoQualify: true}, adminID)
	require.NoError(t, err)

	_, err = svc.Evaluate(1, adminID)
	require.NoError(t, err)

	_, err = svc.UpdateCutoff(1, models.QualificationCutoff{MinScore: 1}, adminID)
	assert.True(t, IsInvalidTransition(err))
}

func TestTransitionPublishesEvent(t *testing.T) {
	db := testDB(t)
	hub := NewEventHub()
	svc := NewEvaluationService(db, hub)
	seedLevel(t, db, 1, models.EvalInProgress)

	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	_, err := svc.CloseSubmissions(1, adminID)
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, "evaluation.close", ev.Type)
		assert.Equal(t, 1, ev.Level)
		assert.Equal(t, models.EvalSubmissionsClosed, ev.State)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestUnknownLevel(t *testing.T) {
	svc, _ := newTestEvaluation(t)
	_, err := svc.CloseSubmissions(42, adminID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetStatus(42)
	assert.ErrorIs(t, err, ErrNotFound)
}
