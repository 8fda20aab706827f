// services/timetracker.go - Per-team per-question time accounting
package services

import (
	"errors"
	"sort"
	"time"

	"puzzlearena/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimeTracker owns TeamQuestionProgress rows and the derived TeamSession
// aggregates. Every mutation runs in a transaction with a row lock on the
// specific (team, puzzle) row, so concurrent retries serialize instead of
// double-counting elapsed time.
type TimeTracker struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTimeTracker(db *gorm.DB) *TimeTracker {
	return &TimeTracker{db: db, now: time.Now}
}

// SubmissionResult is what the external answer checker decided about a
// completed question. This core stores it, it never judges answers itself.
type SubmissionResult struct {
	Answer      string `json:"answer"`
	Correct     bool   `json:"correct"`
	Points      int    `json:"points"`
	SubmittedBy uint   `json:"submitted_by"`
}

// RemainingTime is the server-authoritative timer view for one question.
type RemainingTime struct {
	RemainingSeconds   int                   `json:"remaining_seconds"`
	TimeSpentSeconds   int                   `json:"time_spent_seconds"`
	TimePenaltySeconds int                   `json:"time_penalty_seconds"`
	TimeLimitSeconds   int                   `json:"time_limit_seconds"`
	Status             models.QuestionStatus `json:"status"`
}

// ================== TEAM OPERATIONS ==================

// StartQuestion activates a question for a team, creating the progress row
// lazily on first access. Starting an already-active question is a no-op, so
// client retries are safe. Resuming a paused or skipped question is allowed;
// a completed question never reopens.
func (t *TimeTracker) StartQuestion(teamID, puzzleID uint) (*models.TeamQuestionProgress, error) {
	puzzle, _, err := t.loadPuzzleGate(puzzleID)
	if err != nil {
		return nil, err
	}

	var progress *models.TeamQuestionProgress
	err = inTx(t.db, func(tx *gorm.DB) error {
		row, err := t.lockOrCreateProgress(tx, teamID, puzzle)
		if err != nil {
			return err
		}

		switch row.Status {
		case models.QuestionActive:
			// idempotent under retry
		case models.QuestionCompleted:
			return newQuestionTransitionError("start", row.Status)
		default:
			now := t.now()
			row.Status = models.QuestionActive
			row.StartedAt = &now
			if err := tx.Save(row).Error; err != nil {
				return err
			}
		}

		if err := t.ensureSession(tx, teamID); err != nil {
			return err
		}
		progress = row
		return t.refreshSession(tx, teamID)
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// PauseQuestion flushes the running interval into TimeSpentSeconds and parks
// the question. Only legal while the question is active.
func (t *TimeTracker) PauseQuestion(teamID, puzzleID uint) (*models.TeamQuestionProgress, error) {
	var progress *models.TeamQuestionProgress
	err := inTx(t.db, func(tx *gorm.DB) error {
		row, err := t.lockProgress(tx, teamID, puzzleID)
		if errors.Is(err, ErrNotFound) {
			return ErrNotActive
		}
		if err != nil {
			return err
		}
		if row.Status != models.QuestionActive {
			return ErrNotActive
		}

		t.flushDelta(row)
		row.Status = models.QuestionPaused
		if err := tx.Save(row).Error; err != nil {
			return err
		}
		progress = row
		return t.refreshSession(tx, teamID)
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// CompleteQuestion flushes any running interval, records the checker's
// verdict as a submission, and makes the question terminal. The submission is
// refused outright once the computed remaining time has hit zero.
func (t *TimeTracker) CompleteQuestion(teamID, puzzleID uint, result SubmissionResult) (*models.TeamQuestionProgress, error) {
	puzzle, settings, err := t.loadPuzzleGate(puzzleID)
	if err != nil {
		return nil, err
	}

	var progress *models.TeamQuestionProgress
	err = inTx(t.db, func(tx *gorm.DB) error {
		row, err := t.lockOrCreateProgress(tx, teamID, puzzle)
		if err != nil {
			return err
		}
		if row.Status == models.QuestionCompleted {
			return newQuestionTransitionError("complete", row.Status)
		}

		if remainingSeconds(row, puzzle, settings, t.now()) <= 0 {
			return ErrTimeExpired
		}

		if row.Status == models.QuestionActive {
			t.flushDelta(row)
		}
		now := t.now()
		row.Status = models.QuestionCompleted
		row.CompletedAt = &now
		row.Attempts++
		if err := tx.Save(row).Error; err != nil {
			return err
		}

		submission := models.Submission{
			TeamID:           teamID,
			PuzzleID:         puzzle.ID,
			Level:            puzzle.Level,
			SubmittedBy:      result.SubmittedBy,
			Answer:           result.Answer,
			IsCorrect:        result.Correct,
			Points:           result.Points,
			EvaluationStatus: models.SubmissionPending,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}

		if err := t.ensureSession(tx, teamID); err != nil {
			return err
		}
		progress = row
		return t.refreshSession(tx, teamID)
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// SkipQuestion defers a question: it stays revisitable, costs the configured
// penalty, and counts against the per-team skip budget. Completed questions
// cannot be skipped.
func (t *TimeTracker) SkipQuestion(teamID, puzzleID uint) (*models.TeamQuestionProgress, error) {
	_, settings, err := t.loadPuzzleGate(puzzleID)
	if err != nil {
		return nil, err
	}
	if !settings.SkipEnabled {
		return nil, ErrSkipDisabled
	}

	var progress *models.TeamQuestionProgress
	err = inTx(t.db, func(tx *gorm.DB) error {
		row, err := t.lockProgress(tx, teamID, puzzleID)
		if errors.Is(err, ErrNotFound) {
			return newQuestionTransitionError("skip", models.QuestionNotStarted)
		}
		if err != nil {
			return err
		}
		if row.Status != models.QuestionActive && row.Status != models.QuestionPaused {
			return newQuestionTransitionError("skip", row.Status)
		}

		var used int64
		if err := tx.Model(&models.TeamQuestionProgress{}).
			Where("team_id = ?", teamID).
			Select("COALESCE(SUM(skip_count), 0)").
			Scan(&used).Error; err != nil {
			return err
		}
		if int(used) >= settings.MaxSkipsPerTeam {
			return ErrSkipLimitExceeded
		}

		if row.Status == models.QuestionActive {
			t.flushDelta(row)
		}
		row.Status = models.QuestionSkipped
		row.SkipCount++
		row.TimePenaltySeconds += SkipPenaltySeconds(settings)
		if err := tx.Save(row).Error; err != nil {
			return err
		}
		progress = row
		return t.refreshSession(tx, teamID)
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// UseHint hands out the next unused hint by ordinal and books its penalty.
// The hint content itself comes from the puzzle definition; it is resolved
// before any lock is taken.
func (t *TimeTracker) UseHint(teamID, puzzleID uint) (*models.PuzzleHint, error) {
	puzzle, settings, err := t.loadPuzzleGate(puzzleID)
	if err != nil {
		return nil, err
	}
	hints := append([]models.PuzzleHint(nil), puzzle.Hints...)
	sort.Slice(hints, func(i, j int) bool { return hints[i].Ordinal < hints[j].Ordinal })

	var hint *models.PuzzleHint
	err = inTx(t.db, func(tx *gorm.DB) error {
		row, err := t.lockOrCreateProgress(tx, teamID, puzzle)
		if err != nil {
			return err
		}
		if row.Status == models.QuestionCompleted {
			return newQuestionTransitionError("use hint on", row.Status)
		}
		if row.HintsUsed >= len(hints) {
			return ErrNoHintsRemaining
		}

		next := hints[row.HintsUsed]
		row.HintsUsed++
		row.TimePenaltySeconds += HintPenaltySeconds(puzzle, settings, next.Ordinal)
		if err := tx.Save(row).Error; err != nil {
			return err
		}
		if err := t.ensureSession(tx, teamID); err != nil {
			return err
		}
		hint = &next
		return t.refreshSession(tx, teamID)
	})
	if err != nil {
		return nil, err
	}
	return hint, nil
}

// GetRemainingTime recomputes the authoritative timer for one question. Pure
// read: it accounts for the live, uncommitted delta of an active question
// without writing anything.
func (t *TimeTracker) GetRemainingTime(teamID, puzzleID uint) (*RemainingTime, error) {
	puzzle, settings, err := t.loadPuzzle(puzzleID)
	if err != nil {
		return nil, err
	}

	var row models.TeamQuestionProgress
	err = t.db.Where("team_id = ? AND puzzle_id = ?", teamID, puzzleID).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		row = models.TeamQuestionProgress{Status: models.QuestionNotStarted}
	}

	limit := puzzle.EffectiveTimeLimit(settings)
	spent := row.TimeSpentSeconds
	if row.Status == models.QuestionActive && row.StartedAt != nil {
		spent += int(t.now().Sub(*row.StartedAt).Seconds())
	}
	remaining := limit - spent - row.TimePenaltySeconds
	if remaining < 0 {
		remaining = 0
	}

	return &RemainingTime{
		RemainingSeconds:   remaining,
		TimeSpentSeconds:   spent,
		TimePenaltySeconds: row.TimePenaltySeconds,
		TimeLimitSeconds:   limit,
		Status:             row.Status,
	}, nil
}

// GetSession returns the team's session aggregate row.
func (t *TimeTracker) GetSession(teamID uint) (*models.TeamSession, error) {
	var session models.TeamSession
	if err := t.db.Where("team_id = ?", teamID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// ================== INTERNALS ==================

// flushDelta folds the running interval into TimeSpentSeconds and clears
// StartedAt. Callers must hold the row lock.
func (t *TimeTracker) flushDelta(row *models.TeamQuestionProgress) {
	if row.StartedAt != nil {
		delta := int(t.now().Sub(*row.StartedAt).Seconds())
		if delta > 0 {
			row.TimeSpentSeconds += delta
		}
		row.StartedAt = nil
	}
}

func remainingSeconds(row *models.TeamQuestionProgress, puzzle *models.Puzzle, settings *models.GameSettings, now time.Time) int {
	spent := row.TimeSpentSeconds
	if row.Status == models.QuestionActive && row.StartedAt != nil {
		spent += int(now.Sub(*row.StartedAt).Seconds())
	}
	return puzzle.EffectiveTimeLimit(settings) - spent - row.TimePenaltySeconds
}

// loadPuzzle fetches the puzzle with its hints plus the game settings.
func (t *TimeTracker) loadPuzzle(puzzleID uint) (*models.Puzzle, *models.GameSettings, error) {
	var puzzle models.Puzzle
	if err := t.db.Preload("Hints").First(&puzzle, puzzleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	settings, err := loadSettings(t.db)
	if err != nil {
		return nil, nil, err
	}
	return &puzzle, settings, nil
}

// loadPuzzleGate is loadPuzzle plus the write gates: the event must not be
// paused and the owning level must be accepting submissions.
func (t *TimeTracker) loadPuzzleGate(puzzleID uint) (*models.Puzzle, *models.GameSettings, error) {
	puzzle, settings, err := t.loadPuzzle(puzzleID)
	if err != nil {
		return nil, nil, err
	}
	if settings.IsPaused {
		return nil, nil, ErrQuestionLocked
	}

	var state models.LevelEvaluationState
	if err := t.db.Where("level = ?", puzzle.Level).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if state.EvaluationState != models.EvalInProgress {
		return nil, nil, ErrQuestionLocked
	}
	return puzzle, settings, nil
}

func (t *TimeTracker) lockProgress(tx *gorm.DB, teamID, puzzleID uint) (*models.TeamQuestionProgress, error) {
	var row models.TeamQuestionProgress
	err := forUpdate(tx).Where("team_id = ? AND puzzle_id = ?", teamID, puzzleID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (t *TimeTracker) lockOrCreateProgress(tx *gorm.DB, teamID uint, puzzle *models.Puzzle) (*models.TeamQuestionProgress, error) {
	row, err := t.lockProgress(tx, teamID, puzzle.ID)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	fresh := models.TeamQuestionProgress{
		TeamID:   teamID,
		PuzzleID: puzzle.ID,
		Status:   models.QuestionNotStarted,
	}
	if err := tx.Create(&fresh).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

func (t *TimeTracker) ensureSession(tx *gorm.DB, teamID uint) error {
	var count int64
	if err := tx.Model(&models.TeamSession{}).Where("team_id = ?", teamID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	session := models.TeamSession{
		TeamID:       teamID,
		SessionToken: uuid.NewString(),
		IsActive:     true,
		StartedAt:    t.now(),
	}
	return tx.Create(&session).Error
}

// refreshSession recomputes the derived session aggregates from the team's
// question rows, inside the caller's transaction.
func (t *TimeTracker) refreshSession(tx *gorm.DB, teamID uint) error {
	var rows []models.TeamQuestionProgress
	if err := tx.Where("team_id = ?", teamID).Find(&rows).Error; err != nil {
		return err
	}
	agg := ComputeSessionAggregates(rows)

	var lastCompleted *time.Time
	for i := range rows {
		if rows[i].CompletedAt != nil {
			if lastCompleted == nil || rows[i].CompletedAt.After(*lastCompleted) {
				lastCompleted = rows[i].CompletedAt
			}
		}
	}

	return tx.Model(&models.TeamSession{}).
		Where("team_id = ?", teamID).
		Updates(map[string]interface{}{
			"total_time_seconds":     agg.TotalTimeSeconds,
			"total_penalty_seconds":  agg.TotalPenaltySeconds,
			"effective_time_seconds": agg.EffectiveTimeSeconds,
			"questions_completed":    agg.QuestionsCompleted,
			"questions_skipped":      agg.QuestionsSkipped,
			"total_skips":            agg.TotalSkips,
			"total_hints":            agg.TotalHints,
			"last_completed_at":      lastCompleted,
			"updated_at":             t.now(),
		}).Error
}
