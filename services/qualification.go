// services/qualification.go - Cutoff evaluation and manual overrides
package services

import (
	"errors"
	"time"

	"puzzlearena/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeamMetrics is the performance snapshot a qualification decision is based
// on. It is frozen into TeamLevelStatus and the audit log at decision time so
// later cutoff edits never rewrite historical reasoning.
type TeamMetrics struct {
	TeamID            uint
	Score             int
	QuestionsAnswered int
	QuestionsCorrect  int
	Accuracy          float64
	TimeTakenSeconds  int
	HintsUsed         int
	PuzzlesCompleted  int
	CompletedAt       *time.Time
}

// Qualifies applies the cutoff thresholds. Pure function over the snapshot.
func Qualifies(m TeamMetrics, c *models.QualificationCutoff) bool {
	return m.Score >= c.MinScore &&
		m.Accuracy >= c.MinAccuracy &&
		m.TimeTakenSeconds <= c.MaxTimeSeconds &&
		m.HintsUsed <= c.MaxHintsAllowed &&
		m.QuestionsCorrect >= c.MinQuestionsCorrect
}

// runQualification scores every team with at least one submission in the
// level against the cutoff, inside the evaluate transition's transaction.
// Teams with a standing manual override keep their decision; everything else
// is recomputed from scratch, which makes evaluate reproducible after a
// reset on an unchanged submission set.
func runQualification(tx *gorm.DB, level int, cutoff *models.QualificationCutoff, actorID uint, now time.Time) error {
	var teamIDs []uint
	if err := tx.Model(&models.Submission{}).
		Where("level = ?", level).
		Distinct().
		Pluck("team_id", &teamIDs).Error; err != nil {
		return err
	}

	var totalPuzzles int64
	if err := tx.Model(&models.Puzzle{}).Where("level = ? AND is_active = ?", level, true).Count(&totalPuzzles).Error; err != nil {
		return err
	}

	for _, teamID := range teamIDs {
		metrics, err := collectTeamMetrics(tx, teamID, level)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Submission{}).
			Where("team_id = ? AND level = ?", teamID, level).
			Update("evaluation_status", models.SubmissionEvaluated).Error; err != nil {
			return err
		}

		status, err := upsertTeamLevelStatus(tx, teamID, level, metrics, int(totalPuzzles))
		if err != nil {
			return err
		}

		decision := models.QualPending
		if status.WasManuallyOverridden {
			decision = status.QualificationStatus
		} else if cutoff.AutoQualify {
			if Qualifies(metrics, cutoff) {
				decision = models.QualQualified
			} else {
				decision = models.QualDisqualified
			}
			status.QualificationStatus = decision
			status.QualificationDecidedAt = &now
		} else {
			// thresholds computed but the admin decides per team
			status.QualificationStatus = models.QualPending
			status.QualificationDecidedAt = nil
		}
		if err := tx.Save(status).Error; err != nil {
			return err
		}

		audit := models.QualificationAuditLog{
			EntryID:          uuid.NewString(),
			Level:            level,
			TeamID:           teamID,
			Decision:         decision,
			Manual:           status.WasManuallyOverridden,
			ActorID:          actorID,
			Score:            metrics.Score,
			Accuracy:         metrics.Accuracy,
			QuestionsCorrect: metrics.QuestionsCorrect,
			TimeTakenSeconds: metrics.TimeTakenSeconds,
			HintsUsed:        metrics.HintsUsed,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}
	}
	return nil
}

// collectTeamMetrics assembles one team's snapshot for a level: score and
// correctness from submissions, effective time from the session aggregate,
// hints from the level's progress rows.
func collectTeamMetrics(tx *gorm.DB, teamID uint, level int) (TeamMetrics, error) {
	m := TeamMetrics{TeamID: teamID}

	var subs []models.Submission
	if err := tx.Where("team_id = ? AND level = ?", teamID, level).Find(&subs).Error; err != nil {
		return m, err
	}
	m.QuestionsAnswered = len(subs)
	for i := range subs {
		if subs[i].IsCorrect {
			m.QuestionsCorrect++
			m.Score += subs[i].Points
		}
	}
	if m.QuestionsAnswered > 0 {
		m.Accuracy = float64(m.QuestionsCorrect) / float64(m.QuestionsAnswered) * 100
	}

	var session models.TeamSession
	err := tx.Where("team_id = ?", teamID).First(&session).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return m, err
	}
	m.TimeTakenSeconds = session.EffectiveTimeSeconds

	var rows []models.TeamQuestionProgress
	if err := tx.
		Joins("JOIN puzzles ON puzzles.id = team_question_progress.puzzle_id").
		Where("team_question_progress.team_id = ? AND puzzles.level = ?", teamID, level).
		Find(&rows).Error; err != nil {
		return m, err
	}
	for i := range rows {
		m.HintsUsed += rows[i].HintsUsed
		if rows[i].Status == models.QuestionCompleted {
			m.PuzzlesCompleted++
			if rows[i].CompletedAt != nil {
				if m.CompletedAt == nil || rows[i].CompletedAt.After(*m.CompletedAt) {
					m.CompletedAt = rows[i].CompletedAt
				}
			}
		}
	}
	return m, nil
}

func upsertTeamLevelStatus(tx *gorm.DB, teamID uint, level int, m TeamMetrics, totalPuzzles int) (*models.TeamLevelStatus, error) {
	var status models.TeamLevelStatus
	err := forUpdate(tx).Where("team_id = ? AND level = ?", teamID, level).First(&status).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		status = models.TeamLevelStatus{TeamID: teamID, Level: level}
	}

	status.Score = m.Score
	status.Accuracy = m.Accuracy
	status.QuestionsAnswered = m.QuestionsAnswered
	status.QuestionsCorrect = m.QuestionsCorrect
	status.TimeTakenSeconds = m.TimeTakenSeconds
	status.HintsUsed = m.HintsUsed
	status.CompletedAt = m.CompletedAt

	switch {
	case totalPuzzles > 0 && m.PuzzlesCompleted >= totalPuzzles:
		status.Status = models.LevelCompleted
	case m.QuestionsAnswered > 0 || m.PuzzlesCompleted > 0:
		status.Status = models.LevelInProgress
	default:
		status.Status = models.LevelNotStarted
	}
	return &status, nil
}

// QualificationService exposes the per-team manual decisions. An override is
// sticky: automatic recomputation and reset_evaluation leave it alone until
// the admin explicitly clears it.
type QualificationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewQualificationService(db *gorm.DB) *QualificationService {
	return &QualificationService{db: db, now: time.Now}
}

// Override sets a manual qualification decision for one team.
func (s *QualificationService) Override(level int, teamID uint, qualified bool, actorID uint, reason string) (*models.TeamLevelStatus, error) {
	var result models.TeamLevelStatus
	err := inTx(s.db, func(tx *gorm.DB) error {
		var status models.TeamLevelStatus
		err := forUpdate(tx).Where("team_id = ? AND level = ?", teamID, level).First(&status).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		now := s.now()
		decision := models.QualDisqualified
		if qualified {
			decision = models.QualQualified
		}
		status.QualificationStatus = decision
		status.QualificationDecidedAt = &now
		status.WasManuallyOverridden = true
		status.OverrideBy = &actorID
		status.OverrideReason = reason
		status.OverrideAt = &now
		if err := tx.Save(&status).Error; err != nil {
			return err
		}

		audit := models.QualificationAuditLog{
			EntryID:          uuid.NewString(),
			Level:            level,
			TeamID:           teamID,
			Decision:         decision,
			Manual:           true,
			ActorID:          actorID,
			Reason:           reason,
			Score:            status.Score,
			Accuracy:         status.Accuracy,
			QuestionsCorrect: status.QuestionsCorrect,
			TimeTakenSeconds: status.TimeTakenSeconds,
			HintsUsed:        status.HintsUsed,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}
		result = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearOverride removes the sticky flag and returns the decision to PENDING.
// Deliberately a separate admin action, never implicit in reset_evaluation.
func (s *QualificationService) ClearOverride(level int, teamID uint, actorID uint) (*models.TeamLevelStatus, error) {
	var result models.TeamLevelStatus
	err := inTx(s.db, func(tx *gorm.DB) error {
		var status models.TeamLevelStatus
		err := forUpdate(tx).Where("team_id = ? AND level = ?", teamID, level).First(&status).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		status.WasManuallyOverridden = false
		status.OverrideBy = nil
		status.OverrideReason = ""
		status.OverrideAt = nil
		status.QualificationStatus = models.QualPending
		status.QualificationDecidedAt = nil
		if err := tx.Save(&status).Error; err != nil {
			return err
		}

		audit := models.QualificationAuditLog{
			EntryID:  uuid.NewString(),
			Level:    level,
			TeamID:   teamID,
			Decision: models.QualPending,
			Manual:   true,
			ActorID:  actorID,
			Reason:   "override cleared",
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}
		result = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAuditTrail returns the qualification decision history for a level.
func (s *QualificationService) GetAuditTrail(level int) ([]models.QualificationAuditLog, error) {
	var entries []models.QualificationAuditLog
	err := s.db.Where("level = ?", level).Order("created_at DESC, id DESC").Find(&entries).Error
	return entries, err
}
