// services/evaluation.go - Per-level evaluation state machine
package services

import (
	"errors"
	"time"

	"puzzlearena/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EvaluationService drives the per-level state machine:
//
//	IN_PROGRESS --close--> SUBMISSIONS_CLOSED --evaluate--> EVALUATING --publish--> RESULTS_PUBLISHED
//
// with admin-only back-edges reopen (SUBMISSIONS_CLOSED -> IN_PROGRESS) and
// reset_evaluation (EVALUATING/RESULTS_PUBLISHED -> SUBMISSIONS_CLOSED).
// Every transition locks the level row, writes the state change and its audit
// entry in one transaction, and publishes an event. A transition attempted
// from the wrong state fails with StateTransitionError and changes nothing;
// of two concurrent admin clicks the loser gets that error because the winner
// already advanced the state.
type EvaluationService struct {
	db  *gorm.DB
	hub *EventHub
	now func() time.Time
}

func NewEvaluationService(db *gorm.DB, hub *EventHub) *EvaluationService {
	return &EvaluationService{db: db, hub: hub, now: time.Now}
}

// CloseSubmissions freezes the submission set for a level.
func (s *EvaluationService) CloseSubmissions(level int, actorID uint) (*models.LevelEvaluationState, error) {
	return s.transition(level, actorID, "close", models.EvalSubmissionsClosed,
		func(state *models.LevelEvaluationState, tx *gorm.DB) error {
			if state.EvaluationState != models.EvalInProgress {
				return newLevelTransitionError("close", state.EvaluationState)
			}
			now := s.now()
			state.ClosedAt = &now
			state.ClosedBy = &actorID
			return nil
		})
}

// ReopenSubmissions re-permits writes. Nothing is discarded.
func (s *EvaluationService) ReopenSubmissions(level int, actorID uint) (*models.LevelEvaluationState, error) {
	return s.transition(level, actorID, "reopen", models.EvalInProgress,
		func(state *models.LevelEvaluationState, tx *gorm.DB) error {
			if state.EvaluationState != models.EvalSubmissionsClosed {
				return newLevelTransitionError("reopen", state.EvaluationState)
			}
			state.ClosedAt = nil
			state.ClosedBy = nil
			return nil
		})
}

// Evaluate runs the qualification engine over the frozen submission set.
// Only legal from SUBMISSIONS_CLOSED so the set cannot shift mid-scoring;
// fails with ErrConfigurationError when the level has no cutoff.
func (s *EvaluationService) Evaluate(level int, actorID uint) (*models.LevelEvaluationState, error) {
	return s.transition(level, actorID, "evaluate", models.EvalEvaluating,
		func(state *models.LevelEvaluationState, tx *gorm.DB) error {
			if state.EvaluationState != models.EvalSubmissionsClosed {
				return newLevelTransitionError("evaluate", state.EvaluationState)
			}

			var cutoff models.QualificationCutoff
			if err := tx.Where("level = ?", level).First(&cutoff).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrConfigurationError
				}
				return err
			}

			if err := runQualification(tx, level, &cutoff, actorID, s.now()); err != nil {
				return err
			}

			now := s.now()
			state.EvaluatedAt = &now
			state.EvaluatedBy = &actorID
			return nil
		})
}

// PublishResults makes the level's results visible. Requires a completed
// evaluation pass: every team with a submission must already have its
// TeamLevelStatus row.
func (s *EvaluationService) PublishResults(level int, actorID uint) (*models.LevelEvaluationState, error) {
	return s.transition(level, actorID, "publish", models.EvalResultsPublished,
		func(state *models.LevelEvaluationState, tx *gorm.DB) error {
			if state.EvaluationState != models.EvalEvaluating {
				return newLevelTransitionError("publish", state.EvaluationState)
			}

			var submittingTeams, evaluatedTeams int64
			if err := tx.Model(&models.Submission{}).
				Where("level = ?", level).
				Distinct("team_id").
				Count(&submittingTeams).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.TeamLevelStatus{}).
				Where("level = ?", level).
				Count(&evaluatedTeams).Error; err != nil {
				return err
			}
			if evaluatedTeams < submittingTeams {
				return newLevelTransitionError("publish", state.EvaluationState)
			}

			if err := tx.Model(&models.TeamLevelStatus{}).
				Where("level = ?", level).
				Update("results_visible", true).Error; err != nil {
				return err
			}

			now := s.now()
			state.PublishedAt = &now
			state.PublishedBy = &actorID
			return nil
		})
}

// ResetEvaluation rolls the decision back, not the evidence: qualification
// and submission evaluation statuses return to PENDING, raw submissions and
// time data stay. Rows with a standing manual override keep their decision.
func (s *EvaluationService) ResetEvaluation(level int, actorID uint) (*models.LevelEvaluationState, error) {
	return s.transition(level, actorID, "reset_evaluation", models.EvalSubmissionsClosed,
		func(state *models.LevelEvaluationState, tx *gorm.DB) error {
			if state.EvaluationState != models.EvalEvaluating && state.EvaluationState != models.EvalResultsPublished {
				return newLevelTransitionError("reset_evaluation", state.EvaluationState)
			}

			if err := tx.Model(&models.TeamLevelStatus{}).
				Where("level = ? AND was_manually_overridden = ?", level, false).
				Updates(map[string]interface{}{
					"qualification_status":     models.QualPending,
					"qualification_decided_at": nil,
				}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.TeamLevelStatus{}).
				Where("level = ?", level).
				Update("results_visible", false).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Submission{}).
				Where("level = ?", level).
				Update("evaluation_status", models.SubmissionPending).Error; err != nil {
				return err
			}

			state.EvaluatedAt = nil
			state.EvaluatedBy = nil
			state.PublishedAt = nil
			state.PublishedBy = nil
			return nil
		})
}

// GetStatus returns the authoritative state for a level.
func (s *EvaluationService) GetStatus(level int) (*models.LevelEvaluationState, error) {
	var state models.LevelEvaluationState
	if err := s.db.Where("level = ?", level).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &state, nil
}

// GetAuditTrail returns the level's transition history, newest first.
func (s *EvaluationService) GetAuditTrail(level int) ([]models.EvaluationAuditLog, error) {
	var entries []models.EvaluationAuditLog
	err := s.db.Where("level = ?", level).Order("created_at DESC, id DESC").Find(&entries).Error
	return entries, err
}

// UpdateCutoff writes a level's qualification thresholds. Refused once
// evaluation has started, so re-running evaluate stays reproducible.
func (s *EvaluationService) UpdateCutoff(level int, cutoff models.QualificationCutoff, actorID uint) (*models.QualificationCutoff, error) {
	var saved models.QualificationCutoff
	err := inTx(s.db, func(tx *gorm.DB) error {
		state, err := s.lockState(tx, level)
		if err != nil {
			return err
		}
		if state.EvaluationState != models.EvalInProgress && state.EvaluationState != models.EvalSubmissionsClosed {
			return newLevelTransitionError("update cutoff for", state.EvaluationState)
		}

		var existing models.QualificationCutoff
		err = tx.Where("level = ?", level).First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		existing.Level = level
		existing.MinScore = cutoff.MinScore
		existing.MinAccuracy = cutoff.MinAccuracy
		existing.MaxTimeSeconds = cutoff.MaxTimeSeconds
		existing.MaxHintsAllowed = cutoff.MaxHintsAllowed
		existing.MinQuestionsCorrect = cutoff.MinQuestionsCorrect
		existing.AutoQualify = cutoff.AutoQualify
		existing.UpdatedBy = &actorID
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		saved = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// transition is the shared skeleton: lock the level row, apply the guarded
// mutation, write the audit entry, commit, then broadcast.
func (s *EvaluationService) transition(level int, actorID uint, action string, target models.EvaluationState,
	apply func(state *models.LevelEvaluationState, tx *gorm.DB) error) (*models.LevelEvaluationState, error) {

	var result models.LevelEvaluationState
	err := inTx(s.db, func(tx *gorm.DB) error {
		state, err := s.lockState(tx, level)
		if err != nil {
			return err
		}
		from := state.EvaluationState

		if err := apply(state, tx); err != nil {
			return err
		}
		state.EvaluationState = target
		if err := tx.Save(state).Error; err != nil {
			return err
		}

		teams, submissions, err := levelCounts(tx, level)
		if err != nil {
			return err
		}
		audit := models.EvaluationAuditLog{
			EntryID:          uuid.NewString(),
			Level:            level,
			Action:           action,
			FromState:        from,
			ToState:          target,
			ActorID:          actorID,
			TeamsAffected:    teams,
			SubmissionsCount: submissions,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}
		result = *state
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Publish("evaluation."+action, level, result.EvaluationState)
	}
	return &result, nil
}

func (s *EvaluationService) lockState(tx *gorm.DB, level int) (*models.LevelEvaluationState, error) {
	var state models.LevelEvaluationState
	err := forUpdate(tx).Where("level = ?", level).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &state, nil
}

func levelCounts(tx *gorm.DB, level int) (teams int, submissions int, err error) {
	var t, n int64
	if err = tx.Model(&models.Submission{}).Where("level = ?", level).Distinct("team_id").Count(&t).Error; err != nil {
		return 0, 0, err
	}
	if err = tx.Model(&models.Submission{}).Where("level = ?", level).Count(&n).Error; err != nil {
		return 0, 0, err
	}
	return int(t), int(n), nil
}
