// services/errors.go - Typed errors surfaced by the competition core
package services

import (
	"errors"
	"fmt"

	"puzzlearena/models"
)

var (
	// ErrNotFound covers missing teams, puzzles, levels and settings rows.
	ErrNotFound = errors.New("not found")

	// ErrQuestionLocked is returned when a team-facing write is attempted
	// while the owning level is not accepting submissions, or the event
	// is paused.
	ErrQuestionLocked = errors.New("question locked: level is not accepting submissions")

	// ErrNotActive is returned by Pause when the question is not running.
	ErrNotActive = errors.New("question is not active")

	// ErrSkipLimitExceeded means the team already spent its skip budget.
	ErrSkipLimitExceeded = errors.New("skip limit exceeded")

	// ErrSkipDisabled means skipping is turned off in the game settings.
	ErrSkipDisabled = errors.New("skipping is disabled")

	// ErrNoHintsRemaining means every defined hint was already taken.
	ErrNoHintsRemaining = errors.New("no hints remaining")

	// ErrTimeExpired means the computed remaining time for the question
	// is zero; no further submissions are accepted.
	ErrTimeExpired = errors.New("time limit expired")

	// ErrConcurrentModification is surfaced after bounded lock retries
	// are exhausted. The caller may retry the whole operation.
	ErrConcurrentModification = errors.New("concurrent modification, retry")

	// ErrConfigurationError means a level is being evaluated without a
	// configured qualification cutoff.
	ErrConfigurationError = errors.New("qualification cutoff not configured")

	// ErrResultsNotPublished is the explicit "not yet published" signal
	// from the leaderboard; never partial data.
	ErrResultsNotPublished = errors.New("results not published")
)

// StateTransitionError reports an evaluation or question transition attempted
// from the wrong state. It carries the authoritative current state so the
// caller can re-render instead of guessing; it is never retried automatically.
type StateTransitionError struct {
	Entity  string // "level" or "question"
	Action  string
	Current string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: cannot %s %s in state %s", e.Action, e.Entity, e.Current)
}

func newLevelTransitionError(action string, current models.EvaluationState) error {
	return &StateTransitionError{Entity: "level", Action: action, Current: string(current)}
}

func newQuestionTransitionError(action string, current models.QuestionStatus) error {
	return &StateTransitionError{Entity: "question", Action: action, Current: string(current)}
}

// IsInvalidTransition reports whether err is a StateTransitionError.
func IsInvalidTransition(err error) bool {
	var t *StateTransitionError
	return errors.As(err, &t)
}
