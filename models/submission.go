// models/submission.go - Answer submissions (correctness decided by the external checker)
package models

import "time"

// SubmissionEvalStatus tracks whether a submission has been counted by an
// evaluation pass. Reset back to PENDING by reset_evaluation; the submission
// itself is never deleted.
type SubmissionEvalStatus string

const (
	SubmissionPending   SubmissionEvalStatus = "PENDING"
	SubmissionEvaluated SubmissionEvalStatus = "EVALUATED"
)

// Submission is the recorded outcome of a team completing a puzzle. IsCorrect
// and Points come from the judging collaborator; this core stores them as
// evidence and only ever rolls back the evaluation decision, not the row.
type Submission struct {
	ID               uint                 `json:"id" gorm:"primaryKey"`
	TeamID           uint                 `json:"team_id" gorm:"not null;index"`
	PuzzleID         uint                 `json:"puzzle_id" gorm:"not null;index"`
	Puzzle           *Puzzle              `json:"puzzle,omitempty" gorm:"foreignKey:PuzzleID"`
	Level            int                  `json:"level" gorm:"not null;index"`
	SubmittedBy      uint                 `json:"submitted_by"`
	Answer           string               `json:"answer" gorm:"type:text"`
	IsCorrect        bool                 `json:"is_correct" gorm:"default:false"`
	Points           int                  `json:"points" gorm:"default:0"`
	EvaluationStatus SubmissionEvalStatus `json:"evaluation_status" gorm:"not null;default:'PENDING';size:20;index"`
	CreatedAt        time.Time            `json:"created_at"`
}

func (Submission) TableName() string {
	return "submissions"
}
