// models/progress.go - Per-question timing records and per-team session aggregates
package models

import "time"

// QuestionStatus is the lifecycle of one (team, puzzle) pair.
// Skipped questions may be revisited; completed is terminal.
type QuestionStatus string

const (
	QuestionNotStarted QuestionStatus = "not_started"
	QuestionActive     QuestionStatus = "active"
	QuestionPaused     QuestionStatus = "paused"
	QuestionSkipped    QuestionStatus = "skipped"
	QuestionCompleted  QuestionStatus = "completed"
)

// TeamQuestionProgress is one row per (team, puzzle), created lazily on first
// access. TimeSpentSeconds only ever increases, and only while the row is
// active. StartedAt is non-nil exactly when Status == active.
type TeamQuestionProgress struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	TeamID             uint           `json:"team_id" gorm:"not null;index:idx_progress_team_puzzle,unique"`
	PuzzleID           uint           `json:"puzzle_id" gorm:"not null;index:idx_progress_team_puzzle,unique"`
	Puzzle             *Puzzle        `json:"puzzle,omitempty" gorm:"foreignKey:PuzzleID"`
	Status             QuestionStatus `json:"status" gorm:"not null;default:'not_started';size:20;index"`
	StartedAt          *time.Time     `json:"started_at"`
	CompletedAt        *time.Time     `json:"completed_at"`
	TimeSpentSeconds   int            `json:"time_spent_seconds" gorm:"default:0"`
	TimePenaltySeconds int            `json:"time_penalty_seconds" gorm:"default:0"`
	SkipCount          int            `json:"skip_count" gorm:"default:0"`
	Attempts           int            `json:"attempts" gorm:"default:0"`
	HintsUsed          int            `json:"hints_used" gorm:"default:0"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// TeamSession aggregates a team's question rows. Every field below the
// timestamps is derived: it is recomputed from TeamQuestionProgress rows in
// the same transaction as any timing change, never incremented independently.
type TeamSession struct {
	ID                    uint       `json:"id" gorm:"primaryKey"`
	TeamID                uint       `json:"team_id" gorm:"not null;uniqueIndex"`
	SessionToken          string     `json:"session_token" gorm:"size:64"`
	IsActive              bool       `json:"is_active" gorm:"default:true"`
	StartedAt             time.Time  `json:"started_at"`
	EndedAt               *time.Time `json:"ended_at"`
	TotalTimeSeconds      int        `json:"total_time_seconds" gorm:"default:0"`
	TotalPenaltySeconds   int        `json:"total_penalty_seconds" gorm:"default:0"`
	EffectiveTimeSeconds  int        `json:"effective_time_seconds" gorm:"default:0;index"`
	QuestionsCompleted    int        `json:"questions_completed" gorm:"default:0"`
	QuestionsSkipped      int        `json:"questions_skipped" gorm:"default:0"`
	TotalSkips            int        `json:"total_skips" gorm:"default:0"`
	TotalHints            int        `json:"total_hints" gorm:"default:0"`
	LastCompletedAt       *time.Time `json:"last_completed_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (TeamQuestionProgress) TableName() string {
	return "team_question_progress"
}

func (TeamSession) TableName() string {
	return "team_sessions"
}
