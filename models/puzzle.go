// models/puzzle.go - Puzzle and hint definitions
package models

import "time"

// Puzzle represents a single question inside a level. Content is managed by
// the content collaborator and is immutable while an event is running; this
// core only reads it.
type Puzzle struct {
	ID               uint         `json:"id" gorm:"primaryKey"`
	Level            int          `json:"level" gorm:"not null;index"`
	Ordinal          int          `json:"ordinal" gorm:"not null"` // position within the level
	Title            string       `json:"title" gorm:"not null;size:200"`
	Body             string       `json:"body" gorm:"type:text"`
	Points           int          `json:"points" gorm:"default:100"`
	TimeLimitSeconds int          `json:"time_limit_seconds" gorm:"default:0"` // 0 = use GameSettings default
	AnswerRef        string       `json:"-" gorm:"size:200"`                   // opaque reference for the external checker
	IsActive         bool         `json:"is_active" gorm:"default:true;index"`
	Hints            []PuzzleHint `json:"hints,omitempty" gorm:"foreignKey:PuzzleID"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// PuzzleHint is one ordered hint for a puzzle. Taking it costs
// PenaltySeconds of effective time (GameSettings default when zero).
type PuzzleHint struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	PuzzleID       uint   `json:"puzzle_id" gorm:"not null;index"`
	Ordinal        int    `json:"ordinal" gorm:"not null"`
	Text           string `json:"text" gorm:"type:text;not null"`
	PenaltySeconds int    `json:"penalty_seconds" gorm:"default:0"`
}

func (Puzzle) TableName() string {
	return "puzzles"
}

func (PuzzleHint) TableName() string {
	return "puzzle_hints"
}

// EffectiveTimeLimit returns the puzzle's own limit, or the configured
// default when the puzzle does not set one.
func (p *Puzzle) EffectiveTimeLimit(settings *GameSettings) int {
	if p.TimeLimitSeconds > 0 {
		return p.TimeLimitSeconds
	}
	return settings.QuestionTimeLimitSeconds
}
