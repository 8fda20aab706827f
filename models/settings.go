// models/settings.go - Event-wide game settings (admin-editable, read-only to the core)
package models

import "time"

// GameSettings is a single-row table. IsPaused is the event-wide pause flag,
// deliberately separate from per-level evaluation state: "is the event
// running" and "is level N accepting submissions" are different questions.
type GameSettings struct {
	ID                       uint      `json:"id" gorm:"primaryKey"`
	SkipEnabled              bool      `json:"skip_enabled" gorm:"default:true"`
	MaxSkipsPerTeam          int       `json:"max_skips_per_team" gorm:"default:3"`
	SkipPenaltySeconds       int       `json:"skip_penalty_seconds" gorm:"default:60"`
	HintPenaltySeconds       int       `json:"hint_penalty_seconds" gorm:"default:30"` // default when a hint row has none
	QuestionTimeLimitSeconds int       `json:"question_time_limit_seconds" gorm:"default:600"`
	IsPaused                 bool      `json:"is_paused" gorm:"default:false"`
	UpdatedBy                *uint     `json:"updated_by"`
	UpdatedAt                time.Time `json:"updated_at"`
}

func (GameSettings) TableName() string {
	return "game_settings"
}
