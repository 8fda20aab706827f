// models/evaluation.go - Level evaluation state machine, cutoffs, and audit trail
package models

import "time"

// EvaluationState gates whether a level accepts submissions and whether its
// results are visible. Exactly one LevelEvaluationState row exists per level.
type EvaluationState string

const (
	EvalInProgress        EvaluationState = "IN_PROGRESS"
	EvalSubmissionsClosed EvaluationState = "SUBMISSIONS_CLOSED"
	EvalEvaluating        EvaluationState = "EVALUATING"
	EvalResultsPublished  EvaluationState = "RESULTS_PUBLISHED"
)

// QualificationStatus is the per-team, per-level advancement decision.
type QualificationStatus string

const (
	QualPending      QualificationStatus = "PENDING"
	QualQualified    QualificationStatus = "QUALIFIED"
	QualDisqualified QualificationStatus = "DISQUALIFIED"
)

// LevelStatus tracks how far a team has gotten through a level's puzzles.
type LevelStatus string

const (
	LevelNotStarted LevelStatus = "NOT_STARTED"
	LevelInProgress LevelStatus = "IN_PROGRESS"
	LevelCompleted  LevelStatus = "COMPLETED"
)

// LevelEvaluationState is the authoritative per-level gate. Transitions go
// through EvaluationService only, under a row lock.
type LevelEvaluationState struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	Level           int             `json:"level" gorm:"not null;uniqueIndex"`
	EvaluationState EvaluationState `json:"evaluation_state" gorm:"not null;default:'IN_PROGRESS';size:30"`
	ClosedAt        *time.Time      `json:"closed_at"`
	ClosedBy        *uint           `json:"closed_by"`
	EvaluatedAt     *time.Time      `json:"evaluated_at"`
	EvaluatedBy     *uint           `json:"evaluated_by"`
	PublishedAt     *time.Time      `json:"published_at"`
	PublishedBy     *uint           `json:"published_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// QualificationCutoff holds the admin-configured thresholds for one level.
// Editable only while the level is IN_PROGRESS or SUBMISSIONS_CLOSED.
type QualificationCutoff struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	Level               int       `json:"level" gorm:"not null;uniqueIndex"`
	MinScore            int       `json:"min_score" gorm:"default:0"`
	MinAccuracy         float64   `json:"min_accuracy" gorm:"default:0"`
	MaxTimeSeconds      int       `json:"max_time_seconds" gorm:"default:0"`
	MaxHintsAllowed     int       `json:"max_hints_allowed" gorm:"default:0"`
	MinQuestionsCorrect int       `json:"min_questions_correct" gorm:"default:0"`
	AutoQualify         bool      `json:"auto_qualify" gorm:"default:true"`
	UpdatedBy           *uint     `json:"updated_by"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TeamLevelStatus is one row per (team, level) carrying the frozen metrics
// snapshot and the qualification decision. A manual override is sticky: it
// survives reset/re-evaluate cycles until explicitly cleared.
type TeamLevelStatus struct {
	ID                     uint                `json:"id" gorm:"primaryKey"`
	TeamID                 uint                `json:"team_id" gorm:"not null;index:idx_team_level,unique"`
	Level                  int                 `json:"level" gorm:"not null;index:idx_team_level,unique"`
	Status                 LevelStatus         `json:"status" gorm:"not null;default:'NOT_STARTED';size:20"`
	QualificationStatus    QualificationStatus `json:"qualification_status" gorm:"not null;default:'PENDING';size:20;index"`
	Score                  int                 `json:"score" gorm:"default:0"`
	Accuracy               float64             `json:"accuracy" gorm:"default:0"`
	QuestionsAnswered      int                 `json:"questions_answered" gorm:"default:0"`
	QuestionsCorrect       int                 `json:"questions_correct" gorm:"default:0"`
	TimeTakenSeconds       int                 `json:"time_taken_seconds" gorm:"default:0"`
	HintsUsed              int                 `json:"hints_used" gorm:"default:0"`
	ResultsVisible         bool                `json:"results_visible" gorm:"default:false"`
	QualificationDecidedAt *time.Time          `json:"qualification_decided_at"`
	WasManuallyOverridden  bool                `json:"was_manually_overridden" gorm:"default:false"`
	OverrideBy             *uint               `json:"override_by"`
	OverrideReason         string              `json:"override_reason" gorm:"type:text"`
	OverrideAt             *time.Time          `json:"override_at"`
	CompletedAt            *time.Time          `json:"completed_at"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

// EvaluationAuditLog records every level state transition. Append-only.
type EvaluationAuditLog struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	EntryID          string          `json:"entry_id" gorm:"size:40;uniqueIndex"`
	Level            int             `json:"level" gorm:"not null;index"`
	Action           string          `json:"action" gorm:"not null;size:30"`
	FromState        EvaluationState `json:"from_state" gorm:"size:30"`
	ToState          EvaluationState `json:"to_state" gorm:"size:30"`
	ActorID          uint            `json:"actor_id" gorm:"not null"`
	TeamsAffected    int             `json:"teams_affected" gorm:"default:0"`
	SubmissionsCount int             `json:"submissions_count" gorm:"default:0"`
	CreatedAt        time.Time       `json:"created_at"`
}

// QualificationAuditLog records every qualification decision with the metric
// snapshot it was based on, so later cutoff changes never rewrite history.
type QualificationAuditLog struct {
	ID               uint                `json:"id" gorm:"primaryKey"`
	EntryID          string              `json:"entry_id" gorm:"size:40;uniqueIndex"`
	Level            int                 `json:"level" gorm:"not null;index"`
	TeamID           uint                `json:"team_id" gorm:"not null;index"`
	Decision         QualificationStatus `json:"decision" gorm:"not null;size:20"`
	Manual           bool                `json:"manual" gorm:"default:false"`
	ActorID          uint                `json:"actor_id" gorm:"not null"`
	Reason           string              `json:"reason" gorm:"type:text"`
	Score            int                 `json:"score"`
	Accuracy         float64             `json:"accuracy"`
	QuestionsCorrect int                 `json:"questions_correct"`
	TimeTakenSeconds int                 `json:"time_taken_seconds"`
	HintsUsed        int                 `json:"hints_used"`
	CreatedAt        time.Time           `json:"created_at"`
}

func (LevelEvaluationState) TableName() string {
	return "level_evaluation_states"
}

func (QualificationCutoff) TableName() string {
	return "qualification_cutoffs"
}

func (TeamLevelStatus) TableName() string {
	return "team_level_statuses"
}

func (EvaluationAuditLog) TableName() string {
	return "evaluation_audit_logs"
}

func (QualificationAuditLog) TableName() string {
	return "qualification_audit_logs"
}
