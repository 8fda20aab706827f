// services/penalty.go - Penalty ledger: pure conversion of hints and skips into seconds
package services

import "puzzlearena/models"

// HintPenaltySeconds returns the cost of taking hint number `ordinal`
// (1-based) on a puzzle. A hint with no penalty of its own falls back to the
// game-wide default.
func HintPenaltySeconds(puzzle *models.Puzzle, settings *models.GameSettings, ordinal int) int {
	for i := range puzzle.Hints {
		if puzzle.Hints[i].Ordinal == ordinal {
			if puzzle.Hints[i].PenaltySeconds > 0 {
				return puzzle.Hints[i].PenaltySeconds
			}
			return settings.HintPenaltySeconds
		}
	}
	return settings.HintPenaltySeconds
}

// SkipPenaltySeconds returns the cost of one skip.
func SkipPenaltySeconds(settings *models.GameSettings) int {
	return settings.SkipPenaltySeconds
}

// SessionAggregates is the derived portion of a TeamSession, computed as a
// pure function over the team's question rows so the aggregate can never
// drift from its sources.
type SessionAggregates struct {
	TotalTimeSeconds     int
	TotalPenaltySeconds  int
	EffectiveTimeSeconds int
	QuestionsCompleted   int
	QuestionsSkipped     int
	TotalSkips           int
	TotalHints           int
}

// ComputeSessionAggregates folds a team's progress rows into the session
// totals. Effective time is total active time plus all accrued penalties.
func ComputeSessionAggregates(rows []models.TeamQuestionProgress) SessionAggregates {
	var agg SessionAggregates
	for i := range rows {
		r := &rows[i]
		agg.TotalTimeSeconds += r.TimeSpentSeconds
		agg.TotalPenaltySeconds += r.TimePenaltySeconds
		agg.TotalSkips += r.SkipCount
		agg.TotalHints += r.HintsUsed
		switch r.Status {
		case models.QuestionCompleted:
			agg.QuestionsCompleted++
		case models.QuestionSkipped:
			agg.QuestionsSkipped++
		}
	}
	agg.EffectiveTimeSeconds = agg.TotalTimeSeconds + agg.TotalPenaltySeconds
	return agg
}
