// services/leaderboard.go - Ranking aggregator
package services

import (
	"errors"
	"sort"
	"time"

	"puzzlearena/models"

	"gorm.io/gorm"
)

// LeaderboardEntry is one ranked row of the published board.
type LeaderboardEntry struct {
	Rank                 int                        `json:"rank"`
	TeamID               uint                       `json:"team_id"`
	TeamName             string                     `json:"team_name"`
	Status               models.LevelStatus         `json:"status"`
	QualificationStatus  models.QualificationStatus `json:"qualification_status"`
	Score                int                        `json:"score"`
	QuestionsCompleted   int                        `json:"questions_completed"`
	EffectiveTimeSeconds int                        `json:"effective_time_seconds"`
	CompletedAt          *time.Time                 `json:"completed_at,omitempty"`
}

// LeaderboardService combines Time Tracker session totals with qualification
// results into a total order. It only ever serves fully published data: for
// any level that is not RESULTS_PUBLISHED it returns ErrResultsNotPublished,
// never a partial or stale board.
type LeaderboardService struct {
	db *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{db: db}
}

// GetLeaderboard returns the ordered board for a published level.
// Disqualified teams are excluded; see GetDisqualified.
func (s *LeaderboardService) GetLeaderboard(level int) ([]LeaderboardEntry, error) {
	if err := s.requirePublished(level); err != nil {
		return nil, err
	}

	entries, err := s.collectEntries(level, false)
	if err != nil {
		return nil, err
	}
	sortEntries(entries)
	assignRanks(entries)
	return entries, nil
}

// GetDisqualified returns the audit board of disqualified teams, ordered the
// same way as the main board.
func (s *LeaderboardService) GetDisqualified(level int) ([]LeaderboardEntry, error) {
	entries, err := s.collectEntries(level, true)
	if err != nil {
		return nil, err
	}
	sortEntries(entries)
	assignRanks(entries)
	return entries, nil
}

func (s *LeaderboardService) requirePublished(level int) error {
	var state models.LevelEvaluationState
	if err := s.db.Where("level = ?", level).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if state.EvaluationState != models.EvalResultsPublished {
		return ErrResultsNotPublished
	}
	return nil
}

func (s *LeaderboardService) collectEntries(level int, disqualified bool) ([]LeaderboardEntry, error) {
	query := s.db.Where("level = ?", level)
	if disqualified {
		query = query.Where("qualification_status = ?", models.QualDisqualified)
	} else {
		query = query.Where("qualification_status <> ?", models.QualDisqualified)
	}

	var statuses []models.TeamLevelStatus
	if err := query.Find(&statuses).Error; err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(statuses))
	for i := range statuses {
		st := &statuses[i]

		var session models.TeamSession
		err := s.db.Where("team_id = ?", st.TeamID).First(&session).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		var team models.Team
		err = s.db.Select("id", "name").First(&team, st.TeamID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		entries = append(entries, LeaderboardEntry{
			TeamID:               st.TeamID,
			TeamName:             team.Name,
			Status:               st.Status,
			QualificationStatus:  st.QualificationStatus,
			Score:                st.Score,
			QuestionsCompleted:   session.QuestionsCompleted,
			EffectiveTimeSeconds: session.EffectiveTimeSeconds,
			CompletedAt:          st.CompletedAt,
		})
	}
	return entries, nil
}

// sortEntries orders the board: completed teams first, then more questions
// completed, then less effective time, then earliest completion, then team id
// so the order is fully deterministic.
func sortEntries(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]

		ac, bc := a.Status == models.LevelCompleted, b.Status == models.LevelCompleted
		if ac != bc {
			return ac
		}
		if a.QuestionsCompleted != b.QuestionsCompleted {
			return a.QuestionsCompleted > b.QuestionsCompleted
		}
		if a.EffectiveTimeSeconds != b.EffectiveTimeSeconds {
			return a.EffectiveTimeSeconds < b.EffectiveTimeSeconds
		}
		switch {
		case a.CompletedAt == nil && b.CompletedAt != nil:
			return false
		case a.CompletedAt != nil && b.CompletedAt == nil:
			return true
		case a.CompletedAt != nil && b.CompletedAt != nil && !a.CompletedAt.Equal(*b.CompletedAt):
			return a.CompletedAt.Before(*b.CompletedAt)
		}
		return a.TeamID < b.TeamID
	})
}

// assignRanks numbers the sorted board densely: exact ties on the composite
// key share a rank, the next distinct key gets the next integer. Computed in
// Go rather than via a window function so tie handling stays predictable.
func assignRanks(entries []LeaderboardEntry) {
	rank := 0
	for i := range entries {
		if i == 0 || !sameCompositeKey(&entries[i-1], &entries[i]) {
			rank++
		}
		entries[i].Rank = rank
	}
}

func sameCompositeKey(a, b *LeaderboardEntry) bool {
	if (a.Status == models.LevelCompleted) != (b.Status == models.LevelCompleted) {
		return false
	}
	if a.QuestionsCompleted != b.QuestionsCompleted || a.EffectiveTimeSeconds != b.EffectiveTimeSeconds {
		return false
	}
	if (a.CompletedAt == nil) != (b.CompletedAt == nil) {
		return false
	}
	if a.CompletedAt != nil && !a.CompletedAt.Equal(*b.CompletedAt) {
		return false
	}
	return true
}
