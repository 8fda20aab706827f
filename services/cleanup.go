// services/cleanup.go - Background auto-pause of abandoned active questions
package services

import (
	"log"
	"time"

	"puzzlearena/models"

	"gorm.io/gorm"
)

// CleanupService periodically pauses questions whose teams walked away with
// the timer running. Without it an abandoned active row would accrue
// unbounded time the next time its delta is flushed.
type CleanupService struct {
	db       *gorm.DB
	tracker  *TimeTracker
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

var cleanupService *CleanupService

// InitCleanupService initializes the singleton cleanup service.
func InitCleanupService(db *gorm.DB, tracker *TimeTracker) {
	cleanupService = &CleanupService{
		db:       db,
		tracker:  tracker,
		interval: time.Minute,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go cleanupService.run()
}

// GetCleanupService returns the initialized cleanup service.
func GetCleanupService() *CleanupService {
	return cleanupService
}

func (s *CleanupService) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.PauseExpiredQuestions(); err != nil {
				log.Printf("cleanup: pause expired questions: %v", err)
			}
		case <-s.stop:
			return
		}
	}
}

// Stop shuts the worker down and waits for the current pass to finish.
func (s *CleanupService) Stop() {
	close(s.stop)
	<-s.done
}

// PauseExpiredQuestions pauses every active question whose computed remaining
// time has run out. Each row goes through the tracker's normal pause path so
// the flushed delta and session aggregates stay consistent.
func (s *CleanupService) PauseExpiredQuestions() error {
	var rows []models.TeamQuestionProgress
	if err := s.db.Where("status = ?", models.QuestionActive).Find(&rows).Error; err != nil {
		return err
	}

	paused := 0
	for i := range rows {
		remaining, err := s.tracker.GetRemainingTime(rows[i].TeamID, rows[i].PuzzleID)
		if err != nil {
			log.Printf("cleanup: remaining time for team %d puzzle %d: %v", rows[i].TeamID, rows[i].PuzzleID, err)
			continue
		}
		if remaining.RemainingSeconds > 0 {
			continue
		}
		if _, err := s.tracker.PauseQuestion(rows[i].TeamID, rows[i].PuzzleID); err != nil {
			// raced with the team's own pause/complete; nothing to do
			continue
		}
		paused++
	}
	if paused > 0 {
		log.Printf("✅ Cleanup paused %d expired questions", paused)
	}
	return nil
}
