// services/testutil_test.go - Shared in-memory DB fixtures
package services

import (
	"fmt"
	"testing"
	"time"

	"puzzlearena/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens a fresh in-memory database with the full schema and a default
// settings row. Each test gets its own database, so tests can run in parallel.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.TeamSession{},
		&models.Puzzle{},
		&models.PuzzleHint{},
		&models.TeamQuestionProgress{},
		&models.Submission{},
		&models.GameSettings{},
		&models.LevelEvaluationState{},
		&models.QualificationCutoff{},
		&models.TeamLevelStatus{},
		&models.EvaluationAuditLog{},
		&models.QualificationAuditLog{},
	)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.GameSettings{
		SkipEnabled:              true,
		MaxSkipsPerTeam:          3,
		SkipPenaltySeconds:       60,
		HintPenaltySeconds:       30,
		QuestionTimeLimitSeconds: 600,
	}).Error)

	return db
}

// fakeClock is an adjustable time source for the injectable now functions.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func seedTeam(t *testing.T, db *gorm.DB, name string) *models.Team {
	t.Helper()
	team := models.Team{Name: name, TeamCode: name, CreatorID: 1, IsActive: true}
	require.NoError(t, db.Create(&team).Error)
	return &team
}

func seedLevel(t *testing.T, db *gorm.DB, level int, state models.EvaluationState) {
	t.Helper()
	require.NoError(t, db.Create(&models.LevelEvaluationState{
		Level:           level,
		EvaluationState: state,
	}).Error)
}

func seedPuzzle(t *testing.T, db *gorm.DB, level, ordinal, points, limit int, hints ...models.PuzzleHint) *models.Puzzle {
	t.Helper()
	puzzle := models.Puzzle{
		Level:            level,
		Ordinal:          ordinal,
		Title:            fmt.Sprintf("Puzzle %d-%d", level, ordinal),
		Points:           points,
		TimeLimitSeconds: limit,
		IsActive:         true,
		Hints:            hints,
	}
	require.NoError(t, db.Create(&puzzle).Error)
	return &puzzle
}
