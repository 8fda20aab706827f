// database/migrate.go - Database Migration Runner
package database

import (
	"log"

	"puzzlearena/models"

	"gorm.io/gorm"
)

// RunMigrations runs all database migrations and seeds the rows the core
// depends on existing: one LevelEvaluationState per level and the single
// GameSettings row.
func RunMigrations() {
	db := GetDB()
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Puzzle{},
		&models.PuzzleHint{},
		&models.TeamQuestionProgress{},
		&models.TeamSession{},
		&models.Submission{},
		&models.LevelEvaluationState{},
		&models.QualificationCutoff{},
		&models.TeamLevelStatus{},
		&models.EvaluationAuditLog{},
		&models.QualificationAuditLog{},
		&models.GameSettings{},
	); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	if err := SeedGameSettings(db); err != nil {
		log.Fatalf("❌ Failed to seed game settings: %v", err)
	}
	if err := SeedLevelStates(db); err != nil {
		log.Fatalf("❌ Failed to seed level states: %v", err)
	}
	createIndexes(db)

	log.Println("✅ All migrations completed successfully")
}

// SeedGameSettings ensures the single settings row exists.
func SeedGameSettings(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.GameSettings{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(&models.GameSettings{
		SkipEnabled:              true,
		MaxSkipsPerTeam:          3,
		SkipPenaltySeconds:       60,
		HintPenaltySeconds:       30,
		QuestionTimeLimitSeconds: 600,
	}).Error
}

// SeedLevelStates backfills a LevelEvaluationState row for every level that
// has puzzles but no state row yet. Exactly one row per level must exist at
// all times; this makes that true after new levels are imported.
func SeedLevelStates(db *gorm.DB) error {
	var levels []int
	if err := db.Model(&models.Puzzle{}).Distinct().Order("level").Pluck("level", &levels).Error; err != nil {
		return err
	}
	for _, level := range levels {
		var count int64
		if err := db.Model(&models.LevelEvaluationState{}).Where("level = ?", level).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		state := models.LevelEvaluationState{
			Level:           level,
			EvaluationState: models.EvalInProgress,
		}
		if err := db.Create(&state).Error; err != nil {
			return err
		}
		log.Printf("Seeded evaluation state for level %d", level)
	}
	return nil
}

// createIndexes creates the hot-path indexes.
func createIndexes(db *gorm.DB) {
	log.Println("Creating indexes...")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_puzzles_level_ordinal ON puzzles(level, ordinal)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_progress_team ON team_question_progress(team_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_progress_status ON team_question_progress(status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_effective ON team_sessions(effective_time_seconds)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_submissions_team_level ON submissions(team_id, level)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_submissions_level_status ON submissions(level, evaluation_status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_team_level_statuses_level ON team_level_statuses(level)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_eval_audit_level ON evaluation_audit_logs(level, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_qual_audit_level_team ON qualification_audit_logs(level, team_id)")

	log.Println("✅ Indexes created successfully")
}
