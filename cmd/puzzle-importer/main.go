package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"puzzlearena/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// JSONPuzzle is the import file format. Hints are ordered; their position
// in the array becomes the hint ordinal.
type JSONPuzzle struct {
	Level            int        `json:"level"`
	Ordinal          int        `json:"ordinal"`
	Title            string     `json:"title"`
	Body             string     `json:"body"`
	Points           int        `json:"points"`
	TimeLimitSeconds int        `json:"time_limit_seconds"`
	AnswerRef        string     `json:"answer_ref"`
	Hints            []JSONHint `json:"hints"`
}

type JSONHint struct {
	Text           string `json:"text"`
	PenaltySeconds int    `json:"penalty_seconds"`
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: puzzle-importer <puzzles.json>")
	}
	jsonPath := os.Args[1]

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable must be set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := db.AutoMigrate(&models.Puzzle{}, &models.PuzzleHint{}, &models.LevelEvaluationState{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		log.Fatal("Failed to read JSON file:", err)
	}

	var entries []JSONPuzzle
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Fatal("Failed to parse JSON:", err)
	}

	fmt.Printf("Found %d puzzles\n\n", len(entries))

	levels := map[int]bool{}
	var puzzles []models.Puzzle

	for _, entry := range entries {
		if entry.Level < 1 || entry.Ordinal < 1 {
			log.Fatalf("Invalid puzzle %q: level and ordinal must be positive", entry.Title)
		}
		levels[entry.Level] = true

		puzzle := models.Puzzle{
			Level:            entry.Level,
			Ordinal:          entry.Ordinal,
			Title:            entry.Title,
			Body:             entry.Body,
			Points:           entry.Points,
			TimeLimitSeconds: entry.TimeLimitSeconds,
			AnswerRef:        entry.AnswerRef,
		}
		for i, hint := range entry.Hints {
			puzzle.Hints = append(puzzle.Hints, models.PuzzleHint{
				Ordinal:        i + 1,
				Text:           hint.Text,
				PenaltySeconds: hint.PenaltySeconds,
			})
		}
		puzzles = append(puzzles, puzzle)
	}

	batchSize := 100
	for i := 0; i < len(puzzles); i += batchSize {
		end := i + batchSize
		if end > len(puzzles) {
			end = len(puzzles)
		}

		batch := puzzles[i:end]
		if err := db.Create(&batch).Error; err != nil {
			log.Printf("Error inserting batch %d-%d: %v\n", i, end, err)
		} else {
			fmt.Printf("Inserted puzzles %d-%d\n", i+1, end)
		}
	}

	// Every level needs an evaluation state row before admins can drive it.
	for level := range levels {
		state := models.LevelEvaluationState{Level: level, EvaluationState: models.EvalInProgress}
		if err := db.Where(models.LevelEvaluationState{Level: level}).FirstOrCreate(&state).Error; err != nil {
			log.Printf("Error seeding evaluation state for level %d: %v\n", level, err)
		}
	}

	fmt.Println("\n✓ Import completed successfully!")

	var count int64
	db.Model(&models.Puzzle{}).Count(&count)
	fmt.Printf("✓ Total puzzles in database: %d\n", count)
}
