// handlers/admin/settings.go - Game settings management
package admin

import (
	"log"

	"puzzlearena/database"
	"puzzlearena/middleware"
	"puzzlearena/models"

	"github.com/gofiber/fiber/v2"
)

// GetGameSettings returns the single settings row.
// GET /api/admin/settings
func GetGameSettings(c *fiber.Ctx) error {
	var settings models.GameSettings
	if err := database.GetDB().First(&settings).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load settings"})
	}
	return c.JSON(fiber.Map{"success": true, "settings": settings})
}

// UpdateGameSettings overwrites the settings row. Partial updates are not
// supported; clients send the full desired state.
// PUT /api/admin/settings
func UpdateGameSettings(c *fiber.Ctx) error {
	var req models.GameSettings
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(400, "Invalid request body")
	}
	if req.MaxSkipsPerTeam < 0 || req.SkipPenaltySeconds < 0 || req.HintPenaltySeconds < 0 {
		return fiber.NewError(400, "Penalty and skip values must be non-negative")
	}
	if req.QuestionTimeLimitSeconds <= 0 {
		return fiber.NewError(400, "Question time limit must be positive")
	}

	db := database.GetDB()
	var settings models.GameSettings
	if err := db.First(&settings).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load settings"})
	}

	actorID, _ := middleware.UserID(c)
	updates := map[string]interface{}{
		"skip_enabled":                req.SkipEnabled,
		"max_skips_per_team":          req.MaxSkipsPerTeam,
		"skip_penalty_seconds":        req.SkipPenaltySeconds,
		"hint_penalty_seconds":        req.HintPenaltySeconds,
		"question_time_limit_seconds": req.QuestionTimeLimitSeconds,
		"is_paused":                   req.IsPaused,
		"updated_by":                  actorID,
	}
	if err := db.Model(&settings).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to update settings"})
	}

	log.Printf("✅ Game settings updated by admin %d (paused=%v, skips=%v)", actorID, req.IsPaused, req.SkipEnabled)
	return c.JSON(fiber.Map{"success": true, "settings": settings})
}
