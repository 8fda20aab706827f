// handlers/leaderboard.go
package handlers

import (
	"errors"
	"strconv"

	"puzzlearena/database"
	"puzzlearena/services"

	"github.com/gofiber/fiber/v2"
)

var leaderboardService *services.LeaderboardService

// InitLeaderboardHandlers initializes the leaderboard service.
func InitLeaderboardHandlers() {
	leaderboardService = services.NewLeaderboardService(database.GetDB())
}

func levelParam(c *fiber.Ctx) (int, error) {
	level, err := strconv.Atoi(c.Params("level"))
	if err != nil || level < 1 {
		return 0, fiber.NewError(400, "Invalid level")
	}
	return level, nil
}

// GetLeaderboard returns the ranked board for a level. Until results are
// published the response is an explicit "not published" signal, never a
// partial board. GET /api/leaderboard/:level
func GetLeaderboard(c *fiber.Ctx) error {
	level, err := levelParam(c)
	if err != nil {
		return err
	}

	entries, err := leaderboardService.GetLeaderboard(level)
	if err != nil {
		if errors.Is(err, services.ErrResultsNotPublished) {
			return c.JSON(fiber.Map{
				"success":   true,
				"published": false,
				"level":     level,
				"entries":   []services.LeaderboardEntry{},
			})
		}
		return RespondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"published": true,
		"level":     level,
		"entries":   entries,
	})
}

// GetDisqualified returns the audit board of disqualified teams.
// GET /api/admin/levels/:level/disqualified
func GetDisqualified(c *fiber.Ctx) error {
	level, err := levelParam(c)
	if err != nil {
		return err
	}

	entries, err := leaderboardService.GetDisqualified(level)
	if err != nil {
		return RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"level":   level,
		"entries": entries,
	})
}
