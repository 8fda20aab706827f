// handlers/game.go - Team-facing question timer endpoints
package handlers

import (
	"strconv"

	"puzzlearena/database"
	"puzzlearena/middleware"
	"puzzlearena/services"

	"github.com/gofiber/fiber/v2"
)

var tracker *services.TimeTracker

// InitGameHandlers initializes the time tracker.
func InitGameHandlers() {
	tracker = services.NewTimeTracker(database.GetDB())
}

func callerTeam(c *fiber.Ctx) (uint, error) {
	teamID, ok := middleware.TeamID(c)
	if !ok || teamID == 0 {
		return 0, fiber.NewError(403, "Caller is not on a team")
	}
	return teamID, nil
}

func puzzleParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(400, "Invalid puzzle id")
	}
	return uint(id), nil
}

// StartQuestion activates (or resumes) a question for the caller's team.
// POST /api/game/questions/:id/start
func StartQuestion(c *fiber.Ctx) error {
	teamID, err := callerTeam(c)
	if err != nil {
		return err
	}
	puzzleID, err := puzzleParam(c)
	if err != nil {
		return err
	}

	progress, err := tracker.StartQuestion(teamID, puzzleID)
	if err != nil {
		return RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "progress": progress})
}

// PauseQuestion parks an active question.
// POST /api/game/questions/:id/pause
func PauseQuestion(c *fiber.Ctx) error {
	teamID, err := callerTeam(c)
	if err != nil {
		return err
	}
	puzzleID, err := puzzleParam(c)
	if err != nil {
		return err
	}

	progress, err := tracker.PauseQuestion(teamID, puzzleID)
	if err != nil {
		return RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "progress": progress})
}

// CompleteQuestion records the checker's verdict and closes the question for
// good. POST /api/game/questions/:id/complete
func CompleteQuestion(c *fiber.Ctx) error {
	teamID, err := callerTeam(c)
	if err != nil {
		return err
	}
	puzzleID, err := puzzleParam(c)
	if err != nil {
		return err
	}

	var result services.SubmissionResult
	if err := c.BodyParser(&result); err != nil {
		return fiber.NewError(400, "Invalid request body")
	}
	if userID, ok := middleware.UserID(c); ok {
		result.SubmittedBy = userID
	}

	progress, err := tracker.CompleteQuestion(teamID, puzzleID, result)
	if err != nil {
		return RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "progress": progress})
}

// SkipQuestion defers a question, spending one of the team's skips.
// POST /api/game/questions/:id/skip
func SkipQuestion(c *fiber.Ctx) error {
	teamID, err := callerTeam(c)
	if err != nil {
		return err
	}
	puzzleID, err := puzzleParam(c)
	if err != nil {
		return err
	}

	progress, err := tracker.SkipQuestion(teamID, puzzleID)
	if err != nil {
		return RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "progress": progress})
}

// UseHint hands out the next hint and books its penalty.
// POST /api/game/questions/:id/hint
func UseHint(c *fiber.Ctx) error {
	teamID, err := callerTeam(c)
	if err != nil {
		return err
	}
	puzzleID, err := puzzleParam(c)
	if err != nil {
		return err
	}

	hint, err := tracker.UseHint(teamID, puzzleID)
	if err != nil {
		return RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"hint": fiber.Map{
			"ordinal":         hint.Ordinal,
			"text":            hint.Text,
			"penalty_seconds": hint.PenaltySeconds,
		},
	})
}

// GetRemainingTime returns the server-authoritative timer for a question.
// GET /api/game/questions/:id/remaining
func GetRemainingTime(c *fiber.Ctx) error {
	teamID, err := callerTeam(c)
	if err != nil {
		return err
	}
	puzzleID, err := puzzleParam(c)
	if err != nil {
		return err
	}

	remaining, err := tracker.GetRemainingTime(teamID, puzzleID)
	if err != nil {
		return RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "remaining": remaining})
}

// GetSession returns the caller's team session aggregates.
// GET /api/game/session
func GetSession(c *fiber.Ctx) error {
	teamID, err := callerTeam(c)
	if err != nil {
		return err
	}

	session, err := tracker.GetSession(teamID)
	if err != nil {
		return RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "session": session})
}
