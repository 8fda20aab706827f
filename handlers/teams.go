// handlers/teams.go - Team creation and membership endpoints
package handlers

import (
	"strconv"

	"puzzlearena/database"
	"puzzlearena/middleware"
	"puzzlearena/services"

	"github.com/gofiber/fiber/v2"
)

var teamService *services.TeamService

// InitTeamHandlers initializes the team service.
func InitTeamHandlers() {
	teamService = services.NewTeamService(database.GetDB())
}

// CreateTeam creates a new team with the caller as captain.
// POST /api/teams
func CreateTeam(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fiber.NewError(401, "Unauthorized")
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(400, "Invalid request body")
	}

	team, err := teamService.CreateTeam(req.Name, userID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "team": team})
}

// JoinTeam adds the caller to a team via its join code.
// POST /api/teams/join
func JoinTeam(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fiber.NewError(401, "Unauthorized")
	}

	var req struct {
		TeamCode string `json:"team_code"`
	}
	if err := c.BodyParser(&req); err != nil || req.TeamCode == "" {
		return fiber.NewError(400, "Team code is required")
	}

	team, err := teamService.JoinTeam(userID, req.TeamCode)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "team": team})
}

// GetTeam returns a team with its members.
// GET /api/teams/:id
func GetTeam(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fiber.NewError(400, "Invalid team id")
	}

	team, err := teamService.GetTeamByID(uint(id))
	if err != nil {
		return RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "team": team})
}

// GetMyTeam returns the caller's team.
// GET /api/teams/mine
func GetMyTeam(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fiber.NewError(401, "Unauthorized")
	}

	team, err := teamService.TeamForUser(userID)
	if err != nil {
		return RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "team": team})
}
