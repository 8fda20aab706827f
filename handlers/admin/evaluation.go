// handlers/admin/evaluation.go - Level evaluation controls
package admin

import (
	"strconv"

	"puzzlearena/database"
	"puzzlearena/handlers"
	"puzzlearena/middleware"
	"puzzlearena/models"
	"puzzlearena/services"

	"github.com/gofiber/fiber/v2"
)

var (
	evaluationService    *services.EvaluationService
	qualificationService *services.QualificationService
)

// InitEvaluationHandlers wires the evaluation and qualification services.
func InitEvaluationHandlers(hub *services.EventHub) {
	db := database.GetDB()
	evaluationService = services.NewEvaluationService(db, hub)
	qualificationService = services.NewQualificationService(db)
}

func levelParam(c *fiber.Ctx) (int, error) {
	level, err := strconv.Atoi(c.Params("level"))
	if err != nil || level < 1 {
		return 0, fiber.NewError(400, "Invalid level")
	}
	return level, nil
}

func actor(c *fiber.Ctx) (uint, error) {
	actorID, ok := middleware.UserID(c)
	if !ok {
		return 0, fiber.NewError(401, "Unauthorized")
	}
	return actorID, nil
}

// transitionHandler builds a handler around one state machine action.
func transitionHandler(action func(level int, actorID uint) (*models.LevelEvaluationState, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		level, err := levelParam(c)
		if err != nil {
			return err
		}
		actorID, err := actor(c)
		if err != nil {
			return err
		}

		state, err := action(level, actorID)
		if err != nil {
			return handlers.RespondServiceError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "state": state})
	}
}

// CloseSubmissions freezes the level's submission set.
// POST /api/admin/levels/:level/close
func CloseSubmissions() fiber.Handler {
	return transitionHandler(func(level int, actorID uint) (*models.LevelEvaluationState, error) {
		return evaluationService.CloseSubmissions(level, actorID)
	})
}

// ReopenSubmissions re-permits writes.
// POST /api/admin/levels/:level/reopen
func ReopenSubmissions() fiber.Handler {
	return transitionHandler(func(level int, actorID uint) (*models.LevelEvaluationState, error) {
		return evaluationService.ReopenSubmissions(level, actorID)
	})
}

// Evaluate runs the qualification engine over the frozen set.
// POST /api/admin/levels/:level/evaluate
func Evaluate() fiber.Handler {
	return transitionHandler(func(level int, actorID uint) (*models.LevelEvaluationState, error) {
		return evaluationService.Evaluate(level, actorID)
	})
}

// PublishResults makes the level's results visible.
// POST /api/admin/levels/:level/publish
func PublishResults() fiber.Handler {
	return transitionHandler(func(level int, actorID uint) (*models.LevelEvaluationState, error) {
		return evaluationService.PublishResults(level, actorID)
	})
}

// ResetEvaluation rolls the decisions back, preserving the evidence.
// POST /api/admin/levels/:level/reset
func ResetEvaluation() fiber.Handler {
	return transitionHandler(func(level int, actorID uint) (*models.LevelEvaluationState, error) {
		return evaluationService.ResetEvaluation(level, actorID)
	})
}

// GetEvaluationStatus returns the authoritative state for a level.
// GET /api/admin/levels/:level/status
func GetEvaluationStatus(c *fiber.Ctx) error {
	level, err := levelParam(c)
	if err != nil {
		return err
	}

	state, err := evaluationService.GetStatus(level)
	if err != nil {
		return handlers.RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "state": state})
}

// GetAuditTrail returns both audit logs for a level.
// GET /api/admin/levels/:level/audit
func GetAuditTrail(c *fiber.Ctx) error {
	level, err := levelParam(c)
	if err != nil {
		return err
	}

	evaluations, err := evaluationService.GetAuditTrail(level)
	if err != nil {
		return handlers.RespondServiceError(c, err)
	}
	qualifications, err := qualificationService.GetAuditTrail(level)
	if err != nil {
		return handlers.RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"evaluations":    evaluations,
		"qualifications": qualifications,
	})
}

// UpdateCutoff writes a level's qualification thresholds.
// PUT /api/admin/levels/:level/cutoff
func UpdateCutoff(c *fiber.Ctx) error {
	level, err := levelParam(c)
	if err != nil {
		return err
	}
	actorID, err := actor(c)
	if err != nil {
		return err
	}

	var req models.QualificationCutoff
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(400, "Invalid request body")
	}

	cutoff, err := evaluationService.UpdateCutoff(level, req, actorID)
	if err != nil {
		return handlers.RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "cutoff": cutoff})
}

// OverrideQualification sets a sticky manual decision for one team.
// POST /api/admin/levels/:level/teams/:teamId/override
func OverrideQualification(c *fiber.Ctx) error {
	level, err := levelParam(c)
	if err != nil {
		return err
	}
	teamID, err := strconv.ParseUint(c.Params("teamId"), 10, 32)
	if err != nil {
		return fiber.NewError(400, "Invalid team id")
	}
	actorID, err := actor(c)
	if err != nil {
		return err
	}

	var req struct {
		Qualified bool   `json:"qualified"`
		Reason    string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(400, "Invalid request body")
	}

	status, err := qualificationService.Override(level, uint(teamID), req.Qualified, actorID, req.Reason)
	if err != nil {
		return handlers.RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "status": status})
}

// ClearQualificationOverride removes the sticky flag.
// DELETE /api/admin/levels/:level/teams/:teamId/override
func ClearQualificationOverride(c *fiber.Ctx) error {
	level, err := levelParam(c)
	if err != nil {
		return err
	}
	teamID, err := strconv.ParseUint(c.Params("teamId"), 10, 32)
	if err != nil {
		return fiber.NewError(400, "Invalid team id")
	}
	actorID, err := actor(c)
	if err != nil {
		return err
	}

	status, err := qualificationService.ClearOverride(level, uint(teamID), actorID)
	if err != nil {
		return handlers.RespondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "status": status})
}
