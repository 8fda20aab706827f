// handlers/errors.go - Maps core service errors onto HTTP responses
package handlers

import (
	"errors"

	"puzzlearena/services"

	"github.com/gofiber/fiber/v2"
)

// RespondServiceError translates the typed core errors into distinguishable
// HTTP responses. Transition failures carry the authoritative current state
// so the UI can re-render instead of guessing.
func RespondServiceError(c *fiber.Ctx, err error) error {
	var transition *services.StateTransitionError
	if errors.As(err, &transition) {
		return c.Status(409).JSON(fiber.Map{
			"success":       false,
			"error":         transition.Error(),
			"code":          "INVALID_STATE_TRANSITION",
			"current_state": transition.Current,
		})
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		return fail(c, 404, "NOT_FOUND", err)
	case errors.Is(err, services.ErrQuestionLocked):
		return fail(c, 409, "QUESTION_LOCKED", err)
	case errors.Is(err, services.ErrNotActive):
		return fail(c, 409, "NOT_ACTIVE", err)
	case errors.Is(err, services.ErrTimeExpired):
		return fail(c, 409, "TIME_EXPIRED", err)
	case errors.Is(err, services.ErrSkipLimitExceeded):
		return fail(c, 422, "SKIP_LIMIT_EXCEEDED", err)
	case errors.Is(err, services.ErrSkipDisabled):
		return fail(c, 422, "SKIP_DISABLED", err)
	case errors.Is(err, services.ErrNoHintsRemaining):
		return fail(c, 422, "NO_HINTS_REMAINING", err)
	case errors.Is(err, services.ErrConcurrentModification):
		return fail(c, 409, "CONCURRENT_MODIFICATION", err)
	case errors.Is(err, services.ErrConfigurationError):
		return fail(c, 422, "CONFIGURATION_ERROR", err)
	default:
		return fail(c, 500, "INTERNAL", errors.New("internal error"))
	}
}

func fail(c *fiber.Ctx, status int, code string, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}
