package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/aumugisha-umu/seido-sub000/services/workflow"
)

// engineError traduit la taxonomie d'erreurs du moteur en réponses HTTP.
func engineError(c *fiber.Ctx, err error) error {
	var vErr *workflow.ValidationError
	var tErr *workflow.InvalidTransitionError

	switch {
	case errors.As(err, &vErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Validation échouée",
			"fields": vErr.Fields,
		})
	case errors.As(err, &tErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": tErr.Error()})
	case errors.Is(err, workflow.ErrStaleState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Intervention modifiée entre-temps, rechargez puis réessayez",
			"stale": true,
		})
	case errors.Is(err, workflow.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Ressource introuvable"})
	case errors.Is(err, workflow.ErrAuthorizationDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Accès refusé"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur interne"})
	}
}

func currentUser(c *fiber.Ctx) (uint, string, uint) {
	userID, _ := c.Locals("user_id").(uint)
	role, _ := c.Locals("role").(string)
	teamID, _ := c.Locals("team_id").(uint)
	return userID, role, teamID
}
