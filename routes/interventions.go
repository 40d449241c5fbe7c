package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/aumugisha-umu/seido-sub000/middleware"
	"github.com/aumugisha-umu/seido-sub000/models"
	"github.com/aumugisha-umu/seido-sub000/services/workflow"
)

// engine est le moteur de workflow partagé par toutes les routes.
var engine *workflow.Engine

func SetupInterventionRoutes(app *fiber.App, e *workflow.Engine) {
	engine = e

	group := app.Group("/interventions", middleware.JWTMiddleware)
	group.Get("/", listInterventions)
	group.Post("/", createIntervention)
	group.Get("/:id", getIntervention)
	group.Get("/:id/actions", getActions)
	group.Post("/:id/transition", applyTransition)
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func listInterventions(c *fiber.Ctx) error {
	userID, role, teamID := currentUser(c)
	list, err := engine.ListInterventions(role, userID, teamID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(fiber.Map{"interventions": list})
}

func createIntervention(c *fiber.Ctx) error {
	userID, role, _ := currentUser(c)
	var body workflow.InterventionInput
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	itv, err := engine.CreateIntervention(role, userID, body)
	if err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(itv)
}

func getIntervention(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	itv, err := engine.GetIntervention(id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(itv)
}

// getActions renvoie les affordances exactes de l'acteur courant ; le moteur
// ré-évalue la même table au moment de la mutation.
func getActions(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	actions, itv, err := engine.EvaluateActions(id, role, userID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(fiber.Map{
		"status":  itv.Status,
		"actions": actions,
	})
}

type transitionPayload struct {
	ExpectedStatus models.InterventionStatus `json:"expected_status"`
	Action         workflow.ActionKey        `json:"action"`
	Comment        string                    `json:"comment"`
}

// applyTransition : point d'entrée générique. Sur StaleState, exactement une
// relance automatique après rechargement — uniquement si le statut rechargé
// correspond encore au statut attendu par le client (course bénigne) ; sinon
// le conflit est remonté tel quel.
func applyTransition(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	var body transitionPayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}

	next, err := engine.ApplyTransition(id, body.ExpectedStatus, body.Action, role, userID,
		workflow.TransitionPayload{Comment: body.Comment})
	if errors.Is(err, workflow.ErrStaleState) {
		if itv, loadErr := engine.GetIntervention(id); loadErr == nil && itv.Status == body.ExpectedStatus {
			next, err = engine.ApplyTransition(id, body.ExpectedStatus, body.Action, role, userID,
				workflow.TransitionPayload{Comment: body.Comment})
		}
	}
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(fiber.Map{"new_status": next})
}
