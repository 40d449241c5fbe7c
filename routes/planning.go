package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aumugisha-umu/seido-sub000/middleware"
	"github.com/aumugisha-umu/seido-sub000/models"
	"github.com/aumugisha-umu/seido-sub000/services/workflow"
)

func SetupPlanningRoutes(app *fiber.App, e *workflow.Engine) {
	engine = e

	itv := app.Group("/interventions", middleware.JWTMiddleware)
	itv.Post("/:id/creneaux", proposeSlots)
	itv.Get("/:id/creneaux", listSlots)
	itv.Post("/:id/planifier", confirmSlot)

	slots := app.Group("/creneaux", middleware.JWTMiddleware)
	slots.Post("/:id/reponse", respondToSlot)
	slots.Delete("/:id/reponse", withdrawResponse)
}

type proposeSlotsPayload struct {
	ExpectedStatus models.InterventionStatus `json:"expected_status"`
	Slots          []workflow.SlotInput      `json:"slots"`
}

func proposeSlots(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	var body proposeSlotsPayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	slots, err := engine.ProposeSlots(id, body.ExpectedStatus, role, userID, body.Slots)
	if err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"creneaux": slots})
}

func listSlots(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	slots, err := engine.ListSlots(id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(fiber.Map{"creneaux": slots})
}

type slotResponsePayload struct {
	Response string `json:"response"`
	Reason   string `json:"reason"`
}

func respondToSlot(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	var body slotResponsePayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	resp, err := engine.RespondToSlot(id, userID, role, body.Response, body.Reason)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(resp)
}

func withdrawResponse(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	resp, err := engine.WithdrawResponse(id, userID, role)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(resp)
}

type confirmSlotPayload struct {
	ExpectedStatus models.InterventionStatus `json:"expected_status"`
	SlotID         uint                      `json:"slot_id"`
}

func confirmSlot(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	var body confirmSlotPayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	itv, err := engine.ConfirmSlot(id, body.ExpectedStatus, body.SlotID, role, userID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(itv)
}
