package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aumugisha-umu/seido-sub000/middleware"
	"github.com/aumugisha-umu/seido-sub000/models"
	"github.com/aumugisha-umu/seido-sub000/services/workflow"
)

func SetupClotureRoutes(app *fiber.App, e *workflow.Engine) {
	engine = e

	group := app.Group("/interventions", middleware.JWTMiddleware)
	group.Post("/:id/cloture/prestataire", submitWorkCompletion)
	group.Post("/:id/cloture/locataire", submitTenantValidation)
	group.Post("/:id/cloture/gestionnaire", submitManagerFinalization)
}

type workCompletionPayload struct {
	ExpectedStatus models.InterventionStatus `json:"expected_status"`
	workflow.WorkCompletionInput
}

func submitWorkCompletion(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	var body workCompletionPayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	report, err := engine.SubmitWorkCompletion(id, body.ExpectedStatus, role, userID, body.WorkCompletionInput)
	if err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

type tenantValidationPayload struct {
	ExpectedStatus models.InterventionStatus `json:"expected_status"`
	workflow.TenantValidationInput
}

func submitTenantValidation(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	var body tenantValidationPayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	validation, err := engine.SubmitTenantValidation(id, body.ExpectedStatus, role, userID, body.TenantValidationInput)
	if err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(validation)
}

type managerFinalizationPayload struct {
	ExpectedStatus models.InterventionStatus `json:"expected_status"`
	workflow.ManagerFinalizationInput
}

func submitManagerFinalization(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	var body managerFinalizationPayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	final, err := engine.SubmitManagerFinalization(id, body.ExpectedStatus, role, userID, body.ManagerFinalizationInput)
	if err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(final)
}
