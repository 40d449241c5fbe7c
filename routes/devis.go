package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aumugisha-umu/seido-sub000/middleware"
	"github.com/aumugisha-umu/seido-sub000/models"
	"github.com/aumugisha-umu/seido-sub000/services/workflow"
)

func SetupDevisRoutes(app *fiber.App, e *workflow.Engine) {
	engine = e

	itv := app.Group("/interventions", middleware.JWTMiddleware)
	itv.Post("/:id/devis/demande", requestQuotes)
	itv.Post("/:id/devis", submitQuote)
	itv.Get("/:id/devis", listQuotes)

	devis := app.Group("/devis", middleware.JWTMiddleware)
	devis.Put("/:id", editQuote)
	devis.Post("/:id/annuler", cancelQuote)
	devis.Post("/:id/examen", reviewQuote)
}

type requestQuotesPayload struct {
	ExpectedStatus models.InterventionStatus  `json:"expected_status"`
	Solicitation   workflow.QuoteSolicitation `json:"solicitation"`
}

func requestQuotes(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	var body requestQuotesPayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	entries, err := engine.RequestQuotes(id, body.ExpectedStatus, role, userID, body.Solicitation)
	if err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"sollicitations": entries})
}

func submitQuote(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	var body workflow.QuoteInput
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	quote, err := engine.SubmitQuote(id, role, userID, body)
	if err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(quote)
}

// listQuotes renvoie les devis pré-triés par score consultatif.
func listQuotes(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	ranked, err := engine.ListQuotes(id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(fiber.Map{"devis": ranked})
}

type editQuotePayload struct {
	ExpectedStatus models.QuoteStatus `json:"expected_status"`
	workflow.QuoteInput
}

func editQuote(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, _, _ := currentUser(c)
	var body editQuotePayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	quote, err := engine.EditQuote(id, userID, body.ExpectedStatus, body.QuoteInput)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(quote)
}

type cancelQuotePayload struct {
	ExpectedStatus models.QuoteStatus `json:"expected_status"`
}

func cancelQuote(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, _, _ := currentUser(c)
	var body cancelQuotePayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	quote, err := engine.CancelQuote(id, userID, body.ExpectedStatus)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(quote)
}

type reviewQuotePayload struct {
	ExpectedStatus models.QuoteStatus `json:"expected_status"`
	workflow.QuoteReview
}

func reviewQuote(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, role, _ := currentUser(c)
	var body reviewQuotePayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	quote, err := engine.ReviewQuote(id, role, userID, body.ExpectedStatus, body.QuoteReview)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(quote)
}
