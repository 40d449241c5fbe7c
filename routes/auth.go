package routes

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/aumugisha-umu/seido-sub000/database"
	"github.com/aumugisha-umu/seido-sub000/models"
	"github.com/aumugisha-umu/seido-sub000/utils"
)

func SetupAuthRoutes(app *fiber.App) {
	auth := app.Group("/auth")
	auth.Post("/register", register)
	auth.Post("/login", login)
}

type authPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	TeamID   uint   `json:"team_id"`
	TeamName string `json:"team_name"`
}

func register(c *fiber.Ctx) error {
	var body authPayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}
	switch body.Role {
	case models.RoleGestionnaire, models.RoleLocataire, models.RolePrestataire:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Rôle invalide"})
	}

	var existing models.User
	database.DB.Where("email = ?", body.Email).First(&existing)
	if existing.ID != 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email déjà enregistré"})
	}

	hash, err := utils.HashPassword(body.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Impossible de hasher le mot de passe"})
	}

	teamID := body.TeamID
	// Un gestionnaire sans équipe en crée une à l'inscription.
	if teamID == 0 && body.Role == models.RoleGestionnaire {
		team := models.Team{
			Name:   body.TeamName,
			Slug:   utils.GenerateSlug(body.TeamName),
			Plan:   "standard",
			Status: "active",
		}
		if err := database.DB.Create(&team).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur création équipe"})
		}
		teamID = team.ID
	}

	user := models.User{
		Name:     body.Name,
		Email:    body.Email,
		Password: hash,
		Role:     body.Role,
		TeamID:   teamID,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur création utilisateur"})
	}

	return c.JSON(fiber.Map{"token": issueToken(user)})
}

func login(c *fiber.Ctx) error {
	var body authPayload
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload invalide"})
	}

	var user models.User
	database.DB.Where("email = ?", body.Email).First(&user)
	if user.ID == 0 || !utils.CheckPassword(user.Password, body.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Email ou mot de passe invalide"})
	}

	return c.JSON(fiber.Map{"token": issueToken(user)})
}

func issueToken(user models.User) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"team_id": user.TeamID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})
	t, _ := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	return t
}
