package main

import (
	"log"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"github.com/aumugisha-umu/seido-sub000/database"
	"github.com/aumugisha-umu/seido-sub000/integrations/notify"
	"github.com/aumugisha-umu/seido-sub000/models"
	"github.com/aumugisha-umu/seido-sub000/routes"
	"github.com/aumugisha-umu/seido-sub000/services/workflow"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("pas de .env trouvé")
	}

	database.ConnectDB()

	var notifier workflow.Notifier
	if client, err := notify.NewClientFromEnv(); err != nil {
		log.Printf("⚠️ Notifications désactivées: %v", err)
	} else {
		notifier = client
	}

	engine, err := workflow.NewEngine(database.DB, notifier, workflowConfig())
	if err != nil {
		log.Fatal("Configuration workflow invalide:", err)
	}

	app := fiber.New()

	// CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	routes.SetupAuthRoutes(app)
	routes.SetupInterventionRoutes(app, engine)
	routes.SetupDevisRoutes(app, engine)
	routes.SetupPlanningRoutes(app, engine)
	routes.SetupClotureRoutes(app, engine)
	routes.SetupDocumentRoutes(app, engine)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "seido-api", "status": "ok"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3030"
	}
	log.Println("🚀 Serveur sur http://localhost:" + port)
	log.Fatal(app.Listen(":" + port))
}

// workflowConfig lit les politiques configurables du moteur.
func workflowConfig() workflow.Config {
	cfg := workflow.DefaultConfig()
	if v := os.Getenv("CLOTURE_CONTEST_STATUT"); v != "" {
		cfg.ContestReturnStatus = models.InterventionStatus(v)
	}
	if v := os.Getenv("CLOTURE_SEUIL_ECART_PCT"); v != "" {
		if pct, err := strconv.ParseFloat(v, 64); err == nil && pct > 0 {
			cfg.VarianceThresholdPct = pct
		}
	}
	return cfg
}
