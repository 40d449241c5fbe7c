package database

import (
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aumugisha-umu/seido-sub000/models"
)

var DB *gorm.DB

func ConnectDB() {
	dsn := os.Getenv("DATABASE_URL")
	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		dialector = postgres.Open(dsn)
	case dsn != "":
		// DSN postgres supposé même sans préfixe de schéma
		dialector = postgres.Open(dsn)
	default:
		dbPath := "seido.db"
		dialector = sqlite.Open(dbPath)
		dsn = dbPath
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("Erreur connexion DB:", err)
	}

	if err := Migrate(database); err != nil {
		log.Fatal("Erreur migration:", err)
	}

	DB = database
	log.Println("📦 DB connectée et migrée sur", dsn)
}

// Migrate applique le schéma. Exposé séparément pour les tests (sqlite mémoire).
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Team{},
		&models.User{},
		&models.Lot{},
		&models.Intervention{},
		&models.QuoteRequest{},
		&models.Quote{},
		&models.TimeSlot{},
		&models.TimeSlotResponse{},
		&models.WorkCompletionReport{},
		&models.TenantValidation{},
		&models.ManagerFinalization{},
		&models.Document{},
	)
}
