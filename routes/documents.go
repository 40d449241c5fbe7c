package routes

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aumugisha-umu/seido-sub000/database"
	"github.com/aumugisha-umu/seido-sub000/middleware"
	"github.com/aumugisha-umu/seido-sub000/models"
	"github.com/aumugisha-umu/seido-sub000/services/workflow"
	"github.com/aumugisha-umu/seido-sub000/utils"
)

// Gestion des pièces jointes (photos avant/après, devis PDF). Le moteur de
// workflow ne voit que des références opaques ; les octets restent ici.

func SetupDocumentRoutes(app *fiber.App, e *workflow.Engine) {
	engine = e

	group := app.Group("/interventions", middleware.JWTMiddleware)
	group.Post("/:id/documents", uploadDocument)
	group.Get("/:id/documents", listDocuments)
}

func uploadDocument(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	userID, _, _ := currentUser(c)

	itv, err := engine.GetIntervention(id)
	if err != nil {
		return engineError(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Fichier requis"})
	}
	if file.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Fichier vide"})
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		src, oerr := file.Open()
		if oerr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Fichier illisible"})
		}
		contentType = sniffMime(src)
		src.Close()
	}
	if !isAllowedMime(contentType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Type de fichier non supporté", "details": contentType})
	}

	baseDir := "uploads"
	itvDir := filepath.Join(baseDir, fmt.Sprintf("intervention_%d", itv.ID))
	if err := os.MkdirAll(itvDir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Impossible de créer le répertoire de stockage"})
	}

	safeName := sanitizeFilename(file.Filename)
	filename := time.Now().Format("20060102-150405") + "-" + safeName
	fullPath := filepath.Join(itvDir, filename)
	if err := c.SaveFile(file, fullPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Impossible de sauvegarder le fichier"})
	}

	// Aperçu texte best-effort pour les PDF et images (recherche plein texte).
	preview := ""
	if strings.HasPrefix(contentType, "application/pdf") || strings.HasPrefix(contentType, "image/") {
		if data, rerr := os.ReadFile(fullPath); rerr == nil {
			if text, oerr := utils.ExtractTextPreview(data); oerr == nil {
				if len(text) > 2000 {
					text = text[:2000]
				}
				preview = text
			} else {
				log.Printf("[documents] OCR indisponible pour %s: %v", filename, oerr)
			}
		}
	}

	doc := models.Document{
		TeamID:         itv.TeamID,
		InterventionID: itv.ID,
		UploaderID:     userID,
		OriginalName:   file.Filename,
		MimeType:       contentType,
		SizeBytes:      file.Size,
		StoragePath:    fullPath,
		TextPreview:    preview,
	}
	if err := database.DB.Create(&doc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Impossible d'enregistrer le document"})
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

func listDocuments(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Identifiant invalide"})
	}
	var docs []models.Document
	if err := database.DB.Where("intervention_id = ?", id).
		Order("created_at DESC").Find(&docs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération des documents"})
	}
	return c.JSON(fiber.Map{"documents": docs})
}

// sniffMime détecte le type à partir des premiers octets réels du fichier,
// pour les clients qui n'envoient pas de Content-Type.
func sniffMime(r io.Reader) string {
	buf := make([]byte, 512)
	n, _ := io.ReadFull(r, buf)
	return http.DetectContentType(buf[:n])
}

func isAllowedMime(m string) bool {
	if m == "" {
		return false
	}
	m = strings.ToLower(m)
	if strings.HasPrefix(m, "application/pdf") {
		return true
	}
	if strings.HasPrefix(m, "image/") {
		return true
	}
	return false
}

func sanitizeFilename(name string) string {
	if name == "" {
		return "document"
	}
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "..", "_")
	return name
}
