package utils

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Extraction d'un aperçu texte des pièces jointes (devis PDF, photos de
// factures) pour la recherche et l'affichage. Best-effort : un échec d'OCR
// n'empêche jamais l'enregistrement du document.

func SaveBytesToFile(b []byte, path string) error {
	return os.WriteFile(path, b, 0644)
}

func ConvertPDFToPNGs(pdfPath string, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	outPrefix := filepath.Join(outDir, "page")
	cmd := exec.Command("pdftoppm", "-png", pdfPath, outPrefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm error: %v: %s", err, stderr.String())
	}
	return filepath.Glob(filepath.Join(outDir, "page*.png"))
}

// OCRImagePath fait l'OCR sur une image PNG/JPG.
func OCRImagePath(imgPath string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetImage(imgPath); err != nil {
		return "", err
	}
	return client.Text()
}

// ExtractTextPreview convertit un PDF (ou une image) en texte.
func ExtractTextPreview(fileBytes []byte) (string, error) {
	tmpDir, err := os.MkdirTemp("", "ocrdoc-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "upload.pdf")
	if err := SaveBytesToFile(fileBytes, pdfPath); err != nil {
		return "", err
	}

	imgDir := filepath.Join(tmpDir, "images")
	imgs, err := ConvertPDFToPNGs(pdfPath, imgDir)
	if err != nil {
		// fallback : OCR direct si le fichier est déjà une image
		imgPath := filepath.Join(tmpDir, "fallback.png")
		if werr := SaveBytesToFile(fileBytes, imgPath); werr == nil {
			return OCRImagePath(imgPath)
		}
		return "", err
	}

	var fullText strings.Builder
	for _, img := range imgs {
		t, err := OCRImagePath(img)
		if err != nil {
			continue
		}
		fullText.WriteString(t)
		fullText.WriteString("\n")
	}
	return fullText.String(), nil
}
