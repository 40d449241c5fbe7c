package models

import "gorm.io/gorm"

// Document représente une pièce jointe importée (photo, devis PDF, facture).
// Le moteur de workflow ne manipule que des identifiants, jamais les octets.
type Document struct {
	gorm.Model
	TeamID         uint   `gorm:"index" json:"team_id"`
	InterventionID uint   `gorm:"index" json:"intervention_id"`
	UploaderID     uint   `json:"uploader_id"`
	OriginalName   string `json:"original_name"`
	MimeType       string `json:"mime_type"`
	SizeBytes      int64  `json:"size_bytes"`
	StoragePath    string `json:"-"`
	TextPreview    string `gorm:"type:text" json:"text_preview,omitempty"`
}
