package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuoteStatus string

const (
	QuotePending   QuoteStatus = "pending"
	QuoteSent      QuoteStatus = "sent"
	QuoteAccepted  QuoteStatus = "accepted"
	QuoteRejected  QuoteStatus = "rejected"
	QuoteCancelled QuoteStatus = "cancelled"
)

// Quote est un devis déposé par un prestataire en réponse à une sollicitation.
// Invariant : une seule Quote "accepted" par intervention.
// Jamais supprimé physiquement, uniquement passé en cancelled/rejected.
type Quote struct {
	gorm.Model
	InterventionID uint `gorm:"index;not null" json:"intervention_id"`
	PrestataireID  uint `gorm:"index;not null" json:"prestataire_id"`

	LaborCost     float64 `json:"labor_cost"`
	MaterialsCost float64 `json:"materials_cost"`
	TotalCost     float64 `json:"total_cost"` // labor + materials, recalculé côté moteur

	Description       string  `gorm:"type:text" json:"description"`
	WorkDetails       string  `gorm:"type:text" json:"work_details"`
	EstimatedDuration float64 `json:"estimated_duration_hours"`

	Status      QuoteStatus `gorm:"size:16;not null;index" json:"status"`
	SubmittedAt *time.Time  `json:"submitted_at,omitempty"`

	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy      uint       `json:"reviewed_by,omitempty"`
	ReviewComments  string     `gorm:"type:text" json:"review_comments,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	// Références opaques vers des documents (jamais les octets eux-mêmes).
	Attachments datatypes.JSON `json:"attachments"`

	Intervention Intervention `json:"-"`
	Prestataire  User         `gorm:"foreignKey:PrestataireID" json:"-"`
}

// IsActive : un devis encore "dans la course" bloque une nouvelle sollicitation
// du même prestataire.
func (q Quote) IsActive() bool {
	switch q.Status {
	case QuotePending, QuoteSent, QuoteAccepted:
		return true
	}
	return false
}

// QuoteRequest est une sollicitation de devis envoyée à un prestataire donné.
type QuoteRequest struct {
	gorm.Model
	InterventionID    uint       `gorm:"index;not null" json:"intervention_id"`
	PrestataireID     uint       `gorm:"index;not null" json:"prestataire_id"`
	RequestedBy       uint       `json:"requested_by"`
	Deadline          *time.Time `json:"deadline,omitempty"`
	GeneralNotes      string     `gorm:"type:text" json:"general_notes"`
	IndividualMessage string     `gorm:"type:text" json:"individual_message"`

	Intervention Intervention `json:"-"`
	Prestataire  User         `gorm:"foreignKey:PrestataireID" json:"-"`
}
