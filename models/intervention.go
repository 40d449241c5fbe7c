package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type InterventionStatus string

const (
	StatusDemande              InterventionStatus = "demande"
	StatusRejetee              InterventionStatus = "rejetee"
	StatusApprouvee            InterventionStatus = "approuvee"
	StatusDemandeDeDevis       InterventionStatus = "demande_de_devis"
	StatusPlanification        InterventionStatus = "planification"
	StatusPlanifiee            InterventionStatus = "planifiee"
	StatusEnCours              InterventionStatus = "en_cours"
	StatusClotureePrestataire  InterventionStatus = "cloturee_par_prestataire"
	StatusClotureeLocataire    InterventionStatus = "cloturee_par_locataire"
	StatusClotureeGestionnaire InterventionStatus = "cloturee_par_gestionnaire"
	StatusAnnulee              InterventionStatus = "annulee"
)

type Urgency string

const (
	UrgencyBasse   Urgency = "basse"
	UrgencyNormale Urgency = "normale"
	UrgencyHaute   Urgency = "haute"
	UrgencyUrgente Urgency = "urgente"
)

// Intervention est la demande de maintenance suivie de la création à la clôture.
// Le statut n'est jamais modifié directement : uniquement via le moteur de workflow.
type Intervention struct {
	gorm.Model
	TeamID      uint               `gorm:"index" json:"team_id"`
	Reference   string             `gorm:"uniqueIndex;size:64" json:"reference"`
	Title       string             `gorm:"size:255;not null" json:"title"`
	Description string             `gorm:"type:text" json:"description"`
	Type        string             `gorm:"size:64" json:"type"` // plomberie, électricité, serrurerie...
	Urgency     Urgency            `gorm:"size:16;not null;default:'normale'" json:"urgency"`
	Status      InterventionStatus `gorm:"size:40;not null;index" json:"status"`
	LocataireID uint               `gorm:"index" json:"locataire_id"`
	LotID       uint               `gorm:"index" json:"lot_id"`

	ScheduledDate  *time.Time `json:"scheduled_date,omitempty"`
	ScheduledStart string     `gorm:"size:5" json:"scheduled_start,omitempty"` // HH:MM
	ScheduledEnd   string     `gorm:"size:5" json:"scheduled_end,omitempty"`

	Metadata datatypes.JSONMap `json:"metadata"`

	Lot       Lot  `json:"-"`
	Locataire User `gorm:"foreignKey:LocataireID" json:"-"`
}

// IsTerminal indique si le statut est définitif (intervention archivée).
func (s InterventionStatus) IsTerminal() bool {
	switch s {
	case StatusRejetee, StatusAnnulee, StatusClotureeGestionnaire:
		return true
	}
	return false
}
