package models

import (
	"time"

	"gorm.io/gorm"
)

type TimeSlotStatus string

const (
	// Créneau proposé par le gestionnaire.
	TimeSlotRequested TimeSlotStatus = "requested"
	// Créneau proposé par le prestataire.
	TimeSlotPending TimeSlotStatus = "pending"
)

const (
	SlotResponseAccept    = "accept"
	SlotResponseReject    = "reject"
	SlotResponseWithdrawn = "withdrawn"
)

// TimeSlot est un créneau candidat négocié pendant la phase de planification.
// Un créneau confirmé est marqué (SelectedAt), jamais supprimé ; les autres
// candidats restent en base pour l'historique.
type TimeSlot struct {
	gorm.Model
	InterventionID uint           `gorm:"index;not null" json:"intervention_id"`
	Date           time.Time      `gorm:"not null" json:"date"`
	StartTime      string         `gorm:"size:5;not null" json:"start_time"` // HH:MM
	EndTime        string         `gorm:"size:5;not null" json:"end_time"`
	Status         TimeSlotStatus `gorm:"size:16;not null" json:"status"`
	ProposerID     uint           `gorm:"not null" json:"proposer_id"`
	ProposerRole   string         `gorm:"size:20;not null" json:"proposer_role"`
	SelectedAt     *time.Time     `json:"selected_at,omitempty"`

	Responses []TimeSlotResponse `json:"responses"`

	Intervention Intervention `json:"-"`
}

// TimeSlotResponse : au plus une réponse active par (créneau, répondant).
// Rejouer la même réponse met à jour la ligne existante (upsert idempotent).
type TimeSlotResponse struct {
	gorm.Model
	TimeSlotID  uint   `gorm:"uniqueIndex:idx_slot_responder;not null" json:"time_slot_id"`
	ResponderID uint   `gorm:"uniqueIndex:idx_slot_responder;not null" json:"responder_id"`
	Response    string `gorm:"size:16;not null" json:"response"`
	Reason      string `gorm:"type:text" json:"reason,omitempty"` // obligatoire pour reject, visible de tous

	Responder User `gorm:"foreignKey:ResponderID" json:"-"`
}
