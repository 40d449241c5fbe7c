package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Team représente une agence / un syndic (espace de travail multi-tenant).
type Team struct {
	gorm.Model
	Name     string            `json:"name"`
	Slug     string            `gorm:"uniqueIndex" json:"slug"`
	Plan     string            `json:"plan"`
	Status   string            `json:"status"`
	Metadata datatypes.JSONMap `json:"metadata"`
}

// Lot représente un logement (appartement, maison) rattaché à un immeuble.
// Le locataire en titre est celui autorisé à valider les interventions du lot.
type Lot struct {
	gorm.Model
	TeamID      uint   `gorm:"index" json:"team_id"`
	Reference   string `json:"reference"`
	Building    string `json:"building"`
	Address     string `json:"address"`
	Floor       int    `json:"floor"`
	LocataireID uint   `gorm:"index" json:"locataire_id"`

	Team      Team `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Locataire User `gorm:"foreignKey:LocataireID" json:"-"`
}
