package models

import "gorm.io/gorm"

const (
	RoleGestionnaire = "gestionnaire"
	RoleLocataire    = "locataire"
	RolePrestataire  = "prestataire"
)

type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `gorm:"uniqueIndex" json:"email"`
	Password string `json:"-"`
	Role     string `gorm:"size:20;not null" json:"role"`
	TeamID   uint   `json:"team_id"`
	Phone    string `json:"phone"`
	Locale   string `json:"locale"`

	Team Team `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
