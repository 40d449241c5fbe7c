package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ValidationApprove = "approuver"
	ValidationContest = "contester"

	SeverityMineure  = "mineure"
	SeverityMajeure  = "majeure"
	SeverityCritique = "critique"
)

// WorkCompletionReport est le rapport de fin de travaux du prestataire (étape 1
// de la clôture). Immuable une fois la transition passée ; une contestation du
// locataire ouvre un nouveau cycle avec un nouveau rapport.
type WorkCompletionReport struct {
	gorm.Model
	InterventionID uint `gorm:"index;not null" json:"intervention_id"`
	PrestataireID  uint `gorm:"not null" json:"prestataire_id"`

	Summary       string  `gorm:"type:text" json:"summary"`
	Details       string  `gorm:"type:text" json:"details"`
	MaterialsUsed string  `gorm:"type:text" json:"materials_used"`
	ActualDuration float64 `json:"actual_duration_hours"`
	ActualCost     float64 `json:"actual_cost"`

	BeforePhotos datatypes.JSON    `json:"before_photos"` // références opaques
	AfterPhotos  datatypes.JSON    `json:"after_photos"`
	Assurance    datatypes.JSONMap `json:"assurance"` // checklist qualité, toutes cases à true
}

// TenantValidation est la validation (ou contestation) du locataire (étape 2).
type TenantValidation struct {
	gorm.Model
	InterventionID uint `gorm:"index;not null" json:"intervention_id"`
	LocataireID    uint `gorm:"not null" json:"locataire_id"`

	Decision string `gorm:"size:16;not null" json:"decision"` // approuver | contester
	Comment  string `gorm:"type:text" json:"comment"`

	SatisfactionRatings datatypes.JSONMap `json:"satisfaction_ratings"`
	Approval            datatypes.JSONMap `json:"approval"` // checklist d'approbation

	IssueDescription string         `gorm:"type:text" json:"issue_description,omitempty"`
	IssueSeverity    string         `gorm:"size:16" json:"issue_severity,omitempty"`
	IssuePhotos      datatypes.JSON `json:"issue_photos,omitempty"`
}

// ManagerFinalization est la finalisation administrative du gestionnaire
// (étape 3, terminale). Fige les métadonnées d'archivage.
type ManagerFinalization struct {
	gorm.Model
	InterventionID uint `gorm:"uniqueIndex;not null" json:"intervention_id"`
	GestionnaireID uint `gorm:"not null" json:"gestionnaire_id"`

	FinalStatus   string `gorm:"size:32" json:"final_status"`
	AdminComments string `gorm:"type:text" json:"admin_comments"`

	QualityControl datatypes.JSONMap `json:"quality_control"`
	Documentation  datatypes.JSONMap `json:"documentation"`

	FinalCost             float64 `json:"final_cost"`
	BudgetVariancePct     float64 `json:"budget_variance_pct"`
	VarianceJustification string  `gorm:"type:text" json:"variance_justification,omitempty"`

	ArchiveCategory string         `gorm:"size:64" json:"archive_category"`
	ArchiveKeywords datatypes.JSON `json:"archive_keywords"`
	RetentionYears  int            `json:"retention_years"`
	AccessLevel     string         `gorm:"size:32" json:"access_level"`
}
