package workflow

import (
	"errors"
	"math"

	"gorm.io/gorm"

	"github.com/aumugisha-umu/seido-sub000/models"
)

// Séquenceur de clôture : rapport prestataire → validation locataire →
// finalisation gestionnaire. Chaque étape est verrouillée par une checklist
// complète ; une soumission incomplète est rejetée en bloc avec le détail
// champ par champ.

// Checklists requises par étape. Chaque case doit être explicitement cochée.
var (
	assuranceChecklist = []string{
		"travaux_termines",
		"zone_nettoyee",
		"fonctionnement_verifie",
		"locataire_informe",
	}
	approvalChecklist = []string{
		"travaux_conformes",
		"zone_propre",
		"fonctionnement_ok",
	}
	qualityControlChecklist = []string{
		"rapport_verifie",
		"validation_locataire_recue",
		"conformite_devis",
	}
	documentationChecklist = []string{
		"photos_archivees",
		"factures_recues",
		"garanties_enregistrees",
	}
)

// WorkCompletionInput est le rapport de fin de travaux (étape 1, prestataire).
type WorkCompletionInput struct {
	Summary        string          `json:"summary"`
	Details        string          `json:"details"`
	MaterialsUsed  string          `json:"materials_used"`
	ActualDuration float64         `json:"actual_duration_hours"`
	ActualCost     float64         `json:"actual_cost"`
	BeforePhotos   []string        `json:"before_photos"`
	AfterPhotos    []string        `json:"after_photos"`
	Assurance      map[string]bool `json:"assurance"`
}

func (in WorkCompletionInput) validate() error {
	v := NewValidationError()
	v.RequireText("summary", in.Summary)
	v.RequireText("details", in.Details)
	v.RequirePositive("actual_duration_hours", in.ActualDuration)
	v.RequireNonEmptyList("after_photos", in.AfterPhotos)
	v.RequireChecklist("assurance", in.Assurance, assuranceChecklist)
	return v.OrNil()
}

// SubmitWorkCompletion enregistre le rapport et passe l'intervention en
// "cloturee_par_prestataire". Depuis "planifiee" ou "en_cours".
func (e *Engine) SubmitWorkCompletion(interventionID uint, expected models.InterventionStatus, role string, userID uint, in WorkCompletionInput) (*models.WorkCompletionReport, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		report models.WorkCompletionReport
		itv    *models.Intervention
	)
	err := e.serialized(func(tx *gorm.DB) error {
		var err error
		itv, err = loadIntervention(tx, interventionID)
		if err != nil {
			return err
		}
		if itv.Status != expected {
			return ErrStaleState
		}
		if err := e.authorize(tx, itv, role, userID, ActionCompleteWork); err != nil {
			return err
		}
		next, err := e.machine.Transition(expected, ActionCompleteWork, role)
		if err != nil {
			return err
		}

		report = models.WorkCompletionReport{
			InterventionID: itv.ID,
			PrestataireID:  userID,
			Summary:        in.Summary,
			Details:        in.Details,
			MaterialsUsed:  in.MaterialsUsed,
			ActualDuration: in.ActualDuration,
			ActualCost:     in.ActualCost,
			BeforePhotos:   refsJSON(in.BeforePhotos),
			AfterPhotos:    refsJSON(in.AfterPhotos),
			Assurance:      checklistMap(in.Assurance),
		}
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		return advanceStatus(tx, itv, expected, next, nil)
	})
	if err != nil {
		return nil, err
	}
	e.notify(itv, ActionCompleteWork, itv.Status)
	return &report, nil
}

// TenantValidationInput est la décision du locataire (étape 2) : approbation
// avec checklist complète, ou contestation motivée avec sévérité.
type TenantValidationInput struct {
	Decision            string             `json:"decision"` // approuver | contester
	Comment             string             `json:"comment"`
	SatisfactionRatings map[string]float64 `json:"satisfaction_ratings"`
	Approval            map[string]bool    `json:"approval"`
	IssueDescription    string             `json:"issue_description"`
	IssueSeverity       string             `json:"issue_severity"`
	IssuePhotos         []string           `json:"issue_photos"`
}

func (in TenantValidationInput) validate() error {
	v := NewValidationError()
	v.RequireOneOf("decision", in.Decision, []string{models.ValidationApprove, models.ValidationContest})
	switch in.Decision {
	case models.ValidationApprove:
		v.RequireText("comment", in.Comment)
		v.RequireChecklist("approval", in.Approval, approvalChecklist)
	case models.ValidationContest:
		v.RequireText("issue_description", in.IssueDescription)
		v.RequireOneOf("issue_severity", in.IssueSeverity,
			[]string{models.SeverityMineure, models.SeverityMajeure, models.SeverityCritique})
	}
	return v.OrNil()
}

// SubmitTenantValidation : l'approbation passe l'intervention en
// "cloturee_par_locataire" ; la contestation la renvoie vers le statut de
// correction configuré (en_cours par défaut) pour un nouveau cycle de travaux.
func (e *Engine) SubmitTenantValidation(interventionID uint, expected models.InterventionStatus, role string, userID uint, in TenantValidationInput) (*models.TenantValidation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	action := ActionValidateWork
	if in.Decision == models.ValidationContest {
		action = ActionContestWork
	}

	var (
		validation models.TenantValidation
		itv        *models.Intervention
	)
	err := e.serialized(func(tx *gorm.DB) error {
		var err error
		itv, err = loadIntervention(tx, interventionID)
		if err != nil {
			return err
		}
		if itv.Status != expected {
			return ErrStaleState
		}
		if err := e.authorize(tx, itv, role, userID, action); err != nil {
			return err
		}
		next, err := e.machine.Transition(expected, action, role)
		if err != nil {
			return err
		}

		ratings := map[string]interface{}{}
		for k, val := range in.SatisfactionRatings {
			ratings[k] = val
		}
		validation = models.TenantValidation{
			InterventionID:      itv.ID,
			LocataireID:         userID,
			Decision:            in.Decision,
			Comment:             in.Comment,
			SatisfactionRatings: ratings,
			Approval:            checklistMap(in.Approval),
			IssueDescription:    in.IssueDescription,
			IssueSeverity:       in.IssueSeverity,
			IssuePhotos:         refsJSON(in.IssuePhotos),
		}
		if err := tx.Create(&validation).Error; err != nil {
			return err
		}
		return advanceStatus(tx, itv, expected, next, nil)
	})
	if err != nil {
		return nil, err
	}
	e.notify(itv, action, itv.Status)
	return &validation, nil
}

// ManagerFinalizationInput est la clôture administrative (étape 3, terminale).
type ManagerFinalizationInput struct {
	FinalStatus           string          `json:"final_status"`
	AdminComments         string          `json:"admin_comments"`
	QualityControl        map[string]bool `json:"quality_control"`
	Documentation         map[string]bool `json:"documentation"`
	FinalCost             float64         `json:"final_cost"`
	VarianceJustification string          `json:"variance_justification"`
	ArchiveCategory       string          `json:"archive_category"`
	ArchiveKeywords       []string        `json:"archive_keywords"`
	RetentionYears        int             `json:"retention_years"`
	AccessLevel           string          `json:"access_level"`
}

func (in ManagerFinalizationInput) validate() error {
	v := NewValidationError()
	v.RequireText("admin_comments", in.AdminComments)
	v.RequireChecklist("quality_control", in.QualityControl, qualityControlChecklist)
	v.RequireChecklist("documentation", in.Documentation, documentationChecklist)
	v.RequirePositive("final_cost", in.FinalCost)
	return v.OrNil()
}

// SubmitManagerFinalization clôt définitivement l'intervention. L'écart entre
// le coût final et le devis accepté est calculé dans la transaction ; au-delà
// du seuil configuré, une justification non vide est exigée. Les métadonnées
// d'archivage sont figées au commit.
func (e *Engine) SubmitManagerFinalization(interventionID uint, expected models.InterventionStatus, role string, userID uint, in ManagerFinalizationInput) (*models.ManagerFinalization, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		final models.ManagerFinalization
		itv   *models.Intervention
	)
	err := e.serialized(func(tx *gorm.DB) error {
		var err error
		itv, err = loadIntervention(tx, interventionID)
		if err != nil {
			return err
		}
		if itv.Status != expected {
			return ErrStaleState
		}
		if err := e.authorize(tx, itv, role, userID, ActionFinalize); err != nil {
			return err
		}
		next, err := e.machine.Transition(expected, ActionFinalize, role)
		if err != nil {
			return err
		}

		variance := 0.0
		var accepted models.Quote
		err = tx.Where("intervention_id = ? AND status = ?", itv.ID, models.QuoteAccepted).
			First(&accepted).Error
		switch {
		case err == nil:
			if accepted.TotalCost > 0 {
				variance = math.Abs(in.FinalCost-accepted.TotalCost) / accepted.TotalCost * 100
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Pas de devis accepté (intervention planifiée hors sollicitation) :
			// pas d'écart budgétaire opposable.
		default:
			return err
		}
		if variance > e.cfg.VarianceThresholdPct {
			v := NewValidationError()
			v.RequireText("variance_justification", in.VarianceJustification)
			if err := v.OrNil(); err != nil {
				return err
			}
		}

		category := in.ArchiveCategory
		if category == "" {
			category = itv.Type
		}
		retention := in.RetentionYears
		if retention <= 0 {
			retention = 10
		}
		access := in.AccessLevel
		if access == "" {
			access = "equipe"
		}

		final = models.ManagerFinalization{
			InterventionID:        itv.ID,
			GestionnaireID:        userID,
			FinalStatus:           in.FinalStatus,
			AdminComments:         in.AdminComments,
			QualityControl:        checklistMap(in.QualityControl),
			Documentation:         checklistMap(in.Documentation),
			FinalCost:             in.FinalCost,
			BudgetVariancePct:     variance,
			VarianceJustification: in.VarianceJustification,
			ArchiveCategory:       category,
			ArchiveKeywords:       refsJSON(in.ArchiveKeywords),
			RetentionYears:        retention,
			AccessLevel:           access,
		}
		if err := tx.Create(&final).Error; err != nil {
			return err
		}
		return advanceStatus(tx, itv, expected, next, nil)
	})
	if err != nil {
		return nil, err
	}
	e.notify(itv, ActionFinalize, itv.Status)
	return &final, nil
}
