package workflow

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aumugisha-umu/seido-sub000/models"
)

// QuoteSolicitation décrit une demande de devis envoyée à plusieurs
// prestataires, avec un message individuel optionnel par destinataire.
type QuoteSolicitation struct {
	PrestataireIDs []uint          `json:"prestataire_ids"`
	Deadline       *time.Time      `json:"deadline,omitempty"`
	GeneralNotes   string          `json:"general_notes"`
	Messages       map[uint]string `json:"messages,omitempty"`
}

// EligibilityEntry : un prestataire inéligible est listé avec sa raison,
// jamais masqué silencieusement.
type EligibilityEntry struct {
	PrestataireID uint   `json:"prestataire_id"`
	Eligible      bool   `json:"eligible"`
	Reason        string `json:"reason,omitempty"`
}

// QuoteInput est le contenu d'un devis (dépôt ou modification).
type QuoteInput struct {
	LaborCost         float64  `json:"labor_cost"`
	MaterialsCost     float64  `json:"materials_cost"`
	Description       string   `json:"description"`
	WorkDetails       string   `json:"work_details"`
	EstimatedDuration float64  `json:"estimated_duration_hours"`
	Attachments       []string `json:"attachments"`
}

func (in QuoteInput) validate() error {
	v := NewValidationError()
	v.RequireText("description", in.Description)
	v.RequireText("work_details", in.WorkDetails)
	v.RequirePositive("estimated_duration_hours", in.EstimatedDuration)
	if in.LaborCost < 0 {
		v.Add("labor_cost", "coût négatif interdit")
	}
	if in.MaterialsCost < 0 {
		v.Add("materials_cost", "coût négatif interdit")
	}
	v.RequirePositive("total_cost", in.LaborCost+in.MaterialsCost)
	return v.OrNil()
}

// RequestQuotes sollicite des devis. Depuis "approuvee" l'intervention passe en
// "demande_de_devis" ; depuis "demande_de_devis" on peut élargir la
// sollicitation sans changer de statut. Un prestataire détenant déjà un devis
// actif est exclu et listé inéligible.
func (e *Engine) RequestQuotes(interventionID uint, expected models.InterventionStatus, role string, userID uint, sol QuoteSolicitation) ([]EligibilityEntry, error) {
	if len(sol.PrestataireIDs) == 0 {
		v := NewValidationError()
		v.Add("prestataire_ids", "au moins un prestataire requis")
		return nil, v
	}

	var (
		entries []EligibilityEntry
		itv     *models.Intervention
	)
	err := e.serialized(func(tx *gorm.DB) error {
		var err error
		entries = nil
		itv, err = loadIntervention(tx, interventionID)
		if err != nil {
			return err
		}
		if itv.Status != expected {
			return ErrStaleState
		}
		if err := e.authorize(tx, itv, role, userID, ActionRequestQuotes); err != nil {
			return err
		}

		eligibleCount := 0
		for _, pid := range sol.PrestataireIDs {
			entry := EligibilityEntry{PrestataireID: pid, Eligible: true}

			var user models.User
			if err := tx.First(&user, pid).Error; err != nil || user.Role != models.RolePrestataire {
				entry.Eligible = false
				entry.Reason = "Prestataire inconnu"
				entries = append(entries, entry)
				continue
			}

			var active models.Quote
			err := tx.Where("intervention_id = ? AND prestataire_id = ? AND status IN ?",
				itv.ID, pid, []models.QuoteStatus{models.QuotePending, models.QuoteSent, models.QuoteAccepted}).
				First(&active).Error
			if err == nil {
				entry.Eligible = false
				entry.Reason = fmt.Sprintf("A déjà un devis actif (statut %s) sur cette intervention", active.Status)
				entries = append(entries, entry)
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			request := models.QuoteRequest{
				InterventionID:    itv.ID,
				PrestataireID:     pid,
				RequestedBy:       userID,
				Deadline:          sol.Deadline,
				GeneralNotes:      sol.GeneralNotes,
				IndividualMessage: sol.Messages[pid],
			}
			// Relance : une sollicitation existante est mise à jour, pas dupliquée.
			var existing models.QuoteRequest
			err = tx.Where("intervention_id = ? AND prestataire_id = ?", itv.ID, pid).
				First(&existing).Error
			switch {
			case err == nil:
				existing.Deadline = sol.Deadline
				existing.GeneralNotes = sol.GeneralNotes
				existing.IndividualMessage = sol.Messages[pid]
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&request).Error; err != nil {
					return err
				}
			default:
				return err
			}
			eligibleCount++
			entries = append(entries, entry)
		}

		if eligibleCount == 0 {
			v := NewValidationError()
			v.Add("prestataire_ids", "aucun prestataire éligible dans la sélection")
			return v
		}

		if expected == models.StatusApprouvee {
			return advanceStatus(tx, itv, expected, models.StatusDemandeDeDevis, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if itv.Status == models.StatusDemandeDeDevis && expected == models.StatusApprouvee {
		e.notify(itv, ActionRequestQuotes, models.StatusDemandeDeDevis)
	}
	return entries, nil
}

// SubmitQuote dépose un devis en réponse à une sollicitation.
func (e *Engine) SubmitQuote(interventionID uint, role string, userID uint, in QuoteInput) (*models.Quote, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var quote models.Quote
	err := e.serialized(func(tx *gorm.DB) error {
		itv, err := loadIntervention(tx, interventionID)
		if err != nil {
			return err
		}
		if err := e.authorize(tx, itv, role, userID, ActionSubmitQuote); err != nil {
			// Un devis actif existant fait basculer l'affordance vers
			// modifier/annuler : requalifier le refus pour l'appelant.
			if errors.Is(err, ErrAuthorizationDenied) {
				var active int64
				tx.Model(&models.Quote{}).
					Where("intervention_id = ? AND prestataire_id = ? AND status IN ?",
						itv.ID, userID, []models.QuoteStatus{models.QuotePending, models.QuoteSent, models.QuoteAccepted}).
					Count(&active)
				if active > 0 {
					v := NewValidationError()
					v.Add("devis", "un devis actif existe déjà pour ce prestataire")
					return v
				}
			}
			return err
		}

		now := time.Now()
		quote = models.Quote{
			InterventionID:    itv.ID,
			PrestataireID:     userID,
			LaborCost:         in.LaborCost,
			MaterialsCost:     in.MaterialsCost,
			TotalCost:         in.LaborCost + in.MaterialsCost,
			Description:       in.Description,
			WorkDetails:       in.WorkDetails,
			EstimatedDuration: in.EstimatedDuration,
			Status:            models.QuotePending,
			SubmittedAt:       &now,
			Attachments:       refsJSON(in.Attachments),
		}
		return tx.Create(&quote).Error
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// EditQuote : uniquement par le prestataire déposant, uniquement tant que le
// devis est en pending/sent. Précondition optimiste sur le statut du devis.
func (e *Engine) EditQuote(quoteID uint, userID uint, expected models.QuoteStatus, in QuoteInput) (*models.Quote, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if expected != models.QuotePending && expected != models.QuoteSent {
		v := NewValidationError()
		v.Add("status", "devis modifiable uniquement en pending ou sent")
		return nil, v
	}

	var quote models.Quote
	err := e.serialized(func(tx *gorm.DB) error {
		if err := tx.First(&quote, quoteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if quote.PrestataireID != userID {
			return ErrAuthorizationDenied
		}
		if quote.Status != expected {
			return ErrStaleState
		}

		res := tx.Model(&models.Quote{}).
			Where("id = ? AND status = ?", quote.ID, expected).
			Updates(map[string]interface{}{
				"labor_cost":         in.LaborCost,
				"materials_cost":     in.MaterialsCost,
				"total_cost":         in.LaborCost + in.MaterialsCost,
				"description":        in.Description,
				"work_details":       in.WorkDetails,
				"estimated_duration": in.EstimatedDuration,
				"attachments":        refsJSON(in.Attachments),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleState
		}
		return tx.First(&quote, quoteID).Error
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// CancelQuote passe le devis en "cancelled" (jamais de suppression physique).
// Impossible une fois le devis accepté.
func (e *Engine) CancelQuote(quoteID uint, userID uint, expected models.QuoteStatus) (*models.Quote, error) {
	if expected == models.QuoteAccepted {
		v := NewValidationError()
		v.Add("status", "un devis accepté ne peut plus être annulé")
		return nil, v
	}

	var quote models.Quote
	err := e.serialized(func(tx *gorm.DB) error {
		if err := tx.First(&quote, quoteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if quote.PrestataireID != userID {
			return ErrAuthorizationDenied
		}
		if quote.Status != expected {
			return ErrStaleState
		}

		res := tx.Model(&models.Quote{}).
			Where("id = ? AND status = ?", quote.ID, expected).
			Update("status", models.QuoteCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleState
		}
		quote.Status = models.QuoteCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// QuoteReview est la décision du gestionnaire sur un devis.
type QuoteReview struct {
	Approve  bool   `json:"approve"`
	Comments string `json:"comments"`
	Reason   string `json:"reason"`
}

const siblingRejectionReason = "Un autre devis a été retenu pour cette intervention"

// ReviewQuote examine un devis. Le rejet exige une raison. L'approbation est
// la seule opération qui fait avancer l'intervention (vers "planification") et
// elle est atomique avec l'invariant "un seul devis accepté" : les devis
// concurrents encore en attente sont auto-rejetés dans la même transaction.
func (e *Engine) ReviewQuote(quoteID uint, role string, userID uint, expected models.QuoteStatus, review QuoteReview) (*models.Quote, error) {
	if expected != models.QuotePending && expected != models.QuoteSent {
		v := NewValidationError()
		v.Add("status", "seul un devis en pending ou sent peut être examiné")
		return nil, v
	}
	if !review.Approve {
		v := NewValidationError()
		v.RequireText("reason", review.Reason)
		if err := v.OrNil(); err != nil {
			return nil, err
		}
	}

	var (
		quote models.Quote
		itv   *models.Intervention
	)
	err := e.serialized(func(tx *gorm.DB) error {
		if err := tx.First(&quote, quoteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		var err error
		itv, err = loadIntervention(tx, quote.InterventionID)
		if err != nil {
			return err
		}
		if err := e.authorize(tx, itv, role, userID, ActionReviewQuote); err != nil {
			return err
		}
		if quote.Status != expected {
			return ErrStaleState
		}

		now := time.Now()
		if !review.Approve {
			res := tx.Model(&models.Quote{}).
				Where("id = ? AND status = ?", quote.ID, expected).
				Updates(map[string]interface{}{
					"status":           models.QuoteRejected,
					"reviewed_at":      now,
					"reviewed_by":      userID,
					"rejection_reason": review.Reason,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrStaleState
			}
			return tx.First(&quote, quoteID).Error
		}

		// Invariant : au plus un devis accepté par intervention, vérifié dans
		// la même transaction que l'acceptation.
		var accepted int64
		if err := tx.Model(&models.Quote{}).
			Where("intervention_id = ? AND status = ?", itv.ID, models.QuoteAccepted).
			Count(&accepted).Error; err != nil {
			return err
		}
		if accepted > 0 {
			v := NewValidationError()
			v.Add("devis", "un devis est déjà accepté pour cette intervention")
			return v
		}

		res := tx.Model(&models.Quote{}).
			Where("id = ? AND status = ?", quote.ID, expected).
			Updates(map[string]interface{}{
				"status":          models.QuoteAccepted,
				"reviewed_at":     now,
				"reviewed_by":     userID,
				"review_comments": review.Comments,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleState
		}

		// Politique fixée : les devis frères encore en attente sont rejetés
		// d'office, même transaction.
		if err := tx.Model(&models.Quote{}).
			Where("intervention_id = ? AND id <> ? AND status IN ?",
				itv.ID, quote.ID, []models.QuoteStatus{models.QuotePending, models.QuoteSent}).
			Updates(map[string]interface{}{
				"status":           models.QuoteRejected,
				"reviewed_at":      now,
				"reviewed_by":      userID,
				"rejection_reason": siblingRejectionReason,
			}).Error; err != nil {
			return err
		}

		next, err := e.machine.Transition(models.StatusDemandeDeDevis, ActionReviewQuote, role)
		if err != nil {
			return err
		}
		if err := advanceStatus(tx, itv, models.StatusDemandeDeDevis, next, nil); err != nil {
			return err
		}
		return tx.First(&quote, quoteID).Error
	})
	if err != nil {
		return nil, err
	}
	if review.Approve {
		e.notify(itv, ActionReviewQuote, models.StatusPlanification)
	}
	return &quote, nil
}

// ListQuotes renvoie les devis de l'intervention triés par score consultatif
// (jamais utilisé pour sélectionner automatiquement).
func (e *Engine) ListQuotes(interventionID uint) ([]RankedQuote, error) {
	var quotes []models.Quote
	if err := e.db.Where("intervention_id = ?", interventionID).Find(&quotes).Error; err != nil {
		return nil, err
	}
	var requests []models.QuoteRequest
	if err := e.db.Where("intervention_id = ?", interventionID).Find(&requests).Error; err != nil {
		return nil, err
	}
	return RankQuotes(quotes, requests), nil
}
