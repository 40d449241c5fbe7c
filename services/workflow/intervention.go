package workflow

import (
	"errors"

	"gorm.io/gorm"

	"github.com/aumugisha-umu/seido-sub000/models"
	"github.com/aumugisha-umu/seido-sub000/utils"
)

// InterventionInput est la demande initiale de maintenance.
type InterventionInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Urgency     models.Urgency `json:"urgency"`
	LotID       uint           `json:"lot_id"`
}

// CreateIntervention crée la demande en statut initial "demande". Un locataire
// ne peut déclarer que sur son propre lot ; un gestionnaire sur tout lot de
// son équipe.
func (e *Engine) CreateIntervention(role string, userID uint, in InterventionInput) (*models.Intervention, error) {
	v := NewValidationError()
	v.RequireText("title", in.Title)
	v.RequireText("description", in.Description)
	if in.Urgency == "" {
		in.Urgency = models.UrgencyNormale
	}
	v.RequireOneOf("urgency", string(in.Urgency), []string{
		string(models.UrgencyBasse), string(models.UrgencyNormale),
		string(models.UrgencyHaute), string(models.UrgencyUrgente),
	})
	if in.LotID == 0 {
		v.Add("lot_id", "lot obligatoire")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var itv models.Intervention
	err := e.serialized(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAuthorizationDenied
			}
			return err
		}
		if user.Role != role {
			return ErrAuthorizationDenied
		}

		var lot models.Lot
		if err := tx.First(&lot, in.LotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		switch role {
		case models.RoleLocataire:
			if lot.LocataireID != userID {
				return ErrAuthorizationDenied
			}
		case models.RoleGestionnaire:
			// Le gestionnaire déclare au nom du locataire en titre, sur les
			// lots de sa propre équipe uniquement.
			if user.TeamID != lot.TeamID {
				return ErrAuthorizationDenied
			}
		default:
			return ErrAuthorizationDenied
		}

		itv = models.Intervention{
			TeamID:      lot.TeamID,
			Reference:   utils.NewReference("INT"),
			Title:       in.Title,
			Description: in.Description,
			Type:        in.Type,
			Urgency:     in.Urgency,
			Status:      models.StatusDemande,
			LocataireID: lot.LocataireID,
			LotID:       lot.ID,
		}
		return tx.Create(&itv).Error
	})
	if err != nil {
		return nil, err
	}
	return &itv, nil
}

// GetIntervention charge une intervention par id.
func (e *Engine) GetIntervention(id uint) (*models.Intervention, error) {
	return loadIntervention(e.db, id)
}

// ListInterventions renvoie les interventions visibles pour l'acteur :
// locataire → ses lots, prestataire → celles où il est sollicité ou a déposé
// un devis, gestionnaire → toute son équipe.
func (e *Engine) ListInterventions(role string, userID uint, teamID uint) ([]models.Intervention, error) {
	var out []models.Intervention
	q := e.db.Order("created_at DESC")

	switch role {
	case models.RoleLocataire:
		q = q.Where("locataire_id = ?", userID)
	case models.RolePrestataire:
		q = q.Where(
			"id IN (?)",
			e.db.Model(&models.QuoteRequest{}).Select("intervention_id").
				Where("prestataire_id = ?", userID),
		).Or(
			"id IN (?)",
			e.db.Model(&models.Quote{}).Select("intervention_id").
				Where("prestataire_id = ?", userID),
		)
	case models.RoleGestionnaire:
		q = q.Where("team_id = ?", teamID)
	default:
		return nil, ErrAuthorizationDenied
	}

	err := q.Find(&out).Error
	return out, err
}
