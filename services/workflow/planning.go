package workflow

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/aumugisha-umu/seido-sub000/models"
)

// Négociation des créneaux pendant la phase "planification" : propositions
// multi-acteurs, réponses idempotentes, confirmation finale qui fige la date
// sur l'intervention.

const rejectReasonMinLen = 10

// SlotInput est un créneau candidat proposé.
type SlotInput struct {
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`
}

func parseSlot(in SlotInput) (time.Time, error) {
	return time.Parse("2006-01-02", in.Date)
}

func validSlotTime(v string) bool {
	_, err := time.Parse("15:04", v)
	return err == nil
}

// ProposeSlots ajoute des créneaux candidats. Gestionnaire → "requested",
// prestataire → "pending". Ne change pas le statut de l'intervention.
func (e *Engine) ProposeSlots(interventionID uint, expected models.InterventionStatus, role string, userID uint, inputs []SlotInput) ([]models.TimeSlot, error) {
	v := NewValidationError()
	if len(inputs) == 0 {
		v.Add("slots", "au moins un créneau requis")
		return nil, v
	}
	dates := make([]time.Time, len(inputs))
	for i, in := range inputs {
		d, err := parseSlot(in)
		if err != nil {
			v.Add("slots.date", "format attendu YYYY-MM-DD")
			continue
		}
		dates[i] = d
		if !validSlotTime(in.StartTime) || !validSlotTime(in.EndTime) {
			v.Add("slots.heure", "format attendu HH:MM")
			continue
		}
		if in.EndTime <= in.StartTime {
			v.Add("slots.heure", "l'heure de fin doit suivre l'heure de début")
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	slotStatus := models.TimeSlotRequested
	if role == models.RolePrestataire {
		slotStatus = models.TimeSlotPending
	}

	var created []models.TimeSlot
	err := e.serialized(func(tx *gorm.DB) error {
		created = nil
		itv, err := loadIntervention(tx, interventionID)
		if err != nil {
			return err
		}
		if itv.Status != expected {
			return ErrStaleState
		}
		if err := e.authorize(tx, itv, role, userID, ActionProposeSlots); err != nil {
			return err
		}
		for i, in := range inputs {
			slot := models.TimeSlot{
				InterventionID: itv.ID,
				Date:           dates[i],
				StartTime:      in.StartTime,
				EndTime:        in.EndTime,
				Status:         slotStatus,
				ProposerID:     userID,
				ProposerRole:   role,
			}
			if err := tx.Create(&slot).Error; err != nil {
				return err
			}
			created = append(created, slot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RespondToSlot enregistre accept/reject pour (créneau, répondant). Upsert
// idempotent : rejouer la même réponse met à jour la ligne existante, jamais
// de doublon. Le rejet exige une raison d'au moins 10 caractères, visible de
// tous les participants.
func (e *Engine) RespondToSlot(slotID uint, userID uint, role string, response string, reason string) (*models.TimeSlotResponse, error) {
	v := NewValidationError()
	v.RequireOneOf("response", response, []string{models.SlotResponseAccept, models.SlotResponseReject})
	if response == models.SlotResponseReject {
		v.RequireMinLen("reason", reason, rejectReasonMinLen)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if response == models.SlotResponseAccept {
		reason = ""
	}

	var saved models.TimeSlotResponse
	err := e.serialized(func(tx *gorm.DB) error {
		var slot models.TimeSlot
		if err := tx.First(&slot, slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		itv, err := loadIntervention(tx, slot.InterventionID)
		if err != nil {
			return err
		}
		if err := e.authorize(tx, itv, role, userID, ActionRespondSlot); err != nil {
			return err
		}

		var existing models.TimeSlotResponse
		err = tx.Where("time_slot_id = ? AND responder_id = ?", slot.ID, userID).
			First(&existing).Error
		switch {
		case err == nil:
			existing.Response = response
			existing.Reason = reason
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			saved = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved = models.TimeSlotResponse{
				TimeSlotID:  slot.ID,
				ResponderID: userID,
				Response:    response,
				Reason:      reason,
			}
			if err := tx.Create(&saved).Error; err != nil {
				return err
			}
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// WithdrawResponse remet la réponse de l'acteur à "sans réponse" sans toucher
// au créneau ni aux réponses des autres participants.
func (e *Engine) WithdrawResponse(slotID uint, userID uint, role string) (*models.TimeSlotResponse, error) {
	var saved models.TimeSlotResponse
	err := e.serialized(func(tx *gorm.DB) error {
		var slot models.TimeSlot
		if err := tx.First(&slot, slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		itv, err := loadIntervention(tx, slot.InterventionID)
		if err != nil {
			return err
		}
		if err := e.authorize(tx, itv, role, userID, ActionRespondSlot); err != nil {
			return err
		}
		if err := tx.Where("time_slot_id = ? AND responder_id = ?", slot.ID, userID).
			First(&saved).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		saved.Response = models.SlotResponseWithdrawn
		saved.Reason = ""
		return tx.Save(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// ConfirmSlot arrête le créneau définitif : seule opération qui fait passer
// l'intervention en "planifiee", en estampillant la date retenue. Les autres
// candidats restent en base (supplantés, pas supprimés).
func (e *Engine) ConfirmSlot(interventionID uint, expected models.InterventionStatus, slotID uint, role string, userID uint) (*models.Intervention, error) {
	var itv *models.Intervention
	err := e.serialized(func(tx *gorm.DB) error {
		var err error
		itv, err = loadIntervention(tx, interventionID)
		if err != nil {
			return err
		}
		if itv.Status != expected {
			return ErrStaleState
		}
		if err := e.authorize(tx, itv, role, userID, ActionConfirmSlot); err != nil {
			return err
		}

		var slot models.TimeSlot
		if err := tx.First(&slot, slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if slot.InterventionID != itv.ID {
			return ErrNotFound
		}

		next, err := e.machine.Transition(expected, ActionConfirmSlot, role)
		if err != nil {
			return err
		}
		now := time.Now()
		if err := tx.Model(&models.TimeSlot{}).Where("id = ?", slot.ID).
			Update("selected_at", now).Error; err != nil {
			return err
		}
		if err := advanceStatus(tx, itv, expected, next, map[string]interface{}{
			"scheduled_date":  slot.Date,
			"scheduled_start": slot.StartTime,
			"scheduled_end":   slot.EndTime,
		}); err != nil {
			return err
		}
		date := slot.Date
		itv.ScheduledDate = &date
		itv.ScheduledStart = slot.StartTime
		itv.ScheduledEnd = slot.EndTime
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.notify(itv, ActionConfirmSlot, itv.Status)
	return itv, nil
}

// ListSlots renvoie les créneaux et leurs réponses (les raisons de rejet sont
// visibles de tous les participants).
func (e *Engine) ListSlots(interventionID uint) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	err := e.db.Preload("Responses").
		Where("intervention_id = ?", interventionID).
		Order("date, start_time").
		Find(&slots).Error
	return slots, err
}
