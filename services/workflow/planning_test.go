package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/aumugisha-umu/seido-sub000/models"
)

// advanceToPlanification s'arrête à la phase de négociation des créneaux.
func (f *fixture) advanceToPlanification() {
	f.t.Helper()
	f.approve()
	f.requestQuotes(f.prestataire.ID)
	quote := f.submitQuote(f.prestataire.ID, 200)
	f.approveQuote(quote.ID)
	f.mustStatus(models.StatusPlanification)
}

func inAWeek() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func TestProposeSlots_validationDesEntrees(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanification()

	_, err := f.engine.ProposeSlots(f.itv.ID, models.StatusPlanification,
		models.RoleGestionnaire, f.gestionnaire.ID, []SlotInput{
			{Date: "03/09/2026", StartTime: "09:00", EndTime: "11:00"},
		})
	mustField(t, asValidation(t, err), "slots.date")

	_, err = f.engine.ProposeSlots(f.itv.ID, models.StatusPlanification,
		models.RoleGestionnaire, f.gestionnaire.ID, []SlotInput{
			{Date: inAWeek(), StartTime: "11:00", EndTime: "09:00"},
		})
	mustField(t, asValidation(t, err), "slots.heure")

	_, err = f.engine.ProposeSlots(f.itv.ID, models.StatusPlanification,
		models.RoleGestionnaire, f.gestionnaire.ID, nil)
	mustField(t, asValidation(t, err), "slots")
}

func TestProposeSlots_statutSelonLeRole(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanification()

	fromManager := f.proposeSlot(models.RoleGestionnaire, f.gestionnaire.ID, inAWeek())
	if fromManager.Status != models.TimeSlotRequested {
		t.Fatalf("créneau gestionnaire = %q, attendu requested", fromManager.Status)
	}

	fromProvider := f.proposeSlot(models.RolePrestataire, f.prestataire.ID, inAWeek())
	if fromProvider.Status != models.TimeSlotPending {
		t.Fatalf("créneau prestataire = %q, attendu pending", fromProvider.Status)
	}
}

func TestProposeSlots_horsPhasePlanification(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	_, err := f.engine.ProposeSlots(f.itv.ID, models.StatusDemande,
		models.RoleGestionnaire, f.gestionnaire.ID, []SlotInput{
			{Date: inAWeek(), StartTime: "09:00", EndTime: "11:00"},
		})
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("erreur = %v, attendu InvalidTransitionError", err)
	}
}

func TestRespondToSlot_rejetExigeUneRaisonDeveloppee(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanification()
	slot := f.proposeSlot(models.RoleGestionnaire, f.gestionnaire.ID, inAWeek())

	_, err := f.engine.RespondToSlot(slot.ID, f.locataire.ID, models.RoleLocataire,
		models.SlotResponseReject, "non")
	mustField(t, asValidation(t, err), "reason")

	resp, err := f.engine.RespondToSlot(slot.ID, f.locataire.ID, models.RoleLocataire,
		models.SlotResponseReject, "Absent du domicile toute la journée")
	if err != nil {
		t.Fatalf("RespondToSlot: %v", err)
	}
	if resp.Reason == "" {
		t.Fatal("la raison du rejet doit être conservée")
	}
}

func TestRespondToSlot_upsertIdempotent(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanification()
	slot := f.proposeSlot(models.RoleGestionnaire, f.gestionnaire.ID, inAWeek())

	first, err := f.engine.RespondToSlot(slot.ID, f.locataire.ID, models.RoleLocataire,
		models.SlotResponseAccept, "")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Changement d'avis : la même ligne est mise à jour, jamais dupliquée.
	second, err := f.engine.RespondToSlot(slot.ID, f.locataire.ID, models.RoleLocataire,
		models.SlotResponseReject, "Créneau incompatible avec mes horaires")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("réponse dupliquée: ids %d puis %d", first.ID, second.ID)
	}

	third, err := f.engine.RespondToSlot(slot.ID, f.locataire.ID, models.RoleLocataire,
		models.SlotResponseAccept, "")
	if err != nil {
		t.Fatalf("re-accept: %v", err)
	}
	if third.Response != models.SlotResponseAccept || third.Reason != "" {
		t.Fatalf("réponse = %+v, attendu accept sans raison", third)
	}

	var count int64
	f.db.Model(&models.TimeSlotResponse{}).
		Where("time_slot_id = ? AND responder_id = ?", slot.ID, f.locataire.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("réponses en base = %d, attendu 1", count)
	}
}

func TestWithdrawResponse(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanification()
	slot := f.proposeSlot(models.RoleGestionnaire, f.gestionnaire.ID, inAWeek())

	if _, err := f.engine.WithdrawResponse(slot.ID, f.locataire.ID, models.RoleLocataire); !errors.Is(err, ErrNotFound) {
		t.Fatalf("retrait sans réponse: erreur = %v, attendu ErrNotFound", err)
	}

	if _, err := f.engine.RespondToSlot(slot.ID, f.locataire.ID, models.RoleLocataire,
		models.SlotResponseAccept, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}
	withdrawn, err := f.engine.WithdrawResponse(slot.ID, f.locataire.ID, models.RoleLocataire)
	if err != nil {
		t.Fatalf("WithdrawResponse: %v", err)
	}
	if withdrawn.Response != models.SlotResponseWithdrawn {
		t.Fatalf("réponse = %q, attendu withdrawn", withdrawn.Response)
	}
}

func TestConfirmSlot_estampilleLaDate(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanification()
	slot := f.proposeSlot(models.RoleGestionnaire, f.gestionnaire.ID, inAWeek())
	rival := f.proposeSlot(models.RolePrestataire, f.prestataire.ID, inAWeek())

	f.confirmSlot(slot.ID)
	f.mustStatus(models.StatusPlanifiee)

	itv := f.reload()
	if itv.ScheduledDate == nil || itv.ScheduledStart != "09:00" || itv.ScheduledEnd != "11:00" {
		t.Fatalf("planification non estampillée: %+v", itv)
	}

	var selected models.TimeSlot
	f.db.First(&selected, slot.ID)
	if selected.SelectedAt == nil {
		t.Fatal("selected_at doit être horodaté sur le créneau retenu")
	}

	// Les candidats non retenus restent en base.
	var others models.TimeSlot
	if err := f.db.First(&others, rival.ID).Error; err != nil {
		t.Fatalf("créneau supplanté disparu: %v", err)
	}
}

func TestConfirmSlot_creneauDUneAutreIntervention(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanification()

	autre, err := f.engine.CreateIntervention(models.RoleLocataire, f.locataire.ID, InterventionInput{
		Title:       "Volet roulant bloqué",
		Description: "Le volet de la chambre ne remonte plus",
		Type:        "menuiserie",
		Urgency:     models.UrgencyNormale,
		LotID:       f.lot.ID,
	})
	if err != nil {
		t.Fatalf("CreateIntervention: %v", err)
	}
	foreign := models.TimeSlot{
		InterventionID: autre.ID,
		Date:           time.Now().AddDate(0, 0, 3),
		StartTime:      "14:00",
		EndTime:        "16:00",
		Status:         models.TimeSlotRequested,
		ProposerID:     f.gestionnaire.ID,
		ProposerRole:   models.RoleGestionnaire,
	}
	mustCreate(t, f.db, &foreign)

	_, err = f.engine.ConfirmSlot(f.itv.ID, models.StatusPlanification, foreign.ID,
		models.RoleLocataire, f.locataire.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("erreur = %v, attendu ErrNotFound", err)
	}
}

func TestConfirmSlot_locataireHorsTitreRefuse(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanification()
	slot := f.proposeSlot(models.RoleGestionnaire, f.gestionnaire.ID, inAWeek())

	_, err := f.engine.ConfirmSlot(f.itv.ID, models.StatusPlanification, slot.ID,
		models.RoleLocataire, f.autreLoc.ID)
	if !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("erreur = %v, attendu ErrAuthorizationDenied", err)
	}
}
