package workflow

import (
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aumugisha-umu/seido-sub000/database"
	"github.com/aumugisha-umu/seido-sub000/models"
)

// recordingNotifier capture les notifications émises après commit.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifyTransition(interventionID uint, reference string, newStatus models.InterventionStatus, action ActionKey) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, string(action)+"->"+string(newStatus))
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("ouverture sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migration: %v", err)
	}
	return db
}

// fixture monte une équipe complète : gestionnaire, locataire en titre sur un
// lot, deux prestataires, et une intervention fraîche en statut "demande".
type fixture struct {
	t        *testing.T
	engine   *Engine
	db       *gorm.DB
	notifier *recordingNotifier

	team         models.Team
	gestionnaire models.User
	locataire    models.User
	autreLoc     models.User
	prestataire  models.User
	prestataire2 models.User
	lot          models.Lot
	itv          models.Intervention
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db := testDB(t)
	notifier := &recordingNotifier{}
	engine, err := NewEngine(db, notifier, cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	f := &fixture{t: t, engine: engine, db: db, notifier: notifier}
	f.team = models.Team{Name: "Agence Test", Slug: "agence-test", Plan: "standard", Status: "active"}
	mustCreate(t, db, &f.team)

	f.gestionnaire = models.User{Name: "Gaëlle", Email: uniq(t, "g"), Role: models.RoleGestionnaire, TeamID: f.team.ID}
	f.locataire = models.User{Name: "Louis", Email: uniq(t, "l"), Role: models.RoleLocataire, TeamID: f.team.ID}
	f.autreLoc = models.User{Name: "Lina", Email: uniq(t, "l2"), Role: models.RoleLocataire, TeamID: f.team.ID}
	f.prestataire = models.User{Name: "Paulo", Email: uniq(t, "p"), Role: models.RolePrestataire, TeamID: f.team.ID}
	f.prestataire2 = models.User{Name: "Pénélope", Email: uniq(t, "p2"), Role: models.RolePrestataire, TeamID: f.team.ID}
	mustCreate(t, db, &f.gestionnaire)
	mustCreate(t, db, &f.locataire)
	mustCreate(t, db, &f.autreLoc)
	mustCreate(t, db, &f.prestataire)
	mustCreate(t, db, &f.prestataire2)

	f.lot = models.Lot{TeamID: f.team.ID, Reference: "LOT-A1", Building: "Bât. A", LocataireID: f.locataire.ID}
	mustCreate(t, db, &f.lot)

	itv, err := engine.CreateIntervention(models.RoleLocataire, f.locataire.ID, InterventionInput{
		Title:       "Fuite sous l'évier",
		Description: "Fuite d'eau continue sous l'évier de la cuisine",
		Type:        "plomberie",
		Urgency:     models.UrgencyHaute,
		LotID:       f.lot.ID,
	})
	if err != nil {
		t.Fatalf("CreateIntervention: %v", err)
	}
	f.itv = *itv
	return f
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("fixture: %v", err)
	}
}

func uniq(t *testing.T, prefix string) string {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return prefix + "-" + name + "@test.fr"
}

func (f *fixture) reload() models.Intervention {
	f.t.Helper()
	var itv models.Intervention
	if err := f.db.First(&itv, f.itv.ID).Error; err != nil {
		f.t.Fatalf("reload: %v", err)
	}
	f.itv = itv
	return itv
}

func (f *fixture) mustStatus(want models.InterventionStatus) {
	f.t.Helper()
	if got := f.reload().Status; got != want {
		f.t.Fatalf("statut = %q, attendu %q", got, want)
	}
}

// --- étapes du parcours nominal, pilotées uniquement via le moteur ---

func (f *fixture) approve() {
	f.t.Helper()
	if _, err := f.engine.ApplyTransition(f.itv.ID, models.StatusDemande, ActionApprove,
		models.RoleGestionnaire, f.gestionnaire.ID, TransitionPayload{}); err != nil {
		f.t.Fatalf("approve: %v", err)
	}
}

func (f *fixture) requestQuotes(prestataires ...uint) []EligibilityEntry {
	f.t.Helper()
	entries, err := f.engine.RequestQuotes(f.itv.ID, f.reload().Status, models.RoleGestionnaire, f.gestionnaire.ID, QuoteSolicitation{
		PrestataireIDs: prestataires,
		GeneralNotes:   "Merci de chiffrer la réparation",
	})
	if err != nil {
		f.t.Fatalf("requestQuotes: %v", err)
	}
	return entries
}

func quoteInput(total float64) QuoteInput {
	return QuoteInput{
		LaborCost:         total * 0.6,
		MaterialsCost:     total * 0.4,
		Description:       "Remplacement du siphon et du joint",
		WorkDetails:       "Dépose du siphon existant, remplacement du joint d'étanchéité, contrôle de fuite sous pression.",
		EstimatedDuration: 2,
	}
}

func (f *fixture) submitQuote(prestataireID uint, total float64) models.Quote {
	f.t.Helper()
	q, err := f.engine.SubmitQuote(f.itv.ID, models.RolePrestataire, prestataireID, quoteInput(total))
	if err != nil {
		f.t.Fatalf("submitQuote: %v", err)
	}
	return *q
}

func (f *fixture) approveQuote(quoteID uint) models.Quote {
	f.t.Helper()
	q, err := f.engine.ReviewQuote(quoteID, models.RoleGestionnaire, f.gestionnaire.ID, models.QuotePending, QuoteReview{
		Approve:  true,
		Comments: "Meilleur rapport qualité/prix",
	})
	if err != nil {
		f.t.Fatalf("approveQuote: %v", err)
	}
	return *q
}

func (f *fixture) proposeSlot(role string, userID uint, date string) models.TimeSlot {
	f.t.Helper()
	slots, err := f.engine.ProposeSlots(f.itv.ID, models.StatusPlanification, role, userID, []SlotInput{
		{Date: date, StartTime: "09:00", EndTime: "11:00"},
	})
	if err != nil {
		f.t.Fatalf("proposeSlot: %v", err)
	}
	return slots[0]
}

func (f *fixture) confirmSlot(slotID uint) {
	f.t.Helper()
	if _, err := f.engine.ConfirmSlot(f.itv.ID, models.StatusPlanification, slotID,
		models.RoleLocataire, f.locataire.ID); err != nil {
		f.t.Fatalf("confirmSlot: %v", err)
	}
}

func fullChecklist(keys []string) map[string]bool {
	out := map[string]bool{}
	for _, k := range keys {
		out[k] = true
	}
	return out
}

func workCompletion() WorkCompletionInput {
	return WorkCompletionInput{
		Summary:        "Siphon remplacé, fuite résolue",
		Details:        "Remplacement complet du siphon et du joint, test d'étanchéité effectué pendant 30 minutes.",
		MaterialsUsed:  "Siphon PVC, joint fibre",
		ActualDuration: 2.5,
		ActualCost:     210,
		AfterPhotos:    []string{"doc-42"},
		Assurance:      fullChecklist(assuranceChecklist),
	}
}

func tenantApproval() TenantValidationInput {
	return TenantValidationInput{
		Decision: models.ValidationApprove,
		Comment:  "Travail propre, plus aucune fuite",
		Approval: fullChecklist(approvalChecklist),
		SatisfactionRatings: map[string]float64{
			"qualite":  5,
			"delai":    4,
			"proprete": 5,
		},
	}
}

func managerFinalization(finalCost float64) ManagerFinalizationInput {
	return ManagerFinalizationInput{
		FinalStatus:    "terminee",
		AdminComments:  "Intervention conforme au devis accepté",
		QualityControl: fullChecklist(qualityControlChecklist),
		Documentation:  fullChecklist(documentationChecklist),
		FinalCost:      finalCost,
	}
}

// advanceToPlanifiee déroule demande → ... → planifiee et renvoie le devis accepté.
func (f *fixture) advanceToPlanifiee() models.Quote {
	f.t.Helper()
	f.approve()
	f.requestQuotes(f.prestataire.ID)
	quote := f.submitQuote(f.prestataire.ID, 200)
	f.approveQuote(quote.ID)
	slot := f.proposeSlot(models.RoleGestionnaire, f.gestionnaire.ID, time.Now().AddDate(0, 0, 7).Format("2006-01-02"))
	f.confirmSlot(slot.ID)
	f.mustStatus(models.StatusPlanifiee)
	return quote
}

// advanceToClotureePrestataire enchaîne jusqu'au rapport de fin de travaux.
func (f *fixture) advanceToClotureePrestataire() models.Quote {
	f.t.Helper()
	quote := f.advanceToPlanifiee()
	if _, err := f.engine.SubmitWorkCompletion(f.itv.ID, models.StatusPlanifiee,
		models.RolePrestataire, f.prestataire.ID, workCompletion()); err != nil {
		f.t.Fatalf("workCompletion: %v", err)
	}
	f.mustStatus(models.StatusClotureePrestataire)
	return quote
}
