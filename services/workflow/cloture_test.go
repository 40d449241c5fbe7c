package workflow

import (
	"errors"
	"math"
	"testing"

	"github.com/aumugisha-umu/seido-sub000/models"
)

func (f *fixture) advanceToClotureeLocataire() models.Quote {
	f.t.Helper()
	quote := f.advanceToClotureePrestataire()
	if _, err := f.engine.SubmitTenantValidation(f.itv.ID, models.StatusClotureePrestataire,
		models.RoleLocataire, f.locataire.ID, tenantApproval()); err != nil {
		f.t.Fatalf("tenantValidation: %v", err)
	}
	f.mustStatus(models.StatusClotureeLocataire)
	return quote
}

func TestSubmitWorkCompletion_checklistIncompleteRejeteeEnBloc(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanifiee()

	in := workCompletion()
	in.AfterPhotos = nil
	delete(in.Assurance, "locataire_informe")

	_, err := f.engine.SubmitWorkCompletion(f.itv.ID, models.StatusPlanifiee, models.RolePrestataire, f.prestataire.ID, in)
	v := asValidation(t, err)
	mustField(t, v, "after_photos")
	mustField(t, v, "assurance.locataire_informe")
	f.mustStatus(models.StatusPlanifiee)
}

func TestSubmitWorkCompletion_caseDecocheeRejetee(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanifiee()

	in := workCompletion()
	in.Assurance["zone_nettoyee"] = false

	_, err := f.engine.SubmitWorkCompletion(f.itv.ID, models.StatusPlanifiee, models.RolePrestataire, f.prestataire.ID, in)
	mustField(t, asValidation(t, err), "assurance.zone_nettoyee")
}

func TestSubmitWorkCompletion_depuisPlanifiee(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanifiee()

	report, err := f.engine.SubmitWorkCompletion(f.itv.ID, models.StatusPlanifiee,
		models.RolePrestataire, f.prestataire.ID, workCompletion())
	if err != nil {
		t.Fatalf("SubmitWorkCompletion: %v", err)
	}
	if report.ID == 0 || report.PrestataireID != f.prestataire.ID {
		t.Fatalf("rapport non persisté: %+v", report)
	}
	f.mustStatus(models.StatusClotureePrestataire)
}

func TestSubmitWorkCompletion_depuisEnCours(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanifiee()

	if _, err := f.engine.ApplyTransition(f.itv.ID, models.StatusPlanifiee, ActionStartWork,
		models.RolePrestataire, f.prestataire.ID, TransitionPayload{}); err != nil {
		t.Fatalf("startWork: %v", err)
	}
	f.mustStatus(models.StatusEnCours)

	if _, err := f.engine.SubmitWorkCompletion(f.itv.ID, models.StatusEnCours,
		models.RolePrestataire, f.prestataire.ID, workCompletion()); err != nil {
		t.Fatalf("SubmitWorkCompletion: %v", err)
	}
	f.mustStatus(models.StatusClotureePrestataire)
}

func TestSubmitTenantValidation_approbation(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToClotureePrestataire()

	validation, err := f.engine.SubmitTenantValidation(f.itv.ID, models.StatusClotureePrestataire,
		models.RoleLocataire, f.locataire.ID, tenantApproval())
	if err != nil {
		t.Fatalf("SubmitTenantValidation: %v", err)
	}
	if validation.Decision != models.ValidationApprove {
		t.Fatalf("décision = %q", validation.Decision)
	}
	f.mustStatus(models.StatusClotureeLocataire)
}

func TestSubmitTenantValidation_champsSelonLaDecision(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToClotureePrestataire()

	_, err := f.engine.SubmitTenantValidation(f.itv.ID, models.StatusClotureePrestataire,
		models.RoleLocataire, f.locataire.ID, TenantValidationInput{Decision: models.ValidationApprove})
	v := asValidation(t, err)
	mustField(t, v, "comment")
	mustField(t, v, "approval.travaux_conformes")

	_, err = f.engine.SubmitTenantValidation(f.itv.ID, models.StatusClotureePrestataire,
		models.RoleLocataire, f.locataire.ID, TenantValidationInput{Decision: models.ValidationContest})
	v = asValidation(t, err)
	mustField(t, v, "issue_description")
	mustField(t, v, "issue_severity")
}

func TestSubmitTenantValidation_contestationRetourneEnCours(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToClotureePrestataire()

	_, err := f.engine.SubmitTenantValidation(f.itv.ID, models.StatusClotureePrestataire,
		models.RoleLocataire, f.locataire.ID, TenantValidationInput{
			Decision:         models.ValidationContest,
			IssueDescription: "La fuite persiste sous l'évier après une nuit",
			IssueSeverity:    models.SeverityMajeure,
		})
	if err != nil {
		t.Fatalf("contestation: %v", err)
	}
	f.mustStatus(models.StatusEnCours)

	// Nouveau cycle : le prestataire peut re-clôturer après correction.
	if _, err := f.engine.SubmitWorkCompletion(f.itv.ID, models.StatusEnCours,
		models.RolePrestataire, f.prestataire.ID, workCompletion()); err != nil {
		t.Fatalf("re-clôture: %v", err)
	}
	f.mustStatus(models.StatusClotureePrestataire)
}

func TestSubmitTenantValidation_cibleDeContestationConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContestReturnStatus = models.StatusPlanifiee
	f := newFixture(t, cfg)
	f.advanceToClotureePrestataire()

	_, err := f.engine.SubmitTenantValidation(f.itv.ID, models.StatusClotureePrestataire,
		models.RoleLocataire, f.locataire.ID, TenantValidationInput{
			Decision:         models.ValidationContest,
			IssueDescription: "Le joint posé n'est pas le bon diamètre",
			IssueSeverity:    models.SeverityMineure,
		})
	if err != nil {
		t.Fatalf("contestation: %v", err)
	}
	f.mustStatus(models.StatusPlanifiee)
}

func TestSubmitTenantValidation_locataireHorsTitreRefuse(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToClotureePrestataire()

	_, err := f.engine.SubmitTenantValidation(f.itv.ID, models.StatusClotureePrestataire,
		models.RoleLocataire, f.autreLoc.ID, tenantApproval())
	if !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("erreur = %v, attendu ErrAuthorizationDenied", err)
	}
}

func TestSubmitWorkCompletion_locataireSousRoleEmprunteRefuse(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToPlanifiee()

	// Le rôle annoncé est confronté au rôle stocké du compte.
	_, err := f.engine.SubmitWorkCompletion(f.itv.ID, models.StatusPlanifiee,
		models.RolePrestataire, f.locataire.ID, workCompletion())
	if !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("erreur = %v, attendu ErrAuthorizationDenied", err)
	}
	f.mustStatus(models.StatusPlanifiee)
}

func TestSubmitManagerFinalization_locataireRefuse(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToClotureeLocataire()

	// Sous son propre rôle, la table des transitions le refuse.
	_, err := f.engine.SubmitManagerFinalization(f.itv.ID, models.StatusClotureeLocataire,
		models.RoleLocataire, f.locataire.ID, managerFinalization(210))
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("erreur = %v, attendu InvalidTransitionError", err)
	}

	// Sous un rôle emprunté, le rôle stocké fait foi.
	_, err = f.engine.SubmitManagerFinalization(f.itv.ID, models.StatusClotureeLocataire,
		models.RoleGestionnaire, f.locataire.ID, managerFinalization(210))
	if !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("erreur = %v, attendu ErrAuthorizationDenied", err)
	}
	f.mustStatus(models.StatusClotureeLocataire)
}

func TestSubmitManagerFinalization_nominale(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToClotureeLocataire() // devis accepté à 200

	final, err := f.engine.SubmitManagerFinalization(f.itv.ID, models.StatusClotureeLocataire,
		models.RoleGestionnaire, f.gestionnaire.ID, managerFinalization(210))
	if err != nil {
		t.Fatalf("SubmitManagerFinalization: %v", err)
	}
	f.mustStatus(models.StatusClotureeGestionnaire)

	if math.Abs(final.BudgetVariancePct-5) > 0.01 {
		t.Fatalf("écart = %v%%, attendu 5%%", final.BudgetVariancePct)
	}
	// Défauts d'archivage.
	if final.ArchiveCategory != "plomberie" || final.RetentionYears != 10 || final.AccessLevel != "equipe" {
		t.Fatalf("métadonnées d'archivage: %+v", final)
	}
}

func TestSubmitManagerFinalization_ecartExigeJustification(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToClotureeLocataire() // devis accepté à 200, seuil à 20%

	_, err := f.engine.SubmitManagerFinalization(f.itv.ID, models.StatusClotureeLocataire,
		models.RoleGestionnaire, f.gestionnaire.ID, managerFinalization(260))
	mustField(t, asValidation(t, err), "variance_justification")
	f.mustStatus(models.StatusClotureeLocataire)

	in := managerFinalization(260)
	in.VarianceJustification = "Remplacement imprévu de la bonde, accepté par téléphone"
	final, err := f.engine.SubmitManagerFinalization(f.itv.ID, models.StatusClotureeLocataire,
		models.RoleGestionnaire, f.gestionnaire.ID, in)
	if err != nil {
		t.Fatalf("finalisation justifiée: %v", err)
	}
	if math.Abs(final.BudgetVariancePct-30) > 0.01 {
		t.Fatalf("écart = %v%%, attendu 30%%", final.BudgetVariancePct)
	}
	f.mustStatus(models.StatusClotureeGestionnaire)
}

func TestSubmitManagerFinalization_checklistsExigees(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToClotureeLocataire()

	in := managerFinalization(210)
	in.Documentation = nil

	_, err := f.engine.SubmitManagerFinalization(f.itv.ID, models.StatusClotureeLocataire,
		models.RoleGestionnaire, f.gestionnaire.ID, in)
	v := asValidation(t, err)
	mustField(t, v, "documentation.photos_archivees")
	mustField(t, v, "documentation.factures_recues")
	mustField(t, v, "documentation.garanties_enregistrees")
}

func TestCloture_statutFinalEstAbsorbant(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.advanceToClotureeLocataire()
	if _, err := f.engine.SubmitManagerFinalization(f.itv.ID, models.StatusClotureeLocataire,
		models.RoleGestionnaire, f.gestionnaire.ID, managerFinalization(200)); err != nil {
		t.Fatalf("finalisation: %v", err)
	}

	_, err := f.engine.ApplyTransition(f.itv.ID, models.StatusClotureeGestionnaire, ActionCancel,
		models.RoleGestionnaire, f.gestionnaire.ID, TransitionPayload{})
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("erreur = %v, attendu InvalidTransitionError", err)
	}
}
