package workflow

import (
	"fmt"

	"github.com/aumugisha-umu/seido-sub000/models"
)

// ActionKey identifie une action métier déclenchable par un rôle.
type ActionKey string

const (
	ActionApprove       ActionKey = "approuver"
	ActionReject        ActionKey = "rejeter"
	ActionRequestQuotes ActionKey = "demander_devis"
	ActionSubmitQuote   ActionKey = "soumettre_devis"
	ActionReviewQuote   ActionKey = "examiner_devis"
	ActionProposeSlots  ActionKey = "proposer_creneaux"
	ActionRespondSlot   ActionKey = "repondre_creneau"
	ActionConfirmSlot   ActionKey = "confirmer_creneau"
	ActionStartWork     ActionKey = "demarrer_travaux"
	ActionCompleteWork  ActionKey = "terminer_travaux"
	ActionValidateWork  ActionKey = "valider_travaux"
	ActionContestWork   ActionKey = "contester_travaux"
	ActionFinalize      ActionKey = "finaliser"
	ActionCancel        ActionKey = "annuler"
)

// transitionRule : rôles autorisés et statut cible. Target == statut courant
// pour les actions qui ne font pas avancer l'intervention (dépôt de devis,
// réponse à un créneau...).
type transitionRule struct {
	Roles  []string
	Target models.InterventionStatus
}

// AllStatuses liste les statuts dans l'ordre nominal du cycle de vie.
var AllStatuses = []models.InterventionStatus{
	models.StatusDemande,
	models.StatusRejetee,
	models.StatusApprouvee,
	models.StatusDemandeDeDevis,
	models.StatusPlanification,
	models.StatusPlanifiee,
	models.StatusEnCours,
	models.StatusClotureePrestataire,
	models.StatusClotureeLocataire,
	models.StatusClotureeGestionnaire,
	models.StatusAnnulee,
}

// StateMachine porte la table canonique statut × action × rôle.
// C'est la SEULE source de vérité des permissions : la couche de présentation
// et le point de mutation passent par les mêmes entrées.
type StateMachine struct {
	table map[models.InterventionStatus]map[ActionKey]transitionRule
}

// NewStateMachine construit la table. contestTarget est le statut vers lequel
// une contestation du locataire renvoie l'intervention (politique configurable,
// en_cours par défaut côté config).
func NewStateMachine(contestTarget models.InterventionStatus) (*StateMachine, error) {
	if contestTarget.IsTerminal() {
		return nil, fmt.Errorf("statut de contestation invalide: %q est terminal", contestTarget)
	}
	valid := false
	for _, s := range AllStatuses {
		if s == contestTarget {
			valid = true
		}
	}
	if !valid {
		return nil, fmt.Errorf("statut de contestation inconnu: %q", contestTarget)
	}

	g := []string{models.RoleGestionnaire}
	l := []string{models.RoleLocataire}
	p := []string{models.RolePrestataire}
	gl := []string{models.RoleGestionnaire, models.RoleLocataire}
	gp := []string{models.RoleGestionnaire, models.RolePrestataire}
	glp := []string{models.RoleGestionnaire, models.RoleLocataire, models.RolePrestataire}

	table := map[models.InterventionStatus]map[ActionKey]transitionRule{
		models.StatusDemande: {
			ActionApprove: {Roles: g, Target: models.StatusApprouvee},
			ActionReject:  {Roles: g, Target: models.StatusRejetee},
		},
		models.StatusRejetee: {},
		models.StatusApprouvee: {
			ActionRequestQuotes: {Roles: g, Target: models.StatusDemandeDeDevis},
		},
		models.StatusDemandeDeDevis: {
			ActionRequestQuotes: {Roles: g, Target: models.StatusDemandeDeDevis},
			ActionSubmitQuote:   {Roles: p, Target: models.StatusDemandeDeDevis},
			ActionReviewQuote:   {Roles: g, Target: models.StatusPlanification},
		},
		models.StatusPlanification: {
			ActionProposeSlots: {Roles: gp, Target: models.StatusPlanification},
			ActionRespondSlot:  {Roles: glp, Target: models.StatusPlanification},
			ActionConfirmSlot:  {Roles: gl, Target: models.StatusPlanifiee},
		},
		models.StatusPlanifiee: {
			ActionStartWork:    {Roles: p, Target: models.StatusEnCours},
			ActionCompleteWork: {Roles: p, Target: models.StatusClotureePrestataire},
		},
		models.StatusEnCours: {
			ActionCompleteWork: {Roles: p, Target: models.StatusClotureePrestataire},
		},
		models.StatusClotureePrestataire: {
			ActionValidateWork: {Roles: l, Target: models.StatusClotureeLocataire},
			ActionContestWork:  {Roles: l, Target: contestTarget},
		},
		models.StatusClotureeLocataire: {
			ActionFinalize: {Roles: g, Target: models.StatusClotureeGestionnaire},
		},
		models.StatusClotureeGestionnaire: {},
		models.StatusAnnulee:              {},
	}

	// Annulation possible par le gestionnaire depuis tout statut non terminal.
	for status, rules := range table {
		if !status.IsTerminal() {
			rules[ActionCancel] = transitionRule{Roles: g, Target: models.StatusAnnulee}
		}
	}

	return &StateMachine{table: table}, nil
}

// Transition calcule le nouveau statut pour le triplet donné, ou échoue avec
// InvalidTransitionError si le triplet n'est pas dans la table. Le contrôle du
// statut attendu (StaleState) est fait par le moteur au niveau de la mutation,
// pas ici : la machine est pure.
func (m *StateMachine) Transition(current models.InterventionStatus, action ActionKey, role string) (models.InterventionStatus, error) {
	rules, ok := m.table[current]
	if !ok {
		return "", &InvalidTransitionError{Status: current, Action: action, Role: role}
	}
	rule, ok := rules[action]
	if !ok || !roleAllowed(rule, role) {
		return "", &InvalidTransitionError{Status: current, Action: action, Role: role}
	}
	return rule.Target, nil
}

// rulesFor expose les règles d'un statut pour l'évaluation des actions.
func (m *StateMachine) rulesFor(status models.InterventionStatus) map[ActionKey]transitionRule {
	return m.table[status]
}

func roleAllowed(rule transitionRule, role string) bool {
	for _, r := range rule.Roles {
		if r == role {
			return true
		}
	}
	return false
}
