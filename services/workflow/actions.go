package workflow

import (
	"github.com/aumugisha-umu/seido-sub000/models"
)

// Variantes prestataire du dépôt de devis (opérations sur sous-entité, hors
// table de transition).
const (
	ActionEditQuote   ActionKey = "modifier_devis"
	ActionCancelQuote ActionKey = "annuler_devis"
	ActionViewQuote   ActionKey = "voir_devis"
)

// Action est une affordance présentable telle quelle par l'UI, et re-vérifiée
// à l'identique au point de mutation.
type Action struct {
	Key                 ActionKey `json:"key"`
	Label               string    `json:"label"`
	RequiresComment     bool      `json:"requires_comment"`
	ConfirmationMessage string    `json:"confirmation_message,omitempty"`
	DisabledReason      string    `json:"disabled_reason,omitempty"`
	Badge               string    `json:"badge,omitempty"`
}

// ActorContext décrit la relation de l'acteur avec l'intervention. Chargé par
// le moteur, passé tel quel : EvaluateActions reste pure et déterministe.
type ActorContext struct {
	UserID           uint
	IsTenantOfRecord bool
	IsTeamManager    bool // gestionnaire de l'équipe propriétaire de l'intervention
	IsSolicited      bool
	OwnQuote         *models.Quote
	PendingQuotes    int // devis en attente d'examen par le gestionnaire
}

var actionLabels = map[ActionKey]string{
	ActionApprove:       "Approuver la demande",
	ActionReject:        "Rejeter la demande",
	ActionRequestQuotes: "Demander des devis",
	ActionSubmitQuote:   "Soumettre un devis",
	ActionEditQuote:     "Modifier mon devis",
	ActionCancelQuote:   "Annuler mon devis",
	ActionViewQuote:     "Voir mon devis",
	ActionReviewQuote:   "Examiner les devis",
	ActionProposeSlots:  "Proposer des créneaux",
	ActionRespondSlot:   "Répondre aux créneaux",
	ActionConfirmSlot:   "Confirmer un créneau",
	ActionStartWork:     "Démarrer les travaux",
	ActionCompleteWork:  "Terminer les travaux",
	ActionValidateWork:  "Valider les travaux",
	ActionContestWork:   "Contester les travaux",
	ActionFinalize:      "Finaliser l'intervention",
	ActionCancel:        "Annuler l'intervention",
}

// Ordre d'affichage stable, indépendant de l'itération de map.
var actionOrder = []ActionKey{
	ActionApprove, ActionReject,
	ActionRequestQuotes,
	ActionSubmitQuote, ActionEditQuote, ActionCancelQuote, ActionViewQuote,
	ActionReviewQuote,
	ActionProposeSlots, ActionRespondSlot, ActionConfirmSlot,
	ActionStartWork, ActionCompleteWork,
	ActionValidateWork, ActionContestWork,
	ActionFinalize,
	ActionCancel,
}

var commentRequired = map[ActionKey]bool{
	ActionReject:       true,
	ActionReviewQuote:  true,
	ActionValidateWork: true,
	ActionContestWork:  true,
	ActionFinalize:     true,
}

// EvaluateActions dérive l'ensemble exact des actions permises pour le triplet
// (statut, rôle, relation). Fonction pure : appelée par la couche de
// présentation ET ré-appelée par le moteur avant mutation, pour qu'une omission
// côté client ne puisse jamais contourner le serveur.
func (m *StateMachine) EvaluateActions(itv models.Intervention, role string, actor ActorContext) []Action {
	rules := m.rulesFor(itv.Status)
	out := []Action{}

	for _, key := range actionOrder {
		rule, ok := rules[tableKey(key)]
		if !ok || !roleAllowed(rule, role) {
			continue
		}
		if skipForRelationship(key, role, actor) {
			continue
		}
		for _, a := range expandAction(key, role, itv, actor) {
			out = append(out, a)
		}
	}
	return out
}

// tableKey ramène les variantes de devis sur l'entrée canonique de la table.
func tableKey(key ActionKey) ActionKey {
	switch key {
	case ActionEditQuote, ActionCancelQuote, ActionViewQuote:
		return ActionSubmitQuote
	}
	return key
}

// skipForRelationship écarte les actions réservées au locataire en titre et
// celles d'un gestionnaire d'une autre équipe. Un défaut de relation est une
// omission pure (pas un disabledReason) : c'est une question d'intégrité, pas
// d'affordance.
func skipForRelationship(key ActionKey, role string, actor ActorContext) bool {
	switch role {
	case models.RoleLocataire:
		switch key {
		case ActionConfirmSlot, ActionValidateWork, ActionContestWork, ActionRespondSlot:
			return !actor.IsTenantOfRecord
		}
	case models.RoleGestionnaire:
		return !actor.IsTeamManager
	}
	return false
}

// expandAction décline une entrée de table en affordances concrètes :
// variantes de devis côté prestataire, raisons de blocage contextuel, badges.
func expandAction(key ActionKey, role string, itv models.Intervention, actor ActorContext) []Action {
	switch key {
	case ActionSubmitQuote:
		return quoteActionsFor(actor)
	case ActionEditQuote, ActionCancelQuote, ActionViewQuote:
		// Déjà couvertes par l'expansion de soumettre_devis.
		return nil
	case ActionReviewQuote:
		a := newAction(key)
		if actor.PendingQuotes == 0 {
			a.DisabledReason = "Tous les devis reçus ont déjà été traités"
		}
		return []Action{a}
	case ActionApprove:
		a := newAction(key)
		if itv.Urgency == models.UrgencyUrgente {
			a.Badge = "urgent"
		}
		return []Action{a}
	case ActionCancel:
		a := newAction(key)
		a.ConfirmationMessage = "L'intervention sera définitivement annulée. Continuer ?"
		return []Action{a}
	case ActionFinalize:
		a := newAction(key)
		a.ConfirmationMessage = "La clôture est définitive : l'intervention sera archivée."
		return []Action{a}
	}
	return []Action{newAction(key)}
}

// quoteActionsFor : un prestataire qui détient déjà un devis voit les variantes
// éditer/annuler/voir selon le statut de SON devis, jamais "soumettre" en
// double. Sans sollicitation, l'action reste listée mais désactivée.
func quoteActionsFor(actor ActorContext) []Action {
	if q := actor.OwnQuote; q != nil && q.IsActive() {
		switch q.Status {
		case models.QuoteAccepted:
			return []Action{newAction(ActionViewQuote)}
		default: // pending, sent
			return []Action{newAction(ActionEditQuote), newAction(ActionCancelQuote)}
		}
	}
	a := newAction(ActionSubmitQuote)
	if !actor.IsSolicited {
		a.DisabledReason = "Aucune sollicitation de devis en cours pour ce prestataire"
	}
	return []Action{a}
}

func newAction(key ActionKey) Action {
	return Action{
		Key:             key,
		Label:           actionLabels[key],
		RequiresComment: commentRequired[key],
	}
}
