package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aumugisha-umu/seido-sub000/models"
)

var (
	// ErrNotFound : l'intervention ou la sous-entité visée n'existe pas.
	ErrNotFound = errors.New("ressource introuvable")

	// ErrStaleState : le statut attendu ne correspond plus à l'état stocké,
	// une autre mutation est passée entre-temps. Le client doit recharger.
	ErrStaleState = errors.New("état périmé, intervention modifiée entre-temps")

	// ErrAuthorizationDenied : l'acteur n'a pas la relation requise avec
	// l'intervention (locataire en titre, prestataire sollicité, etc.).
	ErrAuthorizationDenied = errors.New("accès refusé pour cet acteur")
)

// InvalidTransitionError : le triplet (statut, action, rôle) n'existe pas dans
// la table canonique.
type InvalidTransitionError struct {
	Status models.InterventionStatus
	Action ActionKey
	Role   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition invalide: action %q interdite au rôle %q depuis le statut %q",
		e.Action, e.Role, e.Status)
}

// ValidationError porte le détail champ par champ pour que l'appelant puisse
// re-solliciter précisément les champs manquants.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation échouée: " + strings.Join(parts, "; ")
}

// OrNil renvoie nil si aucun champ n'est en erreur, sinon l'erreur elle-même.
// Permet d'accumuler puis de trancher en une fois (rejet en bloc, pas partiel).
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
