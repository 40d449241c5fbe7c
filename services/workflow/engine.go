package workflow

import (
	"database/sql"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/aumugisha-umu/seido-sub000/models"
)

// Config porte les politiques configurables du workflow.
type Config struct {
	// Statut vers lequel une contestation du locataire renvoie l'intervention.
	ContestReturnStatus models.InterventionStatus
	// Seuil d'écart budgétaire (%) au-delà duquel une justification est exigée
	// à la finalisation.
	VarianceThresholdPct float64
}

func DefaultConfig() Config {
	return Config{
		ContestReturnStatus:  models.StatusEnCours,
		VarianceThresholdPct: 20,
	}
}

// Notifier est le collaborateur externe de notification. Appelé hors
// transaction, en best-effort : jamais attendu, jamais bloquant.
type Notifier interface {
	NotifyTransition(interventionID uint, reference string, newStatus models.InterventionStatus, action ActionKey)
}

// Engine est le moteur du cycle de vie des interventions. Toutes les mutations
// passent par une transaction sérialisable avec précondition de statut attendu
// (concurrence optimiste) : en cas de course, un seul appelant gagne, les
// autres reçoivent ErrStaleState et doivent recharger.
type Engine struct {
	db       *gorm.DB
	machine  *StateMachine
	notifier Notifier
	cfg      Config
}

func NewEngine(db *gorm.DB, notifier Notifier, cfg Config) (*Engine, error) {
	if cfg.ContestReturnStatus == "" {
		cfg.ContestReturnStatus = models.StatusEnCours
	}
	if cfg.VarianceThresholdPct <= 0 {
		cfg.VarianceThresholdPct = DefaultConfig().VarianceThresholdPct
	}
	machine, err := NewStateMachine(cfg.ContestReturnStatus)
	if err != nil {
		return nil, err
	}
	return &Engine{db: db, machine: machine, notifier: notifier, cfg: cfg}, nil
}

// Machine expose la table canonique (lecture seule).
func (e *Engine) Machine() *StateMachine { return e.machine }

// serialized exécute fn dans une transaction sérialisable.
func (e *Engine) serialized(fn func(tx *gorm.DB) error) error {
	return e.db.Transaction(fn, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func loadIntervention(tx *gorm.DB, id uint) (*models.Intervention, error) {
	var itv models.Intervention
	if err := tx.First(&itv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &itv, nil
}

// actorContext charge la relation de l'acteur avec l'intervention : locataire
// en titre, gestionnaire de l'équipe propriétaire, sollicitation en cours,
// devis détenu, devis restant à examiner. Le rôle annoncé est confronté au
// rôle stocké : un écart est un refus, pas une relation dégradée.
func actorContext(tx *gorm.DB, itv *models.Intervention, role string, userID uint) (ActorContext, error) {
	actor := ActorContext{UserID: userID}

	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return actor, ErrAuthorizationDenied
		}
		return actor, err
	}
	if user.Role != role {
		return actor, ErrAuthorizationDenied
	}

	switch role {
	case models.RoleLocataire:
		actor.IsTenantOfRecord = itv.LocataireID == userID
	case models.RolePrestataire:
		var solicited int64
		if err := tx.Model(&models.QuoteRequest{}).
			Where("intervention_id = ? AND prestataire_id = ?", itv.ID, userID).
			Count(&solicited).Error; err != nil {
			return actor, err
		}
		actor.IsSolicited = solicited > 0

		var quote models.Quote
		err := tx.Where("intervention_id = ? AND prestataire_id = ?", itv.ID, userID).
			Order("id DESC").First(&quote).Error
		if err == nil {
			actor.OwnQuote = &quote
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return actor, err
		}
	case models.RoleGestionnaire:
		actor.IsTeamManager = user.TeamID == itv.TeamID
		var pending int64
		if err := tx.Model(&models.Quote{}).
			Where("intervention_id = ? AND status IN ?", itv.ID,
				[]models.QuoteStatus{models.QuotePending, models.QuoteSent}).
			Count(&pending).Error; err != nil {
			return actor, err
		}
		actor.PendingQuotes = int(pending)
	}
	return actor, nil
}

// EvaluateActions : point d'entrée présentation. Recharge l'intervention et la
// relation de l'acteur, puis délègue à la machine (pure).
func (e *Engine) EvaluateActions(interventionID uint, role string, userID uint) ([]Action, *models.Intervention, error) {
	itv, err := loadIntervention(e.db, interventionID)
	if err != nil {
		return nil, nil, err
	}
	actor, err := actorContext(e.db, itv, role, userID)
	if err != nil {
		return nil, nil, err
	}
	return e.machine.EvaluateActions(*itv, role, actor), itv, nil
}

// authorize re-déroule EvaluateActions au point de mutation : la même table,
// le même code. Une action absente est soit une transition invalide (triplet
// hors table), soit un défaut de relation (AuthorizationDenied), soit un
// blocage contextuel (l'action est listée mais désactivée).
func (e *Engine) authorize(tx *gorm.DB, itv *models.Intervention, role string, userID uint, action ActionKey) error {
	actor, err := actorContext(tx, itv, role, userID)
	if err != nil {
		return err
	}
	for _, a := range e.machine.EvaluateActions(*itv, role, actor) {
		if a.Key == action {
			if a.DisabledReason != "" {
				v := NewValidationError()
				v.Add("action", a.DisabledReason)
				return v
			}
			return nil
		}
	}
	if _, err := e.machine.Transition(itv.Status, tableKey(action), role); err != nil {
		return err
	}
	// Le triplet est dans la table mais l'acteur n'a pas la relation requise.
	log.Printf("[workflow] accès refusé: user=%d role=%s action=%s intervention=%d (relation manquante)",
		userID, role, action, itv.ID)
	return ErrAuthorizationDenied
}

// advanceStatus applique la précondition optimiste : l'UPDATE ne touche la
// ligne que si le statut stocké vaut encore le statut attendu. Zéro ligne
// affectée = un concurrent est passé avant = StaleState.
func advanceStatus(tx *gorm.DB, itv *models.Intervention, expected, next models.InterventionStatus, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": next}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&models.Intervention{}).
		Where("id = ? AND status = ?", itv.ID, expected).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	itv.Status = next
	return nil
}

func (e *Engine) notify(itv *models.Intervention, action ActionKey, status models.InterventionStatus) {
	if e.notifier == nil {
		return
	}
	// Fire-and-forget, hors du chemin transactionnel.
	go e.notifier.NotifyTransition(itv.ID, itv.Reference, status, action)
}

// TransitionPayload accompagne ApplyTransition pour les actions simples.
type TransitionPayload struct {
	Comment string `json:"comment"`
}

// Actions acceptées par le point d'entrée générique ; les autres exigent leur
// opération dédiée (devis, planification, clôture) car elles portent un
// artefact validé.
var genericActions = map[ActionKey]bool{
	ActionApprove:   true,
	ActionReject:    true,
	ActionStartWork: true,
	ActionCancel:    true,
}

// ApplyTransition est le point d'entrée générique : vérifie l'autorisation,
// calcule le nouveau statut via la table, applique la précondition optimiste,
// commit, puis notifie.
func (e *Engine) ApplyTransition(interventionID uint, expected models.InterventionStatus, action ActionKey, role string, userID uint, payload TransitionPayload) (models.InterventionStatus, error) {
	if !genericActions[action] {
		v := NewValidationError()
		v.Add("action", "cette action requiert son opération dédiée")
		return "", v
	}
	if commentRequired[action] && payload.Comment == "" {
		v := NewValidationError()
		v.Add("comment", "commentaire obligatoire pour cette action")
		return "", v
	}

	var (
		next models.InterventionStatus
		itv  *models.Intervention
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
		next, err = e.machine.Transition(expected, action, role)
		if err != nil {
			return err
		}
		var extra map[string]interface{}
		if payload.Comment != "" {
			if itv.Metadata == nil {
				itv.Metadata = map[string]interface{}{}
			}
			itv.Metadata[string(action)+"_commentaire"] = payload.Comment
			extra = map[string]interface{}{"metadata": itv.Metadata}
		}
		return advanceStatus(tx, itv, expected, next, extra)
	})
	if err != nil {
		return "", err
	}
	e.notify(itv, action, next)
	return next, nil
}
