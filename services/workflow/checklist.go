package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// Validateur générique des champs requis et des checklists qui verrouillent
// chaque étape de clôture. Une seule mécanique pour tous les formulaires :
// on accumule les champs en défaut, puis OrNil tranche en bloc.

func (e *ValidationError) RequireText(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "champ obligatoire")
	}
}

func (e *ValidationError) RequireMinLen(field, value string, min int) {
	if len(strings.TrimSpace(value)) < min {
		e.Add(field, fmt.Sprintf("minimum %d caractères", min))
	}
}

func (e *ValidationError) RequirePositive(field string, value float64) {
	if value <= 0 {
		e.Add(field, "valeur strictement positive requise")
	}
}

func (e *ValidationError) RequireOneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	e.Add(field, "valeur attendue: "+strings.Join(allowed, ", "))
}

func (e *ValidationError) RequireNonEmptyList(field string, values []string) {
	if len(values) == 0 {
		e.Add(field, "au moins un élément requis")
	}
}

// RequireChecklist exige que chaque clé listée soit présente ET cochée.
// Chaque case manquante sort comme un champ distinct pour que l'appelant
// puisse re-solliciter précisément.
func (e *ValidationError) RequireChecklist(field string, list map[string]bool, required []string) {
	for _, key := range required {
		if !list[key] {
			e.Add(field+"."+key, "case obligatoire non cochée")
		}
	}
}

// checklistMap convertit une checklist de requête vers le stockage JSONMap.
func checklistMap(list map[string]bool) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range list {
		out[k] = v
	}
	return out
}

// refsJSON sérialise une liste de références opaques de documents.
func refsJSON(refs []string) datatypes.JSON {
	if refs == nil {
		refs = []string{}
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}
