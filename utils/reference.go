package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewReference génère une référence humaine courte, ex: INT-3F2A91C4.
func NewReference(prefix string) string {
	p := strings.ToUpper(strings.TrimSpace(prefix))
	if p == "" {
		p = "REF"
	}
	return p + "-" + strings.ToUpper(uuid.NewString()[:8])
}

// GenerateSlug fabrique un identifiant d'équipe lisible et unique.
func GenerateSlug(seed string) string {
	base := strings.ToLower(strings.TrimSpace(seed))
	base = strings.ReplaceAll(base, " ", "-")
	base = strings.ReplaceAll(base, "_", "-")
	if base == "" {
		base = "equipe"
	}
	return base + "-" + uuid.NewString()[:8]
}
