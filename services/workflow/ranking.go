package workflow

import (
	"sort"
	"strings"
	"time"

	"github.com/aumugisha-umu/seido-sub000/models"
)

// Score consultatif de pré-tri des devis : percentile de prix, percentile de
// durée, complétude de la proposition, réactivité. Purement indicatif, jamais
// utilisé pour sélectionner un devis à la place du gestionnaire.

const (
	weightPrice        = 0.35
	weightDuration     = 0.25
	weightCompleteness = 0.25
	weightLatency      = 0.15
)

type RankedQuote struct {
	models.Quote
	Score float64 `json:"score"`
}

// RankQuotes calcule le score de chaque devis et renvoie la liste triée par
// score décroissant (à score égal, premier soumis d'abord).
func RankQuotes(quotes []models.Quote, requests []models.QuoteRequest) []RankedQuote {
	requestedAt := map[uint]time.Time{}
	for _, r := range requests {
		requestedAt[r.PrestataireID] = r.CreatedAt
	}

	ranked := make([]RankedQuote, 0, len(quotes))
	for _, q := range quotes {
		score := weightPrice*percentileBelow(quotes, q, byCost) +
			weightDuration*percentileBelow(quotes, q, byDuration) +
			weightCompleteness*completeness(q) +
			weightLatency*latencyScore(q, requestedAt)
		ranked = append(ranked, RankedQuote{Quote: q, Score: round2(score * 100)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

func byCost(q models.Quote) float64     { return q.TotalCost }
func byDuration(q models.Quote) float64 { return q.EstimatedDuration }

// percentileBelow : part des devis concurrents strictement plus chers (ou plus
// longs) que celui-ci. Moins cher / plus court = meilleur score.
func percentileBelow(quotes []models.Quote, q models.Quote, dim func(models.Quote) float64) float64 {
	if len(quotes) <= 1 {
		return 1
	}
	higher := 0
	for _, other := range quotes {
		if other.ID == q.ID {
			continue
		}
		if dim(other) > dim(q) {
			higher++
		}
	}
	return float64(higher) / float64(len(quotes)-1)
}

// completeness note le niveau de détail de la proposition.
func completeness(q models.Quote) float64 {
	score := 0.0
	if strings.TrimSpace(q.Description) != "" {
		score += 0.25
	}
	if len(strings.TrimSpace(q.WorkDetails)) >= 80 {
		score += 0.35
	} else if strings.TrimSpace(q.WorkDetails) != "" {
		score += 0.20
	}
	if q.EstimatedDuration > 0 {
		score += 0.15
	}
	if len(q.Attachments) > 2 { // "[]" = vide
		score += 0.25
	}
	return score
}

// latencyScore : réponse sous 24h = 1.0, puis dégressif jusqu'à 0 à 7 jours.
func latencyScore(q models.Quote, requestedAt map[uint]time.Time) float64 {
	req, ok := requestedAt[q.PrestataireID]
	if !ok || q.SubmittedAt == nil {
		return 0.5
	}
	elapsed := q.SubmittedAt.Sub(req)
	if elapsed <= 24*time.Hour {
		return 1
	}
	if elapsed >= 7*24*time.Hour {
		return 0
	}
	return 1 - float64(elapsed-24*time.Hour)/float64(6*24*time.Hour)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
