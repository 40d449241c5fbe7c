package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aumugisha-umu/seido-sub000/models"
	"github.com/aumugisha-umu/seido-sub000/services/workflow"
)

// Client envoie les événements de transition vers la passerelle de
// notification (email/push). Best-effort : appelé hors transaction, un échec
// est loggé puis oublié.

const defaultHTTPTimeout = 10 * time.Second

type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClientFromEnv lit NOTIFY_WEBHOOK_URL (obligatoire) et NOTIFY_API_KEY.
func NewClientFromEnv() (*Client, error) {
	endpoint := os.Getenv("NOTIFY_WEBHOOK_URL")
	if endpoint == "" {
		return nil, errors.New("NOTIFY_WEBHOOK_URL non configuré")
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   os.Getenv("NOTIFY_API_KEY"),
		http:     &http.Client{Timeout: defaultHTTPTimeout},
	}, nil
}

type transitionEvent struct {
	Event          string `json:"event"`
	InterventionID uint   `json:"intervention_id"`
	Reference      string `json:"reference"`
	Status         string `json:"status"`
	Action         string `json:"action"`
	OccurredAt     string `json:"occurred_at"`
}

// NotifyTransition implémente workflow.Notifier.
func (c *Client) NotifyTransition(interventionID uint, reference string, newStatus models.InterventionStatus, action workflow.ActionKey) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
	defer cancel()

	event := transitionEvent{
		Event:          "intervention.transition",
		InterventionID: interventionID,
		Reference:      reference,
		Status:         string(newStatus),
		Action:         string(action),
		OccurredAt:     time.Now().Format(time.RFC3339),
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("[notify] sérialisation impossible: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		log.Printf("[notify] requête invalide: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[notify] envoi échoué pour %s: %v", reference, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("[notify] passerelle a répondu %d pour %s", resp.StatusCode, reference)
	}
}
