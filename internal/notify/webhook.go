// Package notify emits best-effort sleep state change events to an external
// hub. Failures are never propagated to the caller's API path.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type State string

const (
	StateSleeping State = "sleeping"
	StateAwake    State = "awake"
)

// Notifier delivers a state transition. Implementations must be safe to call
// after the triggering mutation commits; the returned error is for logging only.
type Notifier interface {
	StateChanged(ctx context.Context, state State, at time.Time, sessionID int64) error
}

type stateChangedPayload struct {
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	SessionID int64     `json:"session_id"`
}

type WebhookNotifier struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewWebhookNotifier(baseURL, token string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) StateChanged(ctx context.Context, state State, at time.Time, sessionID int64) error {
	body, err := json.Marshal(stateChangedPayload{
		State:     state,
		Timestamp: at.UTC(),
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := n.baseURL + "/api/events/baby_sleep_state_changed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopNotifier is used when no webhook target is configured.
type NoopNotifier struct{}

func (NoopNotifier) StateChanged(ctx context.Context, state State, at time.Time, sessionID int64) error {
	return nil
}
