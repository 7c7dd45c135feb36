// Package notifier implements spec.md §6's notifier interface: a single
// send_message(str) operation, not core-critical. Two sinks are provided:
// Null (discards everything) and Telegram (HTTP POST to the Bot API).
// Grounded on the teacher's internal/health/checker.go checkHTTP, the only
// place in the teacher that makes an outbound HTTP call against a
// Telegram-adjacent endpoint (there the teacher only probes its own
// inbound signal listener; here the same plain net/http.Client shape is
// reused to actually send a message, since the teacher has no outbound
// Telegram sender of its own).
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Sink is the notifier interface the engine holds. It satisfies
// internal/engine.Notifier structurally.
type Sink interface {
	Notify(ctx context.Context, message string) error
}

// Null discards every message. Used when no notifier is configured.
type Null struct{}

func (Null) Notify(ctx context.Context, message string) error { return nil }

// Ping always reports reachable, since there is nothing behind Null to
// reach.
func (Null) Ping(ctx context.Context) error { return nil }

// Telegram sends messages via the Bot API's sendMessage method.
type Telegram struct {
	botToken   string
	chatID     string
	apiBaseURL string
	client     *http.Client
}

// NewTelegram builds a Telegram sink. apiBaseURL defaults to the public
// Bot API host when empty, so tests can point it at a local server.
func NewTelegram(botToken, chatID, apiBaseURL string) *Telegram {
	if apiBaseURL == "" {
		apiBaseURL = "https://api.telegram.org"
	}
	return &Telegram{
		botToken:   botToken,
		chatID:     chatID,
		apiBaseURL: apiBaseURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *Telegram) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: message})
	if err != nil {
		return fmt.Errorf("notifier: marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBaseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("notifier: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("notifier: telegram send non-200")
		return fmt.Errorf("notifier: telegram responded %d", resp.StatusCode)
	}
	return nil
}

// Ping probes reachability via the Bot API's getMe method, without
// sending a message. Used by internal/health for the notifier liveness
// check, grounded on the teacher's checkHTTP reachability probe.
func (t *Telegram) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/bot%s/getMe", t.apiBaseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("notifier: build ping request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("notifier: ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notifier: ping responded %d", resp.StatusCode)
	}
	return nil
}
