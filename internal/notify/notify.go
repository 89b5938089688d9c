// Package notify sends messages to a chat incoming webhook, with abstraction
// for testing.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Notifier sends a message. Best-effort: no delivery guarantee.
type Notifier interface {
	Send(text string) error
}

// Webhook posts messages to an incoming-webhook URL as {"text": "..."}.
// The URL is resolved per send so settings changes take effect immediately.
type Webhook struct {
	url    func() string
	client *http.Client
}

// NewWebhook creates a webhook notifier. urlFn returns the current webhook
// URL; an empty URL makes Send a logged no-op.
func NewWebhook(urlFn func() string) *Webhook {
	return &Webhook{
		url:    urlFn,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Text string `json:"text"`
}

// Send posts the message. Does not retry; the caller's cooldown logic
// decides when to try again.
func (w *Webhook) Send(text string) error {
	url := w.url()
	if url == "" {
		log.Printf("notify: webhook URL not set; skipping message")
		return nil
	}

	body, err := json.Marshal(webhookPayload{Text: text})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	resp, err := w.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// Fake records sent messages for test assertions.
type Fake struct {
	// Messages contains every sent text in order.
	Messages []string

	// Err, if set, is returned by Send.
	Err error
}

// Send records the message.
func (f *Fake) Send(text string) error {
	if f.Err != nil {
		return f.Err
	}
	f.Messages = append(f.Messages, text)
	return nil
}

// Reset clears recorded messages.
func (f *Fake) Reset() {
	f.Messages = nil
	f.Err = nil
}
