package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookNotifier delivers event envelopes to a set of HTTP endpoints.
// Delivery is fire and forget with a short timeout; the effects stage logs
// failures and moves on.
type WebhookNotifier struct {
	urls   []string
	client *http.Client
}

// newWebhookNotifier creates a notifier for the given URLs. A zero timeout
// falls back to the default.
func newWebhookNotifier(urls []string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookNotifier{
		urls: append([]string(nil), urls...),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Post sends the event envelope to every configured URL. All URLs are
// attempted; the returned error reports the last failure.
func (n *WebhookNotifier) Post(e Event) error {
	payload, err := MarshalEvent(e)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	failed := 0
	for _, url := range n.urls {
		if err := n.post(url, payload); err != nil {
			failed++
			lastErr = fmt.Errorf("post %s: %w", url, err)
		}
	}
	if lastErr != nil {
		return fmt.Errorf("%d of %d webhooks failed: %w", failed, len(n.urls), lastErr)
	}
	return nil
}

// post delivers one payload to one URL.
func (n *WebhookNotifier) post(url string, payload []byte) error {
	req, err := http.NewRequest("POST", url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
