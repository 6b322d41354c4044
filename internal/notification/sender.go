package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// SendNotification posts a message to a webhook URL.
// Fire-and-forget: never blocks the loop for long, silent on failure.
// No-op when webhook is empty.
func SendNotification(webhook, message string) {
	if webhook == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
