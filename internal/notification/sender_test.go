package notification

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendNotificationPostsJSON(t *testing.T) {
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- string(body)
	}))
	defer srv.Close()

	SendNotification(srv.URL, "fizzbuzz done")

	select {
	case body := <-received:
		assert.Contains(t, body, "fizzbuzz done")
	default:
		t.Fatal("webhook was not called")
	}
}

func TestSendNotificationEmptyWebhookIsNoop(t *testing.T) {
	// Must not panic or block.
	SendNotification("", "message")
}

func TestSendNotificationSwallowsFailure(t *testing.T) {
	// Unreachable endpoint: silent failure is the contract.
	SendNotification("http://127.0.0.1:1/nope", "message")
}
