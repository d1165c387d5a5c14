package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// subscriptionEventPayload собирает тело события Stripe для подписки
func subscriptionEventPayload(subscriptionID, customerID, status string) []byte {
	now := time.Now()
	return []byte(fmt.Sprintf(`{
		"id": "evt_%s",
		"object": "event",
		"type": "customer.subscription.created",
		"data": {
			"object": {
				"id": %q,
				"object": "subscription",
				"status": %q,
				"customer": {"id": %q, "object": "customer"},
				"current_period_start": %d,
				"current_period_end": %d,
				"cancel_at_period_end": false,
				"items": {"data": [{"price": {"id": "price_123"}}]}
			}
		}
	}`, subscriptionID, subscriptionID, status, customerID, now.Unix(), now.AddDate(0, 1, 0).Unix()))
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	env := newTestEnv(t)
	payload := subscriptionEventPayload("sub_1", "cus_1", "active")

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("webhook without signature returned %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	payload := subscriptionEventPayload("sub_1", "cus_1", "active")

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	// Подпись посчитана с другим секретом
	req.Header.Set("Stripe-Signature", signWebhookPayload(payload, "whsec_wrong_secret"))

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("webhook with invalid signature returned %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestWebhookAcceptsValidSignature(t *testing.T) {
	env := newTestEnv(t)

	// События для неизвестного клиента принимаются и игнорируются
	payload := subscriptionEventPayload("sub_1", "cus_unknown", "active")
	w := env.sendWebhook(t, payload)

	if w.Code != http.StatusOK {
		t.Fatalf("webhook returned %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse webhook response: %v", err)
	}
	if !resp["received"] {
		t.Errorf("webhook response = %s, want received=true", w.Body.String())
	}
}
