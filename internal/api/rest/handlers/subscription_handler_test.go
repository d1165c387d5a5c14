package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

// createSubscription создает подписку через API и возвращает ее ID
func createSubscription(t *testing.T, env *testEnv, token string) string {
	t.Helper()

	w := env.doJSON(t, http.MethodPost, "/api/subscriptions", token, gin.H{
		"price_id":          "price_123",
		"payment_method_id": "pm_123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create subscription returned %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Subscription struct {
			ID string `json:"id"`
		} `json:"subscription"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse subscription response: %v", err)
	}
	if resp.ClientSecret == "" {
		t.Error("create subscription returned empty client secret")
	}
	return resp.Subscription.ID
}

func TestCreateSubscriptionValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "user@example.com", "password123")

	w := env.doJSON(t, http.MethodPost, "/api/subscriptions", token, gin.H{"price_id": "price_123"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("create subscription without payment method returned %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCancelSubscription(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "user@example.com", "password123")
	subscriptionID := createSubscription(t, env, token)

	w := env.doJSON(t, http.MethodPost, "/api/subscriptions/"+subscriptionID+"/cancel", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel returned %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		CancelAtPeriodEnd bool `json:"cancel_at_period_end"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse cancel response: %v", err)
	}
	if !resp.CancelAtPeriodEnd {
		t.Error("cancel response does not have cancel_at_period_end set")
	}
}

func TestCancelForeignSubscriptionForbidden(t *testing.T) {
	env := newTestEnv(t)
	ownerToken := env.register(t, "owner@example.com", "password123")
	intruderToken := env.register(t, "intruder@example.com", "password123")
	subscriptionID := createSubscription(t, env, ownerToken)

	w := env.doJSON(t, http.MethodPost, "/api/subscriptions/"+subscriptionID+"/cancel", intruderToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign cancel returned %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestGetUserPaymentsForbiddenForOtherUser(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "owner@example.com", "password123")
	intruderToken := env.register(t, "intruder@example.com", "password123")

	// ID владельца узнаем из репозитория
	owner, err := env.userRepo.GetByEmail(t.Context(), "owner@example.com")
	if err != nil {
		t.Fatalf("failed to get owner: %v", err)
	}

	w := env.doJSON(t, http.MethodGet, "/api/payments/user/"+owner.ID.String(), intruderToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign payment history returned %d, want %d", w.Code, http.StatusForbidden)
	}
}
