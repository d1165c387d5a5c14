package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

// Полный сценарий: регистрация, вход, оформление подписки, событие
// от Stripe об активации, проверка статусов.
func TestSubscriptionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// Регистрация и вход
	env.register(t, "user@example.com", "password123")

	w := env.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "user@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", w.Code, w.Body.String())
	}

	var loginResp struct {
		Token string `json:"token"`
		User  struct {
			SubscriptionStatus string `json:"subscription_status"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("failed to parse login response: %v", err)
	}
	if loginResp.User.SubscriptionStatus != "inactive" {
		t.Errorf("new user status = %q, want %q", loginResp.User.SubscriptionStatus, "inactive")
	}

	// Оформление подписки
	createSubscription(t, env, loginResp.Token)

	// Stripe сообщает об активации подписки
	payload := subscriptionEventPayload("sub_test_1", env.stripeClient.lastCustomer, "active")
	webhookResp := env.sendWebhook(t, payload)
	if webhookResp.Code != http.StatusOK {
		t.Fatalf("webhook returned %d: %s", webhookResp.Code, webhookResp.Body.String())
	}

	// Подписка стала активной
	w = env.doJSON(t, http.MethodGet, "/api/subscriptions", loginResp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list subscriptions returned %d: %s", w.Code, w.Body.String())
	}

	var listResp struct {
		Subscriptions []struct {
			Status string `json:"status"`
		} `json:"subscriptions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to parse subscriptions response: %v", err)
	}
	if len(listResp.Subscriptions) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(listResp.Subscriptions))
	}
	if listResp.Subscriptions[0].Status != "active" {
		t.Errorf("subscription status = %q, want %q", listResp.Subscriptions[0].Status, "active")
	}

	// Статус пользователя пересчитан: повторный вход возвращает active
	w = env.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "user@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("second login returned %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("failed to parse login response: %v", err)
	}
	if loginResp.User.SubscriptionStatus != "active" {
		t.Errorf("user status after activation = %q, want %q", loginResp.User.SubscriptionStatus, "active")
	}
}
