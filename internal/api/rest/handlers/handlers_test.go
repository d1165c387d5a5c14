package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dhoini/subscription-service/internal/api/rest"
	"github.com/Dhoini/subscription-service/internal/api/rest/handlers"
	"github.com/Dhoini/subscription-service/internal/auth"
	"github.com/Dhoini/subscription-service/internal/config"
	"github.com/Dhoini/subscription-service/internal/integration/stripe"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const testWebhookSecret = "whsec_test_secret"

// fakeStripeClient реализация stripe.Client для тестов обработчиков
type fakeStripeClient struct {
	customers     int
	subscriptions int
	intents       int
	lastCustomer  string
}

func (f *fakeStripeClient) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	f.customers++
	f.lastCustomer = fmt.Sprintf("cus_test_%d", f.customers)
	return f.lastCustomer, nil
}

func (f *fakeStripeClient) CreatePaymentIntent(ctx context.Context, stripeCustomerID string, amount int64, currency string) (stripe.PaymentIntentResult, error) {
	f.intents++
	id := fmt.Sprintf("pi_test_%d", f.intents)
	return stripe.PaymentIntentResult{
		ID:           id,
		Amount:       amount,
		Currency:     currency,
		Status:       "requires_payment_method",
		ClientSecret: id + "_secret",
	}, nil
}

func (f *fakeStripeClient) CreateSubscription(ctx context.Context, stripeCustomerID, priceID, paymentMethodID string) (stripe.SubscriptionResult, error) {
	f.subscriptions++
	id := fmt.Sprintf("sub_test_%d", f.subscriptions)
	now := time.Now()
	return stripe.SubscriptionResult{
		ID:                 id,
		Status:             "incomplete",
		CurrentPeriodStart: now.Unix(),
		CurrentPeriodEnd:   now.AddDate(0, 1, 0).Unix(),
		ClientSecret:       id + "_secret",
	}, nil
}

func (f *fakeStripeClient) CancelSubscription(ctx context.Context, stripeSubscriptionID string) error {
	return nil
}

func (f *fakeStripeClient) GetPaymentMethod(ctx context.Context, paymentMethodID string) (stripe.PaymentMethodDetails, error) {
	return stripe.PaymentMethodDetails{ID: paymentMethodID, Brand: "visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030}, nil
}

// testEnv собранное приложение поверх in-memory репозиториев
type testEnv struct {
	router       *gin.Engine
	userRepo     *repository.InMemoryUserRepository
	stripeClient *fakeStripeClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("error")
	userRepo := repository.NewInMemoryUserRepository(log)
	paymentRepo := repository.NewInMemoryPaymentRepository(log)
	subscriptionRepo := repository.NewInMemorySubscriptionRepository(log)

	stripeClient := &fakeStripeClient{}
	webhookVerifier := stripe.NewWebhookVerifier(testWebhookSecret, log)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	authSvc := service.NewAuthService(userRepo, stripeClient, jwtManager, nil, log)
	paymentSvc := service.NewPaymentService(paymentRepo, userRepo, stripeClient, nil, nil, log)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, userRepo, stripeClient, nil, nil, log)
	webhookSvc := service.NewWebhookService(userRepo, subscriptionRepo, paymentRepo, nil, nil, log)

	cfg := &config.Config{}
	cfg.CORS.Origin = "http://localhost:3000"

	router := rest.SetupRouter(rest.RouterDeps{
		AuthHandler:         handlers.NewAuthHandler(authSvc, log),
		PaymentHandler:      handlers.NewPaymentHandler(paymentSvc, log),
		SubscriptionHandler: handlers.NewSubscriptionHandler(subscriptionSvc, log),
		WebhookHandler:      handlers.NewWebhookHandler(webhookVerifier, webhookSvc, log),
		JWTManager:          jwtManager,
		Registry:            prometheus.NewRegistry(),
		Config:              cfg,
		Log:                 log,
	})

	return &testEnv{
		router:       router,
		userRepo:     userRepo,
		stripeClient: stripeClient,
	}
}

// doJSON выполняет JSON запрос к тестовому роутеру
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// register регистрирует пользователя и возвращает токен
func (e *testEnv) register(t *testing.T, email, password string) string {
	t.Helper()

	w := e.doJSON(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": password})
	if w.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse register response: %v", err)
	}
	return resp.Token
}

// signWebhookPayload считает заголовок Stripe-Signature для тела вебхука
func signWebhookPayload(payload []byte, secret string) string {
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

// sendWebhook отправляет подписанное событие Stripe в тестовый роутер
func (e *testEnv) sendWebhook(t *testing.T, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signWebhookPayload(payload, testWebhookSecret))

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
