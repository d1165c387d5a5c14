package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/google/uuid"
)

func newSubscriptionService(t *testing.T) (*SubscriptionService, *repository.InMemoryUserRepository, *repository.InMemorySubscriptionRepository, *fakeStripeClient) {
	t.Helper()
	log := logger.New("error")
	userRepo := repository.NewInMemoryUserRepository(log)
	subscriptionRepo := repository.NewInMemorySubscriptionRepository(log)
	stripeClient := &fakeStripeClient{}
	svc := NewSubscriptionService(subscriptionRepo, userRepo, stripeClient, nil, nil, log)
	return svc, userRepo, subscriptionRepo, stripeClient
}

func createTestUser(t *testing.T, userRepo *repository.InMemoryUserRepository, email string) domain.User {
	t.Helper()
	user, err := userRepo.Create(context.Background(), domain.User{
		Email:              email,
		PasswordHash:       "hash",
		StripeCustomerID:   "cus_" + email,
		SubscriptionStatus: domain.UserSubscriptionInactive,
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func TestSubscriptionService_Create(t *testing.T) {
	svc, userRepo, _, _ := newSubscriptionService(t)
	ctx := context.Background()
	user := createTestUser(t, userRepo, "user@example.com")

	output, err := svc.Create(ctx, user.ID, domain.CreateSubscriptionRequest{
		PriceID:         "price_123",
		PaymentMethodID: "pm_123",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if output.Subscription.StripeSubscriptionID == "" {
		t.Error("Create() returned empty Stripe subscription ID")
	}
	if output.Subscription.Status != domain.SubscriptionStatusIncomplete {
		t.Errorf("Create() status = %q, want %q", output.Subscription.Status, domain.SubscriptionStatusIncomplete)
	}
	if output.ClientSecret == "" {
		t.Error("Create() returned empty client secret")
	}

	// Данные карты сохраняются в профиле пользователя
	updated, err := userRepo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(updated.PaymentMethods) != 1 {
		t.Fatalf("expected 1 saved payment method, got %d", len(updated.PaymentMethods))
	}
	if updated.PaymentMethods[0].Last4 != "4242" {
		t.Errorf("payment method last4 = %q, want %q", updated.PaymentMethods[0].Last4, "4242")
	}
}

func TestSubscriptionService_CreateLazyCustomer(t *testing.T) {
	svc, userRepo, _, stripeClient := newSubscriptionService(t)
	ctx := context.Background()

	// Пользователь без Stripe customer (регистрация при недоступном Stripe)
	user, err := userRepo.Create(ctx, domain.User{
		Email:              "user@example.com",
		PasswordHash:       "hash",
		SubscriptionStatus: domain.UserSubscriptionInactive,
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	if _, err := svc.Create(ctx, user.ID, domain.CreateSubscriptionRequest{PriceID: "price_123", PaymentMethodID: "pm_123"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if stripeClient.customersCreated != 1 {
		t.Errorf("expected lazy customer creation, got %d customers", stripeClient.customersCreated)
	}

	updated, _ := userRepo.GetByID(ctx, user.ID)
	if updated.StripeCustomerID == "" {
		t.Error("lazily created Stripe customer ID was not saved")
	}
}

func TestSubscriptionService_Cancel(t *testing.T) {
	svc, userRepo, _, stripeClient := newSubscriptionService(t)
	ctx := context.Background()
	user := createTestUser(t, userRepo, "user@example.com")

	output, err := svc.Create(ctx, user.ID, domain.CreateSubscriptionRequest{PriceID: "price_123", PaymentMethodID: "pm_123"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	cancelled, err := svc.Cancel(ctx, user.ID, output.Subscription.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if !cancelled.CancelAtPeriodEnd {
		t.Error("Cancel() did not set CancelAtPeriodEnd")
	}
	if len(stripeClient.cancelledIDs) != 1 || stripeClient.cancelledIDs[0] != output.Subscription.StripeSubscriptionID {
		t.Errorf("Stripe cancel was not called for %q", output.Subscription.StripeSubscriptionID)
	}
}

func TestSubscriptionService_CancelForeignSubscription(t *testing.T) {
	svc, userRepo, _, _ := newSubscriptionService(t)
	ctx := context.Background()
	owner := createTestUser(t, userRepo, "owner@example.com")
	intruder := createTestUser(t, userRepo, "intruder@example.com")

	output, err := svc.Create(ctx, owner.ID, domain.CreateSubscriptionRequest{PriceID: "price_123", PaymentMethodID: "pm_123"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = svc.Cancel(ctx, intruder.ID, output.Subscription.ID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Cancel() by non-owner error = %v, want ErrForbidden", err)
	}

	// Подписка владельца не изменилась
	subscriptions, err := svc.List(ctx, owner.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(subscriptions) != 1 || subscriptions[0].CancelAtPeriodEnd {
		t.Error("foreign cancel attempt modified owner subscription")
	}
}

func TestSubscriptionService_CancelNotFound(t *testing.T) {
	svc, userRepo, _, _ := newSubscriptionService(t)
	ctx := context.Background()
	user := createTestUser(t, userRepo, "user@example.com")

	_, err := svc.Cancel(ctx, user.ID, uuid.New())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Cancel() error = %v, want ErrNotFound", err)
	}
}
