package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dhoini/subscription-service/internal/auth"
	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

func newAuthService(t *testing.T) (*AuthService, *repository.InMemoryUserRepository, *fakeStripeClient) {
	t.Helper()
	log := logger.New("error")
	userRepo := repository.NewInMemoryUserRepository(log)
	stripeClient := &fakeStripeClient{}
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	svc := NewAuthService(userRepo, stripeClient, jwtManager, nil, log)
	return svc, userRepo, stripeClient
}

func TestAuthService_Register(t *testing.T) {
	svc, userRepo, stripeClient := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, domain.RegisterRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.Token == "" {
		t.Error("Register() returned empty token")
	}
	if resp.User.Email != "user@example.com" {
		t.Errorf("Register() email = %q, want %q", resp.User.Email, "user@example.com")
	}
	if resp.User.SubscriptionStatus != domain.UserSubscriptionInactive {
		t.Errorf("Register() status = %q, want %q", resp.User.SubscriptionStatus, domain.UserSubscriptionInactive)
	}
	if stripeClient.customersCreated != 1 {
		t.Errorf("expected 1 Stripe customer created, got %d", stripeClient.customersCreated)
	}

	user, err := userRepo.GetByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if user.StripeCustomerID == "" {
		t.Error("Stripe customer ID was not saved")
	}
	if user.PasswordHash == "password123" {
		t.Error("password stored in plain text")
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	req := domain.RegisterRequest{Email: "user@example.com", Password: "password123"}

	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(ctx, req)
	if !errors.Is(err, domain.ErrEmailAlreadyRegistered) {
		t.Errorf("second Register() error = %v, want ErrEmailAlreadyRegistered", err)
	}
}

func TestAuthService_RegisterStripeUnavailable(t *testing.T) {
	svc, userRepo, stripeClient := newAuthService(t)
	stripeClient.createCustomerErr = errors.New("stripe is down")
	ctx := context.Background()

	// Недоступность Stripe не должна ломать регистрацию
	resp, err := svc.Register(ctx, domain.RegisterRequest{Email: "user@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.Token == "" {
		t.Error("Register() returned empty token")
	}

	user, err := userRepo.GetByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if user.StripeCustomerID != "" {
		t.Errorf("expected empty Stripe customer ID, got %q", user.StripeCustomerID)
	}
}

func TestAuthService_Login(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, domain.RegisterRequest{Email: "user@example.com", Password: "password123"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resp, err := svc.Login(ctx, domain.LoginRequest{Email: "user@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.Token == "" {
		t.Error("Login() returned empty token")
	}
}

func TestAuthService_LoginInvalidCredentials(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, domain.RegisterRequest{Email: "user@example.com", Password: "password123"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name string
		req  domain.LoginRequest
	}{
		{"wrong password", domain.LoginRequest{Email: "user@example.com", Password: "wrong-password"}},
		{"unknown email", domain.LoginRequest{Email: "nobody@example.com", Password: "password123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.req)
			if !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}
