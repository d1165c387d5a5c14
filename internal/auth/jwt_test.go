package auth

import (
	"testing"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/google/uuid"
)

func TestJWTManager_GenerateAndVerify(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	user := domain.User{
		ID:    uuid.New(),
		Email: "user@example.com",
	}

	token, err := manager.Generate(user)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}

	userID, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != user.ID {
		t.Errorf("Verify() userID = %v, want %v", userID, user.ID)
	}
}

func TestJWTManager_VerifyWrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	other := NewJWTManager("other-secret", time.Hour)

	token, err := manager.Generate(domain.User{ID: uuid.New(), Email: "user@example.com"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Error("Verify() with wrong secret should fail")
	}
}

func TestJWTManager_VerifyExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.Generate(domain.User{ID: uuid.New(), Email: "user@example.com"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := manager.Verify(token); err == nil {
		t.Error("Verify() with expired token should fail")
	}
}

func TestJWTManager_VerifyGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	if _, err := manager.Verify("not-a-token"); err == nil {
		t.Error("Verify() with malformed token should fail")
	}
}
