package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/subscription-service/internal/auth"
	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/integration/stripe"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

// AuthService сервис регистрации и аутентификации пользователей
type AuthService struct {
	userRepo     repository.UserRepository
	stripeClient stripe.Client
	jwtManager   *auth.JWTManager
	metrics      metrics.BillingMetrics
	log          *logger.Logger
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(
	userRepo repository.UserRepository,
	stripeClient stripe.Client,
	jwtManager *auth.JWTManager,
	billingMetrics metrics.BillingMetrics,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		stripeClient: stripeClient,
		jwtManager:   jwtManager,
		metrics:      billingMetrics,
		log:          log,
	}
}

// Register регистрирует нового пользователя и выдает токен.
// Stripe customer создается сразу, чтобы последующие платежные операции
// не зависели от доступности Stripe в момент первого платежа.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResponse, error) {
	// Проверяем, что email свободен
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		s.log.Warnw("Registration attempt with already registered email", "email", req.Email)
		return domain.AuthResponse{}, domain.ErrEmailAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.log.Errorw("Failed to check email uniqueness", "email", req.Email, "error", err)
		return domain.AuthResponse{}, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Errorw("Failed to hash password", "error", err)
		return domain.AuthResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		Email:              req.Email,
		PasswordHash:       string(hash),
		SubscriptionStatus: domain.UserSubscriptionInactive,
	}

	user, err = s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.AuthResponse{}, domain.ErrEmailAlreadyRegistered
		}
		s.log.Errorw("Failed to create user", "email", req.Email, "error", err)
		return domain.AuthResponse{}, fmt.Errorf("failed to create user: %w", err)
	}

	// Создаем Stripe customer. При недоступности Stripe регистрацию не откатываем:
	// customer будет создан лениво при первой платежной операции.
	stripeCustomerID, err := s.stripeClient.CreateCustomer(ctx, user.ID.String(), user.Email)
	if err != nil {
		s.log.Warnw("Failed to create Stripe customer during registration, will retry lazily", "userID", user.ID, "error", err)
	} else {
		user.StripeCustomerID = stripeCustomerID
		if err := s.userRepo.Update(ctx, user); err != nil {
			s.log.Errorw("Failed to save Stripe customer ID", "userID", user.ID, "error", err)
			return domain.AuthResponse{}, fmt.Errorf("failed to update user: %w", err)
		}
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.log.Errorw("Failed to generate token", "userID", user.ID, "error", err)
		return domain.AuthResponse{}, fmt.Errorf("failed to generate token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncUserRegistered()
	}

	s.log.Infow("User registered", "userID", user.ID, "email", user.Email)

	return domain.AuthResponse{
		User:  user.Public(),
		Token: token,
	}, nil
}

// Login проверяет учетные данные и выдает токен.
// Для несуществующего email и неверного пароля возвращается одна и та же ошибка,
// чтобы не раскрывать наличие аккаунта.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.AuthResponse{}, domain.ErrInvalidCredentials
		}
		s.log.Errorw("Failed to get user by email", "email", req.Email, "error", err)
		return domain.AuthResponse{}, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.log.Warnw("Login attempt with invalid password", "userID", user.ID)
		return domain.AuthResponse{}, domain.ErrInvalidCredentials
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.log.Errorw("Failed to generate token", "userID", user.ID, "error", err)
		return domain.AuthResponse{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infow("User logged in", "userID", user.ID)

	return domain.AuthResponse{
		User:  user.Public(),
		Token: token,
	}, nil
}
