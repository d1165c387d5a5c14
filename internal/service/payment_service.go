package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/integration/stripe"
	"github.com/Dhoini/subscription-service/internal/kafka"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"

	"github.com/google/uuid"
)

// Количество платежей в истории пользователя по умолчанию
const defaultPaymentHistoryLimit = 10

// DefaultCurrency валюта платежа, если клиент ее не указал
const DefaultCurrency = "usd"

// CreatePaymentIntentOutput результат создания платежного намерения
type CreatePaymentIntentOutput struct {
	Payment      domain.Payment `json:"payment"`
	ClientSecret string         `json:"client_secret"`
}

// PaymentService сервис платежей
type PaymentService struct {
	paymentRepo   repository.PaymentRepository
	userRepo      repository.UserRepository
	stripeClient  stripe.Client
	kafkaProducer kafka.Producer
	metrics       metrics.BillingMetrics
	log           *logger.Logger
}

// NewPaymentService создает новый сервис платежей
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	userRepo repository.UserRepository,
	stripeClient stripe.Client,
	kafkaProducer kafka.Producer,
	billingMetrics metrics.BillingMetrics,
	log *logger.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo:   paymentRepo,
		userRepo:      userRepo,
		stripeClient:  stripeClient,
		kafkaProducer: kafkaProducer,
		metrics:       billingMetrics,
		log:           log,
	}
}

// CreatePaymentIntent создает платежное намерение в Stripe и локальную запись платежа.
// Возвращает client_secret для подтверждения платежа на стороне клиента.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID uuid.UUID, req domain.CreatePaymentIntentRequest) (CreatePaymentIntentOutput, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.log.Errorw("Failed to get user for payment intent", "userID", userID, "error", err)
		return CreatePaymentIntentOutput{}, fmt.Errorf("failed to get user: %w", err)
	}

	user, err = ensureStripeCustomer(ctx, s.userRepo, s.stripeClient, s.log, user)
	if err != nil {
		return CreatePaymentIntentOutput{}, err
	}

	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	intent, err := s.stripeClient.CreatePaymentIntent(ctx, user.StripeCustomerID, req.Amount, currency)
	if err != nil {
		return CreatePaymentIntentOutput{}, domain.NewProviderError("CreatePaymentIntent", err)
	}

	payment := domain.Payment{
		UserID:                user.ID,
		StripePaymentIntentID: intent.ID,
		Amount:                intent.Amount,
		Currency:              intent.Currency,
		Status:                domain.PaymentStatus(intent.Status),
	}

	payment, err = s.paymentRepo.Create(ctx, payment)
	if err != nil {
		s.log.Errorw("Failed to save payment", "userID", userID, "paymentIntentID", intent.ID, "error", err)
		return CreatePaymentIntentOutput{}, fmt.Errorf("failed to save payment: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncPaymentIntentCreated(payment.Currency)
		s.metrics.ObservePaymentAmount(float64(payment.Amount), payment.Currency, string(payment.Status))
	}

	s.log.Infow("Payment intent created", "userID", userID, "paymentID", payment.ID, "amount", payment.Amount, "currency", payment.Currency)

	return CreatePaymentIntentOutput{
		Payment:      payment,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// GetPayment возвращает платеж по ID, проверяя принадлежность пользователю.
// Чужой платеж не раскрывается: возвращается та же ошибка, что и для несуществующего.
func (s *PaymentService) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Payment{}, repository.ErrNotFound
		}
		s.log.Errorw("Failed to get payment", "paymentID", paymentID, "error", err)
		return domain.Payment{}, fmt.Errorf("failed to get payment: %w", err)
	}

	if payment.UserID != userID {
		s.log.Warnw("User attempted to access payment belonging to another user",
			"requesterID", userID, "ownerID", payment.UserID, "paymentID", paymentID)
		return domain.Payment{}, repository.ErrNotFound
	}

	return payment, nil
}

// GetUserPayments возвращает последние платежи пользователя (новые в начале)
func (s *PaymentService) GetUserPayments(ctx context.Context, userID uuid.UUID) ([]domain.Payment, error) {
	payments, err := s.paymentRepo.GetByUserID(ctx, userID, defaultPaymentHistoryLimit)
	if err != nil {
		s.log.Errorw("Failed to get user payments", "userID", userID, "error", err)
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}

	return payments, nil
}
