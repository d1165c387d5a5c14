package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/integration/stripe"
	"github.com/Dhoini/subscription-service/internal/kafka"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v78"
)

// Типы ошибок Stripe, различаемые при классификации временных сбоев
const (
	stripeErrorTypeAPIConnection stripego.ErrorType = "api_connection_error"
)

// CreateSubscriptionOutput результат создания подписки
type CreateSubscriptionOutput struct {
	Subscription domain.Subscription `json:"subscription"`
	ClientSecret string              `json:"client_secret"`
}

// SubscriptionService сервис подписок
type SubscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	userRepo         repository.UserRepository
	stripeClient     stripe.Client
	kafkaProducer    kafka.Producer
	metrics          metrics.BillingMetrics
	log              *logger.Logger
}

// NewSubscriptionService создает новый сервис подписок
func NewSubscriptionService(
	subscriptionRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	stripeClient stripe.Client,
	kafkaProducer kafka.Producer,
	billingMetrics metrics.BillingMetrics,
	log *logger.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		stripeClient:     stripeClient,
		kafkaProducer:    kafkaProducer,
		metrics:          billingMetrics,
		log:              log,
	}
}

// Create создает подписку в Stripe и локальную запись.
// Временные ошибки Stripe (rate limit, 5xx, проблемы соединения) ретраятся
// с экспоненциальной задержкой.
func (s *SubscriptionService) Create(ctx context.Context, userID uuid.UUID, req domain.CreateSubscriptionRequest) (CreateSubscriptionOutput, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.log.Errorw("Failed to get user for subscription", "userID", userID, "error", err)
		return CreateSubscriptionOutput{}, fmt.Errorf("failed to get user: %w", err)
	}

	user, err = ensureStripeCustomer(ctx, s.userRepo, s.stripeClient, s.log, user)
	if err != nil {
		return CreateSubscriptionOutput{}, err
	}

	var result stripe.SubscriptionResult
	operation := func() error {
		var opErr error
		result, opErr = s.stripeClient.CreateSubscription(ctx, user.StripeCustomerID, req.PriceID, req.PaymentMethodID)
		if opErr != nil {
			if isRetryableStripeError(opErr) {
				s.log.Warnw("Retryable Stripe error during subscription creation, retrying...", "userID", userID, "error", opErr)
				return opErr
			}
			return backoff.Permanent(opErr)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 15 * time.Second
	bo.MaxElapsedTime = 1 * time.Minute

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return CreateSubscriptionOutput{}, domain.NewProviderError("CreateSubscription", err)
	}

	subscription := domain.Subscription{
		UserID:               user.ID,
		StripeSubscriptionID: result.ID,
		PlanID:               req.PriceID,
		Status:               domain.SubscriptionStatus(result.Status),
		CurrentPeriodStart:   time.Unix(result.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:     time.Unix(result.CurrentPeriodEnd, 0).UTC(),
	}

	subscription, err = s.subscriptionRepo.Create(ctx, subscription)
	if err != nil {
		s.log.Errorw("Failed to save subscription", "userID", userID, "stripeSubscriptionID", result.ID, "error", err)
		return CreateSubscriptionOutput{}, fmt.Errorf("failed to save subscription: %w", err)
	}

	// Сохраняем данные привязанной карты в профиле пользователя
	s.savePaymentMethod(ctx, user, req.PaymentMethodID)

	if s.metrics != nil {
		s.metrics.IncSubscriptionCreated(subscription.PlanID)
	}

	if s.kafkaProducer != nil {
		// Не блокируем ответ клиенту публикацией события
		go s.publishEvent(context.WithoutCancel(ctx), kafka.TopicSubscriptionCreated, subscription)
	}

	s.log.Infow("Subscription created", "userID", userID, "subscriptionID", subscription.ID, "status", subscription.Status)

	return CreateSubscriptionOutput{
		Subscription: subscription,
		ClientSecret: result.ClientSecret,
	}, nil
}

// Cancel помечает подписку пользователя к отмене в конце оплаченного периода.
// Подписку может отменить только ее владелец.
func (s *SubscriptionService) Cancel(ctx context.Context, userID, subscriptionID uuid.UUID) (domain.Subscription, error) {
	subscription, err := s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Subscription{}, repository.ErrNotFound
		}
		s.log.Errorw("Failed to get subscription", "subscriptionID", subscriptionID, "error", err)
		return domain.Subscription{}, fmt.Errorf("failed to get subscription: %w", err)
	}

	if subscription.UserID != userID {
		s.log.Warnw("User attempted to cancel subscription belonging to another user",
			"requesterID", userID, "ownerID", subscription.UserID, "subscriptionID", subscriptionID)
		return domain.Subscription{}, domain.ErrForbidden
	}

	if err := s.stripeClient.CancelSubscription(ctx, subscription.StripeSubscriptionID); err != nil {
		return domain.Subscription{}, domain.NewProviderError("CancelSubscription", err)
	}

	subscription.CancelAtPeriodEnd = true
	if err := s.subscriptionRepo.Update(ctx, subscription); err != nil {
		s.log.Errorw("Failed to update subscription after cancel", "subscriptionID", subscriptionID, "error", err)
		return domain.Subscription{}, fmt.Errorf("failed to update subscription: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncSubscriptionCancelled(subscription.PlanID)
	}

	if s.kafkaProducer != nil {
		go s.publishEvent(context.WithoutCancel(ctx), kafka.TopicSubscriptionCancelled, subscription)
	}

	s.log.Infow("Subscription set to cancel at period end", "userID", userID, "subscriptionID", subscriptionID)

	return subscription, nil
}

// List возвращает подписки пользователя
func (s *SubscriptionService) List(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	subscriptions, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.log.Errorw("Failed to get user subscriptions", "userID", userID, "error", err)
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}

	return subscriptions, nil
}

// savePaymentMethod сохраняет данные карты в профиле пользователя.
// Ошибка не прерывает создание подписки: данные карты вторичны.
func (s *SubscriptionService) savePaymentMethod(ctx context.Context, user domain.User, paymentMethodID string) {
	for _, pm := range user.PaymentMethods {
		if pm.StripePaymentMethodID == paymentMethodID {
			return
		}
	}

	details, err := s.stripeClient.GetPaymentMethod(ctx, paymentMethodID)
	if err != nil {
		s.log.Warnw("Failed to fetch payment method details", "userID", user.ID, "paymentMethodID", paymentMethodID, "error", err)
		return
	}

	user.PaymentMethods = append(user.PaymentMethods, domain.PaymentMethod{
		StripePaymentMethodID: details.ID,
		Brand:                 details.Brand,
		Last4:                 details.Last4,
		ExpMonth:              details.ExpMonth,
		ExpYear:               details.ExpYear,
	})

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.Warnw("Failed to save payment method to user profile", "userID", user.ID, "error", err)
	}
}

// publishEvent отправляет событие подписки в Kafka
func (s *SubscriptionService) publishEvent(ctx context.Context, topic string, subscription domain.Subscription) {
	kafkaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.kafkaProducer.PublishEvent(kafkaCtx, topic, subscription.StripeSubscriptionID, subscription); err != nil {
		s.log.Errorw("Failed to publish subscription event", "topic", topic, "subscriptionID", subscription.ID, "error", err)
	}
}

// isRetryableStripeError проверяет, является ли ошибка Stripe временной
func isRetryableStripeError(err error) bool {
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusTooManyRequests {
			return true
		}
		if stripeErr.Type == stripeErrorTypeAPIConnection {
			return true
		}
		if stripeErr.HTTPStatusCode >= 500 && stripeErr.HTTPStatusCode != http.StatusNotImplemented {
			return true
		}
	}
	return false
}
