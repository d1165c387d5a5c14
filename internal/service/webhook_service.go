package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/kafka"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"

	stripego "github.com/stripe/stripe-go/v78"
)

// WebhookService синхронизирует локальные записи с событиями Stripe.
// Обработка идемпотентна: повторная доставка события приводит к upsert
// с теми же данными.
type WebhookService struct {
	userRepo         repository.UserRepository
	subscriptionRepo repository.SubscriptionRepository
	paymentRepo      repository.PaymentRepository
	kafkaProducer    kafka.Producer
	metrics          metrics.BillingMetrics
	log              *logger.Logger
}

// NewWebhookService создает новый сервис обработки webhook-событий
func NewWebhookService(
	userRepo repository.UserRepository,
	subscriptionRepo repository.SubscriptionRepository,
	paymentRepo repository.PaymentRepository,
	kafkaProducer kafka.Producer,
	billingMetrics metrics.BillingMetrics,
	log *logger.Logger,
) *WebhookService {
	return &WebhookService{
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		kafkaProducer:    kafkaProducer,
		metrics:          billingMetrics,
		log:              log,
	}
}

// HandleEvent обрабатывает проверенное событие Stripe
func (s *WebhookService) HandleEvent(ctx context.Context, event stripego.Event) error {
	eventType := string(event.Type)
	s.log.Infow("Processing Stripe webhook event", "eventID", event.ID, "type", eventType)

	if s.metrics != nil {
		s.metrics.IncWebhookEvent(eventType)
	}

	switch eventType {
	case "customer.subscription.created", "customer.subscription.updated":
		return s.handleSubscriptionUpserted(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "payment_intent.succeeded":
		return s.handlePaymentIntent(ctx, event, domain.PaymentStatusSucceeded, kafka.TopicPaymentSucceeded)
	case "payment_intent.payment_failed":
		return s.handlePaymentIntent(ctx, event, domain.PaymentStatusCanceled, kafka.TopicPaymentFailed)
	default:
		s.log.Debugw("Ignored webhook event type", "type", eventType)
		return nil
	}
}

// handleSubscriptionUpserted синхронизирует подписку и статус пользователя
func (s *WebhookService) handleSubscriptionUpserted(ctx context.Context, event stripego.Event) error {
	var sub stripego.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to parse subscription event: %w", err)
	}

	user, ok, err := s.userByCustomer(ctx, customerID(sub.Customer), event.ID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	subscription := domain.Subscription{
		UserID:               user.ID,
		StripeSubscriptionID: sub.ID,
		PlanID:               subscriptionPlanID(&sub),
		Status:               domain.SubscriptionStatus(sub.Status),
		CurrentPeriodStart:   time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:     time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}

	if _, err := s.subscriptionRepo.UpsertByStripeID(ctx, subscription); err != nil {
		s.log.Errorw("Failed to upsert subscription from webhook", "stripeSubscriptionID", sub.ID, "error", err)
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	// Статус пользователя производен от статуса подписки в Stripe
	status := domain.UserSubscriptionInactive
	if sub.Status == stripego.SubscriptionStatusActive {
		status = domain.UserSubscriptionActive
	}
	if err := s.updateUserStatus(ctx, user, status); err != nil {
		return err
	}

	s.log.Infow("Subscription synchronized from webhook",
		"stripeSubscriptionID", sub.ID, "status", string(sub.Status), "userID", user.ID)
	return nil
}

// handleSubscriptionDeleted помечает подписку отмененной и деактивирует пользователя
func (s *WebhookService) handleSubscriptionDeleted(ctx context.Context, event stripego.Event) error {
	var sub stripego.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to parse subscription event: %w", err)
	}

	user, ok, err := s.userByCustomer(ctx, customerID(sub.Customer), event.ID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	subscription, err := s.subscriptionRepo.GetByStripeID(ctx, sub.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warnw("Subscription deletion event for unknown subscription", "stripeSubscriptionID", sub.ID, "eventID", event.ID)
		} else {
			s.log.Errorw("Failed to get subscription for deletion event", "stripeSubscriptionID", sub.ID, "error", err)
			return fmt.Errorf("failed to get subscription: %w", err)
		}
	} else {
		subscription.Status = domain.SubscriptionStatusCanceled
		if err := s.subscriptionRepo.Update(ctx, subscription); err != nil {
			s.log.Errorw("Failed to mark subscription canceled", "stripeSubscriptionID", sub.ID, "error", err)
			return fmt.Errorf("failed to update subscription: %w", err)
		}
	}

	if err := s.updateUserStatus(ctx, user, domain.UserSubscriptionInactive); err != nil {
		return err
	}

	s.log.Infow("Subscription deletion synchronized from webhook", "stripeSubscriptionID", sub.ID, "userID", user.ID)
	return nil
}

// handlePaymentIntent синхронизирует запись платежа по событию платежного намерения
func (s *WebhookService) handlePaymentIntent(ctx context.Context, event stripego.Event, status domain.PaymentStatus, topic string) error {
	var intent stripego.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to parse payment intent event: %w", err)
	}

	user, ok, err := s.userByCustomer(ctx, customerID(intent.Customer), event.ID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	payment := domain.Payment{
		UserID:                user.ID,
		StripePaymentIntentID: intent.ID,
		Amount:                intent.Amount,
		Currency:              string(intent.Currency),
		Status:                status,
	}

	payment, err = s.paymentRepo.UpsertByStripeID(ctx, payment)
	if err != nil {
		s.log.Errorw("Failed to upsert payment from webhook", "paymentIntentID", intent.ID, "error", err)
		return fmt.Errorf("failed to upsert payment: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ObservePaymentAmount(float64(payment.Amount), payment.Currency, string(payment.Status))
	}

	if s.kafkaProducer != nil {
		go s.publishPaymentEvent(context.WithoutCancel(ctx), topic, payment)
	}

	s.log.Infow("Payment synchronized from webhook", "paymentIntentID", intent.ID, "status", string(status), "userID", user.ID)
	return nil
}

// userByCustomer ищет пользователя по Stripe Customer ID.
// События для неизвестного клиента игнорируются: они могут относиться
// к объектам, созданным вне этого сервиса.
func (s *WebhookService) userByCustomer(ctx context.Context, stripeCustomerID, eventID string) (domain.User, bool, error) {
	if stripeCustomerID == "" {
		s.log.Warnw("Webhook event without customer, skipping", "eventID", eventID)
		return domain.User{}, false, nil
	}

	user, err := s.userRepo.GetByStripeCustomerID(ctx, stripeCustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warnw("Webhook event for unknown customer, skipping", "stripeCustomerID", stripeCustomerID, "eventID", eventID)
			return domain.User{}, false, nil
		}
		s.log.Errorw("Failed to get user by Stripe customer ID", "stripeCustomerID", stripeCustomerID, "error", err)
		return domain.User{}, false, fmt.Errorf("failed to get user: %w", err)
	}

	return user, true, nil
}

// updateUserStatus обновляет производный статус подписки пользователя
func (s *WebhookService) updateUserStatus(ctx context.Context, user domain.User, status domain.UserSubscriptionStatus) error {
	if user.SubscriptionStatus == status {
		return nil
	}

	user.SubscriptionStatus = status
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.Errorw("Failed to update user subscription status", "userID", user.ID, "status", string(status), "error", err)
		return fmt.Errorf("failed to update user status: %w", err)
	}

	s.log.Infow("User subscription status updated", "userID", user.ID, "status", string(status))
	return nil
}

// publishPaymentEvent отправляет событие платежа в Kafka
func (s *WebhookService) publishPaymentEvent(ctx context.Context, topic string, payment domain.Payment) {
	kafkaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.kafkaProducer.PublishEvent(kafkaCtx, topic, payment.StripePaymentIntentID, payment); err != nil {
		s.log.Errorw("Failed to publish payment event", "topic", topic, "paymentID", payment.ID, "error", err)
	}
}

func customerID(customer *stripego.Customer) string {
	if customer == nil {
		return ""
	}
	return customer.ID
}

func subscriptionPlanID(sub *stripego.Subscription) string {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	item := sub.Items.Data[0]
	if item.Price == nil {
		return ""
	}
	return item.Price.ID
}
