package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus статус подписки (зеркало статусов Stripe Subscription)
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
)

// Subscription представляет собой модель подписки.
// Локальная запись - кеш данных Stripe, источник истины всегда на стороне провайдера.
type Subscription struct {
	ID                   uuid.UUID          `json:"id"`
	UserID               uuid.UUID          `json:"user_id"`
	StripeSubscriptionID string             `json:"stripe_subscription_id"`
	PlanID               string             `json:"plan_id"` // Stripe price ID
	Status               SubscriptionStatus `json:"status"`
	CurrentPeriodStart   time.Time          `json:"current_period_start"`
	CurrentPeriodEnd     time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// CardDetails данные карты для создания метода оплаты
type CardDetails struct {
	Number   string `json:"number" binding:"required"`
	ExpMonth int64  `json:"exp_month" binding:"required"`
	ExpYear  int64  `json:"exp_year" binding:"required"`
	CVC      string `json:"cvc" binding:"required"`
}

// CreateSubscriptionRequest запрос на создание подписки
type CreateSubscriptionRequest struct {
	PriceID         string `json:"price_id" binding:"required"`
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

// SubscriptionResponse представление подписки в ответах API
type SubscriptionResponse struct {
	ID                 uuid.UUID          `json:"id"`
	Status             SubscriptionStatus `json:"status"`
	PlanID             string             `json:"plan_id"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
}

// ToResponse возвращает представление подписки для API
func (s Subscription) ToResponse() SubscriptionResponse {
	return SubscriptionResponse{
		ID:                 s.ID,
		Status:             s.Status,
		PlanID:             s.PlanID,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
	}
}
