package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus статус платежа (зеркало статусов Stripe PaymentIntent)
type PaymentStatus string

const (
	PaymentStatusSucceeded             PaymentStatus = "succeeded"
	PaymentStatusProcessing            PaymentStatus = "processing"
	PaymentStatusRequiresPaymentMethod PaymentStatus = "requires_payment_method"
	PaymentStatusRequiresConfirmation  PaymentStatus = "requires_confirmation"
	PaymentStatusRequiresAction        PaymentStatus = "requires_action"
	PaymentStatusRequiresCapture       PaymentStatus = "requires_capture"
	PaymentStatusCanceled              PaymentStatus = "canceled"
)

// Payment представляет собой модель платежа
type Payment struct {
	ID                    uuid.UUID     `json:"id"`
	UserID                uuid.UUID     `json:"user_id"`
	SubscriptionID        *uuid.UUID    `json:"subscription_id,omitempty"`
	StripePaymentIntentID string        `json:"stripe_payment_intent_id"`
	Amount                int64         `json:"amount"` // В минимальных единицах валюты (центы)
	Currency              string        `json:"currency"`
	Status                PaymentStatus `json:"status"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// CreatePaymentIntentRequest запрос на создание платежного намерения
type CreatePaymentIntentRequest struct {
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	Currency string `json:"currency" binding:"omitempty,currency_code"`
}

// PaymentResponse представление платежа в ответах API
type PaymentResponse struct {
	ID        uuid.UUID     `json:"id"`
	Amount    int64         `json:"amount"`
	Currency  string        `json:"currency"`
	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// ToResponse возвращает представление платежа для API
func (p Payment) ToResponse() PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}
}
