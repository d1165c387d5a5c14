package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserSubscriptionStatus производный статус подписки пользователя
type UserSubscriptionStatus string

const (
	UserSubscriptionActive   UserSubscriptionStatus = "active"
	UserSubscriptionInactive UserSubscriptionStatus = "inactive"
)

// User представляет собой модель пользователя
type User struct {
	ID                 uuid.UUID              `json:"id"`
	Email              string                 `json:"email"`
	PasswordHash       string                 `json:"-"`
	StripeCustomerID   string                 `json:"stripe_customer_id,omitempty"`
	SubscriptionStatus UserSubscriptionStatus `json:"subscription_status"`
	PaymentMethods     []PaymentMethod        `json:"payment_methods,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// PaymentMethod сохраненный метод оплаты пользователя
type PaymentMethod struct {
	StripePaymentMethodID string `json:"stripe_payment_method_id"`
	Brand                 string `json:"brand"`
	Last4                 string `json:"last4"`
	ExpMonth              int64  `json:"exp_month"`
	ExpYear               int64  `json:"exp_year"`
}

// RegisterRequest представляет запрос на регистрацию
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// PublicUser публичные поля пользователя для ответов API
type PublicUser struct {
	ID                 uuid.UUID              `json:"id"`
	Email              string                 `json:"email"`
	SubscriptionStatus UserSubscriptionStatus `json:"subscription_status"`
}

// Public возвращает публичное представление пользователя
func (u User) Public() PublicUser {
	return PublicUser{
		ID:                 u.ID,
		Email:              u.Email,
		SubscriptionStatus: u.SubscriptionStatus,
	}
}

// AuthResponse ответ на регистрацию и вход
type AuthResponse struct {
	User  PublicUser `json:"user"`
	Token string     `json:"token"`
}
