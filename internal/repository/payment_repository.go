package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/google/uuid"
)

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	// Create создает новый платеж
	Create(ctx context.Context, payment domain.Payment) (domain.Payment, error)

	// GetByID возвращает платеж по ID
	GetByID(ctx context.Context, id uuid.UUID) (domain.Payment, error)

	// GetByUserID возвращает платежи пользователя (новые в начале, не более limit)
	GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Payment, error)

	// UpsertByStripeID обновляет платеж по Stripe PaymentIntent ID или создает новый
	UpsertByStripeID(ctx context.Context, payment domain.Payment) (domain.Payment, error)
}

// InMemoryPaymentRepository реализация репозитория платежей в памяти
type InMemoryPaymentRepository struct {
	payments map[uuid.UUID]domain.Payment
	mutex    sync.RWMutex
	log      *logger.Logger
}

// NewInMemoryPaymentRepository создает новый репозиторий платежей в памяти
func NewInMemoryPaymentRepository(log *logger.Logger) *InMemoryPaymentRepository {
	return &InMemoryPaymentRepository{
		payments: make(map[uuid.UUID]domain.Payment),
		log:      log,
	}
}

// Create создает новый платеж
func (r *InMemoryPaymentRepository) Create(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.payments {
		if existing.StripePaymentIntentID == payment.StripePaymentIntentID {
			return domain.Payment{}, ErrDuplicate
		}
	}

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()

	r.payments[payment.ID] = payment

	return payment, nil
}

// GetByID возвращает платеж по ID
func (r *InMemoryPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	payment, exists := r.payments[id]
	if !exists {
		return domain.Payment{}, ErrNotFound
	}

	return payment, nil
}

// GetByUserID возвращает платежи пользователя
func (r *InMemoryPaymentRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Payment, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	payments := make([]domain.Payment, 0)
	for _, payment := range r.payments {
		if payment.UserID == userID {
			payments = append(payments, payment)
		}
	}

	// Сортируем по времени создания (новые в начале)
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})

	if limit > 0 && len(payments) > limit {
		payments = payments[:limit]
	}

	return payments, nil
}

// UpsertByStripeID обновляет платеж по Stripe PaymentIntent ID или создает новый
func (r *InMemoryPaymentRepository) UpsertByStripeID(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, existing := range r.payments {
		if existing.StripePaymentIntentID == payment.StripePaymentIntentID {
			existing.Status = payment.Status
			existing.Amount = payment.Amount
			existing.Currency = payment.Currency
			existing.UpdatedAt = time.Now()
			r.payments[id] = existing
			return existing, nil
		}
	}

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()
	r.payments[payment.ID] = payment

	return payment, nil
}
