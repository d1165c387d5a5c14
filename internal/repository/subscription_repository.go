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

// SubscriptionRepository интерфейс репозитория подписок
type SubscriptionRepository interface {
	// Create создает новую подписку
	Create(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error)

	// GetByID возвращает подписку по ID
	GetByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error)

	// GetByUserID возвращает подписки пользователя
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error)

	// GetByStripeID возвращает подписку по Stripe Subscription ID
	GetByStripeID(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error)

	// UpsertByStripeID обновляет подписку по Stripe Subscription ID или создает новую
	UpsertByStripeID(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error)

	// Update обновляет существующую подписку
	Update(ctx context.Context, subscription domain.Subscription) error
}

// InMemorySubscriptionRepository реализация репозитория подписок в памяти
type InMemorySubscriptionRepository struct {
	subscriptions map[uuid.UUID]domain.Subscription
	mutex         sync.RWMutex
	log           *logger.Logger
}

// NewInMemorySubscriptionRepository создает новый репозиторий подписок в памяти
func NewInMemorySubscriptionRepository(log *logger.Logger) *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{
		subscriptions: make(map[uuid.UUID]domain.Subscription),
		log:           log,
	}
}

// Create создает новую подписку
func (r *InMemorySubscriptionRepository) Create(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.subscriptions {
		if existing.StripeSubscriptionID == subscription.StripeSubscriptionID {
			return domain.Subscription{}, ErrDuplicate
		}
	}

	if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}
	subscription.CreatedAt = time.Now()
	subscription.UpdatedAt = time.Now()

	r.subscriptions[subscription.ID] = subscription

	return subscription, nil
}

// GetByID возвращает подписку по ID
func (r *InMemorySubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	subscription, exists := r.subscriptions[id]
	if !exists {
		return domain.Subscription{}, ErrNotFound
	}

	return subscription, nil
}

// GetByUserID возвращает подписки пользователя
func (r *InMemorySubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	subscriptions := make([]domain.Subscription, 0)
	for _, subscription := range r.subscriptions {
		if subscription.UserID == userID {
			subscriptions = append(subscriptions, subscription)
		}
	}

	// Сортируем по времени создания (новые в начале)
	sort.Slice(subscriptions, func(i, j int) bool {
		return subscriptions[i].CreatedAt.After(subscriptions[j].CreatedAt)
	})

	return subscriptions, nil
}

// GetByStripeID возвращает подписку по Stripe Subscription ID
func (r *InMemorySubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, subscription := range r.subscriptions {
		if subscription.StripeSubscriptionID == stripeSubscriptionID {
			return subscription, nil
		}
	}

	return domain.Subscription{}, ErrNotFound
}

// UpsertByStripeID обновляет подписку по Stripe Subscription ID или создает новую
func (r *InMemorySubscriptionRepository) UpsertByStripeID(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, existing := range r.subscriptions {
		if existing.StripeSubscriptionID == subscription.StripeSubscriptionID {
			existing.Status = subscription.Status
			existing.CurrentPeriodStart = subscription.CurrentPeriodStart
			existing.CurrentPeriodEnd = subscription.CurrentPeriodEnd
			existing.CancelAtPeriodEnd = subscription.CancelAtPeriodEnd
			if subscription.PlanID != "" {
				existing.PlanID = subscription.PlanID
			}
			existing.UpdatedAt = time.Now()
			r.subscriptions[id] = existing
			return existing, nil
		}
	}

	if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}
	subscription.CreatedAt = time.Now()
	subscription.UpdatedAt = time.Now()
	r.subscriptions[subscription.ID] = subscription

	return subscription, nil
}

// Update обновляет существующую подписку
func (r *InMemorySubscriptionRepository) Update(ctx context.Context, subscription domain.Subscription) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.subscriptions[subscription.ID]
	if !exists {
		return ErrNotFound
	}

	subscription.CreatedAt = existing.CreatedAt
	subscription.UpdatedAt = time.Now()
	r.subscriptions[subscription.ID] = subscription

	return nil
}
