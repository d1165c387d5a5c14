package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/google/uuid"
)

// UserRepository интерфейс репозитория пользователей
type UserRepository interface {
	// Create создает нового пользователя. Возвращает ErrDuplicate, если email занят.
	Create(ctx context.Context, user domain.User) (domain.User, error)

	// GetByID возвращает пользователя по ID
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// GetByEmail возвращает пользователя по email
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// GetByStripeCustomerID возвращает пользователя по Stripe Customer ID
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (domain.User, error)

	// Update обновляет существующего пользователя
	Update(ctx context.Context, user domain.User) error
}

// InMemoryUserRepository реализация репозитория пользователей в памяти
type InMemoryUserRepository struct {
	users map[uuid.UUID]domain.User
	mutex sync.RWMutex
	log   *logger.Logger
}

// NewInMemoryUserRepository создает новый репозиторий пользователей в памяти
func NewInMemoryUserRepository(log *logger.Logger) *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[uuid.UUID]domain.User),
		log:   log,
	}
}

// Create создает нового пользователя
func (r *InMemoryUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Email должен быть уникальным
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.User{}, ErrDuplicate
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	r.users[user.ID] = user

	return user, nil
}

// GetByID возвращает пользователя по ID
func (r *InMemoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return domain.User{}, ErrNotFound
	}

	return user, nil
}

// GetByEmail возвращает пользователя по email
func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}

	return domain.User{}, ErrNotFound
}

// GetByStripeCustomerID возвращает пользователя по Stripe Customer ID
func (r *InMemoryUserRepository) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (domain.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if user.StripeCustomerID != "" && user.StripeCustomerID == stripeCustomerID {
			return user, nil
		}
	}

	return domain.User{}, ErrNotFound
}

// Update обновляет существующего пользователя
func (r *InMemoryUserRepository) Update(ctx context.Context, user domain.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.users[user.ID]
	if !exists {
		return ErrNotFound
	}

	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user

	return nil
}
