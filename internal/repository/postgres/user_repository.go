package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository реализация репозитория пользователей через PostgreSQL
type UserRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewUserRepository создает новый репозиторий пользователей через PostgreSQL
func NewUserRepository(db *pgxpool.Pool, log *logger.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: log,
	}
}

// Create создает нового пользователя
func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, stripe_customer_id, subscription_status, payment_methods, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = domain.UserSubscriptionInactive
	}

	methodsBytes, err := json.Marshal(userPaymentMethods(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to marshal payment methods: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRow(
		ctx,
		query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.StripeCustomerID,
		user.SubscriptionStatus,
		methodsBytes,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Проверяем код ошибки на нарушение уникальности
			if pgErr.Code == "23505" {
				return domain.User{}, repository.ErrDuplicate
			}
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID возвращает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	query := userSelect + ` WHERE id = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByEmail возвращает пользователя по email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := userSelect + ` WHERE lower(email) = lower($1)`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

// GetByStripeCustomerID возвращает пользователя по Stripe Customer ID
func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (domain.User, error) {
	if stripeCustomerID == "" {
		return domain.User{}, repository.ErrNotFound
	}
	query := userSelect + ` WHERE stripe_customer_id = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, stripeCustomerID))
}

// Update обновляет существующего пользователя
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	query := `
		UPDATE users
		SET email = $1, password_hash = $2, stripe_customer_id = $3,
			subscription_status = $4, payment_methods = $5, updated_at = $6
		WHERE id = $7
	`

	methodsBytes, err := json.Marshal(userPaymentMethods(user))
	if err != nil {
		return fmt.Errorf("failed to marshal payment methods: %w", err)
	}

	result, err := r.db.Exec(
		ctx,
		query,
		user.Email,
		user.PasswordHash,
		user.StripeCustomerID,
		user.SubscriptionStatus,
		methodsBytes,
		time.Now(),
		user.ID,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return repository.ErrDuplicate
			}
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

const userSelect = `
	SELECT id, email, password_hash, stripe_customer_id, subscription_status, payment_methods, created_at, updated_at
	FROM users`

// scanUser сканирует одну строку пользователя
func (r *UserRepository) scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	var methodsBytes []byte

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.StripeCustomerID,
		&user.SubscriptionStatus,
		&methodsBytes,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, repository.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	if len(methodsBytes) > 0 {
		if err := json.Unmarshal(methodsBytes, &user.PaymentMethods); err != nil {
			r.log.Warnw("Failed to unmarshal payment methods", "error", err, "userID", user.ID)
			user.PaymentMethods = nil
		}
	}

	return user, nil
}

// userPaymentMethods возвращает методы оплаты без nil (jsonb колонка NOT NULL)
func userPaymentMethods(user domain.User) []domain.PaymentMethod {
	if user.PaymentMethods == nil {
		return []domain.PaymentMethod{}
	}
	return user.PaymentMethods
}
