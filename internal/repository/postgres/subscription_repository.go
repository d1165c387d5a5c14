package postgres

import (
	"context"
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

// SubscriptionRepository реализация репозитория подписок через PostgreSQL
type SubscriptionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewSubscriptionRepository создает новый репозиторий подписок через PostgreSQL
func NewSubscriptionRepository(db *pgxpool.Pool, log *logger.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{
		db:  db,
		log: log,
	}
}

// Create создает новую подписку
func (r *SubscriptionRepository) Create(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error) {
	query := `
		INSERT INTO subscriptions (id, user_id, stripe_subscription_id, plan_id, status, current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}

	now := time.Now()
	err := r.db.QueryRow(
		ctx,
		query,
		subscription.ID,
		subscription.UserID,
		subscription.StripeSubscriptionID,
		subscription.PlanID,
		subscription.Status,
		subscription.CurrentPeriodStart,
		subscription.CurrentPeriodEnd,
		subscription.CancelAtPeriodEnd,
		now,
		now,
	).Scan(&subscription.CreatedAt, &subscription.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return domain.Subscription{}, repository.ErrDuplicate
			}
		}
		return domain.Subscription{}, fmt.Errorf("failed to create subscription: %w", err)
	}

	return subscription, nil
}

// GetByID возвращает подписку по ID
func (r *SubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	query := subscriptionSelect + ` WHERE id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

// GetByUserID возвращает подписки пользователя (новые в начале)
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	query := subscriptionSelect + ` WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	subscriptions := make([]domain.Subscription, 0)
	for rows.Next() {
		subscription, err := scanSubscriptionRow(rows)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subscriptions, nil
}

// GetByStripeID возвращает подписку по Stripe Subscription ID
func (r *SubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error) {
	query := subscriptionSelect + ` WHERE stripe_subscription_id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, stripeSubscriptionID))
}

// UpsertByStripeID обновляет подписку по Stripe Subscription ID или создает новую.
// Гонки одновременных доставок вебхуков для одной подписки разрешает
// атомарность upsert-а на стороне БД.
func (r *SubscriptionRepository) UpsertByStripeID(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error) {
	query := `
		INSERT INTO subscriptions (id, user_id, stripe_subscription_id, plan_id, status, current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (stripe_subscription_id) DO UPDATE SET
			status = EXCLUDED.status,
			plan_id = CASE WHEN EXCLUDED.plan_id <> '' THEN EXCLUDED.plan_id ELSE subscriptions.plan_id END,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, plan_id, created_at, updated_at
	`

	if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}

	now := time.Now()
	err := r.db.QueryRow(
		ctx,
		query,
		subscription.ID,
		subscription.UserID,
		subscription.StripeSubscriptionID,
		subscription.PlanID,
		subscription.Status,
		subscription.CurrentPeriodStart,
		subscription.CurrentPeriodEnd,
		subscription.CancelAtPeriodEnd,
		now,
		now,
	).Scan(&subscription.ID, &subscription.UserID, &subscription.PlanID, &subscription.CreatedAt, &subscription.UpdatedAt)

	if err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return subscription, nil
}

// Update обновляет существующую подписку
func (r *SubscriptionRepository) Update(ctx context.Context, subscription domain.Subscription) error {
	query := `
		UPDATE subscriptions
		SET status = $1, plan_id = $2, current_period_start = $3, current_period_end = $4,
			cancel_at_period_end = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.db.Exec(
		ctx,
		query,
		subscription.Status,
		subscription.PlanID,
		subscription.CurrentPeriodStart,
		subscription.CurrentPeriodEnd,
		subscription.CancelAtPeriodEnd,
		time.Now(),
		subscription.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

const subscriptionSelect = `
	SELECT id, user_id, stripe_subscription_id, plan_id, status, current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at
	FROM subscriptions`

// scanSubscription сканирует одну строку подписки
func scanSubscription(row pgx.Row) (domain.Subscription, error) {
	subscription, err := scanSubscriptionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, repository.ErrNotFound
		}
		return domain.Subscription{}, err
	}
	return subscription, nil
}

func scanSubscriptionRow(row pgx.Row) (domain.Subscription, error) {
	var subscription domain.Subscription

	err := row.Scan(
		&subscription.ID,
		&subscription.UserID,
		&subscription.StripeSubscriptionID,
		&subscription.PlanID,
		&subscription.Status,
		&subscription.CurrentPeriodStart,
		&subscription.CurrentPeriodEnd,
		&subscription.CancelAtPeriodEnd,
		&subscription.CreatedAt,
		&subscription.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, err
		}
		return domain.Subscription{}, fmt.Errorf("failed to scan subscription: %w", err)
	}

	return subscription, nil
}
