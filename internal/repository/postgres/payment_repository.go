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

// PaymentRepository реализация репозитория платежей через PostgreSQL
type PaymentRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPaymentRepository создает новый репозиторий платежей через PostgreSQL
func NewPaymentRepository(db *pgxpool.Pool, log *logger.Logger) *PaymentRepository {
	return &PaymentRepository{
		db:  db,
		log: log,
	}
}

// Create создает новый платеж
func (r *PaymentRepository) Create(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	query := `
		INSERT INTO payments (id, user_id, subscription_id, stripe_payment_intent_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	now := time.Now()
	err := r.db.QueryRow(
		ctx,
		query,
		payment.ID,
		payment.UserID,
		payment.SubscriptionID,
		payment.StripePaymentIntentID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		now,
		now,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return domain.Payment{}, repository.ErrDuplicate
			}
		}
		return domain.Payment{}, fmt.Errorf("failed to create payment: %w", err)
	}

	return payment, nil
}

// GetByID возвращает платеж по ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	query := paymentSelect + ` WHERE id = $1`
	return scanPayment(r.db.QueryRow(ctx, query, id))
}

// GetByUserID возвращает платежи пользователя (новые в начале)
func (r *PaymentRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Payment, error) {
	query := paymentSelect + ` WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		payment, err := scanPaymentRow(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return payments, nil
}

// UpsertByStripeID обновляет платеж по Stripe PaymentIntent ID или создает новый.
// Атомарность upsert-а обеспечивает БД: одновременные доставки одного события
// не создают дубликатов.
func (r *PaymentRepository) UpsertByStripeID(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	query := `
		INSERT INTO payments (id, user_id, subscription_id, stripe_payment_intent_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (stripe_payment_intent_id) DO UPDATE SET
			status = EXCLUDED.status,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, created_at, updated_at
	`

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	now := time.Now()
	err := r.db.QueryRow(
		ctx,
		query,
		payment.ID,
		payment.UserID,
		payment.SubscriptionID,
		payment.StripePaymentIntentID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		now,
		now,
	).Scan(&payment.ID, &payment.UserID, &payment.CreatedAt, &payment.UpdatedAt)

	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to upsert payment: %w", err)
	}

	return payment, nil
}

const paymentSelect = `
	SELECT id, user_id, subscription_id, stripe_payment_intent_id, amount, currency, status, created_at, updated_at
	FROM payments`

// scanPayment сканирует одну строку платежа
func scanPayment(row pgx.Row) (domain.Payment, error) {
	payment, err := scanPaymentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, repository.ErrNotFound
		}
		return domain.Payment{}, err
	}
	return payment, nil
}

func scanPaymentRow(row pgx.Row) (domain.Payment, error) {
	var payment domain.Payment

	err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.SubscriptionID,
		&payment.StripePaymentIntentID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, err
		}
		return domain.Payment{}, fmt.Errorf("failed to scan payment: %w", err)
	}

	return payment, nil
}
