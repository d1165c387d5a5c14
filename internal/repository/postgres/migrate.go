package postgres

import (
	"context"
	"fmt"

	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema описывает таблицы сервиса. Записи никогда не удаляются физически,
// отмена подписки - это смена статуса.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		stripe_customer_id TEXT NOT NULL DEFAULT '',
		subscription_status TEXT NOT NULL DEFAULT 'inactive',
		payment_methods JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_stripe_customer_id_idx
		ON users (stripe_customer_id) WHERE stripe_customer_id <> ''`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users (id),
		stripe_subscription_id TEXT NOT NULL UNIQUE,
		plan_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		current_period_start TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
		current_period_end TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
		cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS subscriptions_user_id_idx ON subscriptions (user_id)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users (id),
		subscription_id UUID,
		stripe_payment_intent_id TEXT NOT NULL UNIQUE,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS payments_user_id_idx ON payments (user_id)`,
}

// Migrate создает таблицы сервиса, если они еще не существуют
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	log.Infow("Database schema is up to date")
	return nil
}
