package repository

import (
	"context"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/google/uuid"
)

// CachedSubscriptionRepository реализует SubscriptionRepository с кешированием
type CachedSubscriptionRepository struct {
	repo  SubscriptionRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedSubscriptionRepository создает новый репозиторий с кешированием
func NewCachedSubscriptionRepository(
	repo SubscriptionRepository,
	cache *RedisCacheRepository,
	log *logger.Logger,
) SubscriptionRepository {
	return &CachedSubscriptionRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Create сохраняет подписку в БД и кеширует ее
func (r *CachedSubscriptionRepository) Create(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	created, err := r.repo.Create(ctx, sub)
	if err != nil {
		return domain.Subscription{}, err
	}

	if err := r.cache.CacheSubscription(ctx, created); err != nil {
		r.log.Warnw("Failed to cache subscription after creation", "error", err, "subscriptionID", created.ID)
		// Продолжаем выполнение, несмотря на ошибку кеширования
	}

	if err := r.cache.InvalidateUserSubscriptionsCache(ctx, created.UserID.String()); err != nil {
		r.log.Warnw("Failed to invalidate user subscriptions cache", "error", err, "userID", created.UserID)
	}

	return created, nil
}

// GetByID получает подписку по ID (сначала из кеша, потом из БД)
func (r *CachedSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	cachedSub, err := r.cache.GetCachedSubscription(ctx, id.String())
	if err != nil {
		r.log.Warnw("Error getting subscription from cache", "error", err, "subscriptionID", id)
		// Продолжаем выполнение при ошибке кеша
	}

	if cachedSub != nil {
		r.log.Debugw("Subscription found in cache", "subscriptionID", id)
		return *cachedSub, nil
	}

	sub, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Subscription{}, err
	}

	if err := r.cache.CacheSubscription(ctx, sub); err != nil {
		r.log.Warnw("Failed to cache subscription after fetching", "error", err, "subscriptionID", id)
	}

	return sub, nil
}

// GetByUserID возвращает подписки пользователя (сначала из кеша, потом из БД)
func (r *CachedSubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	cachedSubs, err := r.cache.GetCachedUserSubscriptions(ctx, userID.String())
	if err != nil {
		r.log.Warnw("Error getting user subscriptions from cache", "error", err, "userID", userID)
	}

	if cachedSubs != nil {
		r.log.Debugw("User subscriptions found in cache", "userID", userID, "count", len(cachedSubs))
		return cachedSubs, nil
	}

	subs, err := r.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.CacheUserSubscriptions(ctx, userID.String(), subs); err != nil {
		r.log.Warnw("Failed to cache user subscriptions", "error", err, "userID", userID)
	}

	return subs, nil
}

// GetByStripeID возвращает подписку по Stripe Subscription ID (без кеша, путь вебхуков)
func (r *CachedSubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error) {
	return r.repo.GetByStripeID(ctx, stripeSubscriptionID)
}

// UpsertByStripeID обновляет подписку в БД и сбрасывает кеш
func (r *CachedSubscriptionRepository) UpsertByStripeID(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	updated, err := r.repo.UpsertByStripeID(ctx, sub)
	if err != nil {
		return domain.Subscription{}, err
	}

	// После апдейта из вебхука кеш устарел, сбрасываем обе записи
	if err := r.cache.DeleteCachedSubscription(ctx, updated.ID.String()); err != nil {
		r.log.Warnw("Failed to invalidate subscription cache after upsert", "error", err, "subscriptionID", updated.ID)
	}
	if err := r.cache.InvalidateUserSubscriptionsCache(ctx, updated.UserID.String()); err != nil {
		r.log.Warnw("Failed to invalidate user subscriptions cache after upsert", "error", err, "userID", updated.UserID)
	}

	return updated, nil
}

// Update обновляет подписку в БД и кеше
func (r *CachedSubscriptionRepository) Update(ctx context.Context, sub domain.Subscription) error {
	if err := r.repo.Update(ctx, sub); err != nil {
		return err
	}

	if err := r.cache.CacheSubscription(ctx, sub); err != nil {
		r.log.Warnw("Failed to update subscription in cache", "error", err, "subscriptionID", sub.ID)
	}

	if err := r.cache.InvalidateUserSubscriptionsCache(ctx, sub.UserID.String()); err != nil {
		r.log.Warnw("Failed to invalidate user subscriptions cache after update", "error", err, "userID", sub.UserID)
	}

	return nil
}
