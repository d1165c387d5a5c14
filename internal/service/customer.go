package service

import (
	"context"
	"fmt"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/integration/stripe"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

// ensureStripeCustomer гарантирует наличие Stripe customer у пользователя.
// Customer создается лениво при первой платежной операции, если регистрация
// прошла при недоступном Stripe.
func ensureStripeCustomer(
	ctx context.Context,
	userRepo repository.UserRepository,
	stripeClient stripe.Client,
	log *logger.Logger,
	user domain.User,
) (domain.User, error) {
	if user.StripeCustomerID != "" {
		return user, nil
	}

	stripeCustomerID, err := stripeClient.CreateCustomer(ctx, user.ID.String(), user.Email)
	if err != nil {
		return domain.User{}, domain.NewProviderError("CreateCustomer", err)
	}

	user.StripeCustomerID = stripeCustomerID
	if err := userRepo.Update(ctx, user); err != nil {
		log.Errorw("Failed to save Stripe customer ID", "userID", user.ID, "error", err)
		return domain.User{}, fmt.Errorf("failed to update user: %w", err)
	}

	log.Infow("Stripe customer created lazily", "userID", user.ID, "stripeCustomerID", stripeCustomerID)
	return user, nil
}
