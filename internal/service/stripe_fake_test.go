package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/subscription-service/internal/integration/stripe"
)

// fakeStripeClient реализация stripe.Client для тестов
type fakeStripeClient struct {
	customersCreated     int
	subscriptionsCreated int
	paymentIntents       int
	cancelledIDs         []string

	createCustomerErr     error
	createSubscriptionErr error
	cancelErr             error
}

func (f *fakeStripeClient) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	if f.createCustomerErr != nil {
		return "", f.createCustomerErr
	}
	f.customersCreated++
	return fmt.Sprintf("cus_test_%d", f.customersCreated), nil
}

func (f *fakeStripeClient) CreatePaymentIntent(ctx context.Context, stripeCustomerID string, amount int64, currency string) (stripe.PaymentIntentResult, error) {
	f.paymentIntents++
	id := fmt.Sprintf("pi_test_%d", f.paymentIntents)
	return stripe.PaymentIntentResult{
		ID:           id,
		Amount:       amount,
		Currency:     currency,
		Status:       "requires_payment_method",
		ClientSecret: id + "_secret",
	}, nil
}

func (f *fakeStripeClient) CreateSubscription(ctx context.Context, stripeCustomerID, priceID, paymentMethodID string) (stripe.SubscriptionResult, error) {
	if f.createSubscriptionErr != nil {
		return stripe.SubscriptionResult{}, f.createSubscriptionErr
	}
	f.subscriptionsCreated++
	id := fmt.Sprintf("sub_test_%d", f.subscriptionsCreated)
	now := time.Now()
	return stripe.SubscriptionResult{
		ID:                 id,
		Status:             "incomplete",
		CurrentPeriodStart: now.Unix(),
		CurrentPeriodEnd:   now.AddDate(0, 1, 0).Unix(),
		ClientSecret:       id + "_secret",
	}, nil
}

func (f *fakeStripeClient) CancelSubscription(ctx context.Context, stripeSubscriptionID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelledIDs = append(f.cancelledIDs, stripeSubscriptionID)
	return nil
}

func (f *fakeStripeClient) GetPaymentMethod(ctx context.Context, paymentMethodID string) (stripe.PaymentMethodDetails, error) {
	return stripe.PaymentMethodDetails{
		ID:       paymentMethodID,
		Brand:    "visa",
		Last4:    "4242",
		ExpMonth: 12,
		ExpYear:  2030,
	}, nil
}
