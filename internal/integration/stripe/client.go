package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/subscription-service/pkg/logger"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

const (
	// Ключ метаданных для связи Stripe Customer с нашим UserID
	metadataUserIDKey = "user_id"
)

// PaymentIntentResult результат создания платежного намерения в Stripe.
type PaymentIntentResult struct {
	ID           string
	Amount       int64
	Currency     string
	Status       string
	ClientSecret string
}

// SubscriptionResult результат создания подписки в Stripe.
type SubscriptionResult struct {
	ID                 string
	Status             string
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	ClientSecret       string
}

// PaymentMethodDetails данные карты, привязанной к клиенту.
type PaymentMethodDetails struct {
	ID       string
	Brand    string
	Last4    string
	ExpMonth int64
	ExpYear  int64
}

// Client определяет методы для взаимодействия со Stripe API.
// Передается зависимостью в сервисы, чтобы в тестах подставлять фейковую реализацию.
type Client interface {
	// CreateCustomer создает нового клиента в Stripe и возвращает его Stripe ID.
	CreateCustomer(ctx context.Context, userID, email string) (string, error)

	// CreatePaymentIntent создает платежное намерение для клиента.
	CreatePaymentIntent(ctx context.Context, stripeCustomerID string, amount int64, currency string) (PaymentIntentResult, error)

	// CreateSubscription привязывает способ оплаты к клиенту, делает его дефолтным
	// и создает подписку на указанный план.
	CreateSubscription(ctx context.Context, stripeCustomerID, priceID, paymentMethodID string) (SubscriptionResult, error)

	// CancelSubscription помечает подписку к отмене в конце оплаченного периода.
	CancelSubscription(ctx context.Context, stripeSubscriptionID string) error

	// GetPaymentMethod возвращает данные способа оплаты.
	GetPaymentMethod(ctx context.Context, paymentMethodID string) (PaymentMethodDetails, error)
}

// stripeClient реализует интерфейс Client поверх Stripe SDK.
type stripeClient struct {
	client *client.API
	log    *logger.Logger
}

// NewClient создает новый экземпляр клиента Stripe.
func NewClient(apiKey string, log *logger.Logger) Client {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &stripeClient{
		client: sc,
		log:    log,
	}
}

// CreateCustomer создает нового клиента в Stripe.
func (sc *stripeClient) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			metadataUserIDKey: userID,
		},
	}
	params.Context = ctx

	cus, err := sc.client.Customers.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateCustomer", err)
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	sc.log.Infow("Stripe customer created", "stripeCustomerID", cus.ID, "userID", userID)
	return cus.ID, nil
}

// CreatePaymentIntent создает платежное намерение с автоматическими способами оплаты.
func (sc *stripeClient) CreatePaymentIntent(ctx context.Context, stripeCustomerID string, amount int64, currency string) (PaymentIntentResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		Customer: stripe.String(stripeCustomerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	intent, err := sc.client.PaymentIntents.New(params)
	if err != nil {
		logStripeError(sc.log, "CreatePaymentIntent", err)
		return PaymentIntentResult{}, fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}

	sc.log.Infow("Stripe payment intent created", "paymentIntentID", intent.ID, "amount", intent.Amount, "status", string(intent.Status))

	return PaymentIntentResult{
		ID:           intent.ID,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
		Status:       string(intent.Status),
		ClientSecret: intent.ClientSecret,
	}, nil
}

// CreateSubscription создает подписку в Stripe для указанного клиента и плана.
func (sc *stripeClient) CreateSubscription(ctx context.Context, stripeCustomerID, priceID, paymentMethodID string) (SubscriptionResult, error) {
	// 1. Привязываем способ оплаты к клиенту
	attachParams := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(stripeCustomerID),
	}
	attachParams.Context = ctx

	if _, err := sc.client.PaymentMethods.Attach(paymentMethodID, attachParams); err != nil {
		logStripeError(sc.log, "AttachPaymentMethod", err)
		return SubscriptionResult{}, fmt.Errorf("stripe: failed to attach payment method: %w", err)
	}

	// 2. Делаем способ оплаты дефолтным для будущих инвойсов
	updateParams := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	updateParams.Context = ctx

	if _, err := sc.client.Customers.Update(stripeCustomerID, updateParams); err != nil {
		logStripeError(sc.log, "SetDefaultPaymentMethod", err)
		return SubscriptionResult{}, fmt.Errorf("stripe: failed to set default payment method: %w", err)
	}

	// 3. Создаем подписку
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(stripeCustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				Price: stripe.String(priceID),
			},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")

	subscription, err := sc.client.Subscriptions.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateSubscription", err)
		return SubscriptionResult{}, fmt.Errorf("stripe: failed to create subscription: %w", err)
	}

	sc.log.Infow("Stripe subscription created", "stripeSubscriptionID", subscription.ID, "status", string(subscription.Status))

	// Извлекаем client_secret для подтверждения первого платежа
	clientSecret := ""
	if subscription.LatestInvoice != nil && subscription.LatestInvoice.PaymentIntent != nil {
		clientSecret = subscription.LatestInvoice.PaymentIntent.ClientSecret
	} else {
		sc.log.Warnw("No payment intent found in created subscription", "stripeSubscriptionID", subscription.ID, "status", string(subscription.Status))
	}

	return SubscriptionResult{
		ID:                 subscription.ID,
		Status:             string(subscription.Status),
		CurrentPeriodStart: subscription.CurrentPeriodStart,
		CurrentPeriodEnd:   subscription.CurrentPeriodEnd,
		ClientSecret:       clientSecret,
	}, nil
}

// CancelSubscription помечает подписку к отмене в конце периода.
func (sc *stripeClient) CancelSubscription(ctx context.Context, stripeSubscriptionID string) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	_, err := sc.client.Subscriptions.Update(stripeSubscriptionID, params)
	if err != nil {
		// Обрабатываем случай, если подписка уже удалена
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			sc.log.Warnw("Attempted to cancel already canceled/missing Stripe subscription", "stripeSubscriptionID", stripeSubscriptionID)
			return nil
		}
		logStripeError(sc.log, "CancelSubscription", err)
		return fmt.Errorf("stripe: failed to cancel subscription: %w", err)
	}

	sc.log.Infow("Stripe subscription set to cancel at period end", "stripeSubscriptionID", stripeSubscriptionID)
	return nil
}

// GetPaymentMethod возвращает данные карты по ID способа оплаты.
func (sc *stripeClient) GetPaymentMethod(ctx context.Context, paymentMethodID string) (PaymentMethodDetails, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := sc.client.PaymentMethods.Get(paymentMethodID, params)
	if err != nil {
		logStripeError(sc.log, "GetPaymentMethod", err)
		return PaymentMethodDetails{}, fmt.Errorf("stripe: failed to get payment method: %w", err)
	}

	details := PaymentMethodDetails{ID: pm.ID}
	if pm.Card != nil {
		details.Brand = string(pm.Card.Brand)
		details.Last4 = pm.Card.Last4
		details.ExpMonth = pm.Card.ExpMonth
		details.ExpYear = pm.Card.ExpYear
	}

	return details, nil
}

// logStripeError - вспомогательная функция для логирования деталей ошибки Stripe.
func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"param", stripeErr.Param,
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
	} else {
		log.Errorw("Non-Stripe error during Stripe operation",
			"operation", operation,
			"error", err,
		)
	}
}
