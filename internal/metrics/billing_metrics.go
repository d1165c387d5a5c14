package metrics

import (
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BillingMetrics интерфейс для метрик биллинга
type BillingMetrics interface {
	IncUserRegistered()
	IncPaymentIntentCreated(currency string)
	IncSubscriptionCreated(planID string)
	IncSubscriptionCancelled(planID string)
	IncWebhookEvent(eventType string)
	ObservePaymentAmount(amount float64, currency string, status string)
}

type billingMetrics struct {
	log                    *logger.Logger
	usersRegistered        prometheus.Counter
	paymentIntentsCreated  *prometheus.CounterVec
	subscriptionsCreated   *prometheus.CounterVec
	subscriptionsCancelled *prometheus.CounterVec
	webhookEvents          *prometheus.CounterVec
	paymentsAmount         *prometheus.HistogramVec
}

// NewBillingMetrics создает новые метрики биллинга
func NewBillingMetrics(registry *prometheus.Registry, log *logger.Logger) BillingMetrics {
	usersRegistered := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "The total number of registered users",
		},
	)

	paymentIntentsCreated := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_created_total",
			Help: "The total number of created payment intents",
		},
		[]string{"currency"},
	)

	subscriptionsCreated := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_created_total",
			Help: "The total number of created subscriptions",
		},
		[]string{"plan_id"},
	)

	subscriptionsCancelled := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_cancelled_total",
			Help: "The total number of cancelled subscriptions",
		},
		[]string{"plan_id"},
	)

	webhookEvents := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "The total number of processed webhook events by type",
		},
		[]string{"type"},
	)

	paymentsAmount := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payments_amount",
			Help:    "Payment amounts distribution",
			Buckets: prometheus.ExponentialBuckets(10, 10, 5), // 10, 100, 1000, 10000, 100000
		},
		[]string{"currency", "status"},
	)

	return &billingMetrics{
		log:                    log,
		usersRegistered:        usersRegistered,
		paymentIntentsCreated:  paymentIntentsCreated,
		subscriptionsCreated:   subscriptionsCreated,
		subscriptionsCancelled: subscriptionsCancelled,
		webhookEvents:          webhookEvents,
		paymentsAmount:         paymentsAmount,
	}
}

// IncUserRegistered увеличивает счетчик зарегистрированных пользователей
func (m *billingMetrics) IncUserRegistered() {
	m.usersRegistered.Inc()
}

// IncPaymentIntentCreated увеличивает счетчик созданных платежных намерений
func (m *billingMetrics) IncPaymentIntentCreated(currency string) {
	m.paymentIntentsCreated.WithLabelValues(currency).Inc()
}

// IncSubscriptionCreated увеличивает счетчик созданных подписок
func (m *billingMetrics) IncSubscriptionCreated(planID string) {
	m.subscriptionsCreated.WithLabelValues(planID).Inc()
}

// IncSubscriptionCancelled увеличивает счетчик отмененных подписок
func (m *billingMetrics) IncSubscriptionCancelled(planID string) {
	m.subscriptionsCancelled.WithLabelValues(planID).Inc()
}

// IncWebhookEvent увеличивает счетчик обработанных webhook-событий
func (m *billingMetrics) IncWebhookEvent(eventType string) {
	m.webhookEvents.WithLabelValues(eventType).Inc()
}

// ObservePaymentAmount записывает сумму платежа
func (m *billingMetrics) ObservePaymentAmount(amount float64, currency string, status string) {
	m.paymentsAmount.WithLabelValues(currency, status).Observe(amount)
}
