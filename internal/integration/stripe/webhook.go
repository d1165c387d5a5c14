package stripe

import (
	"fmt"

	"github.com/Dhoini/subscription-service/pkg/logger"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// WebhookVerifier проверяет подпись входящих webhook-событий Stripe
type WebhookVerifier struct {
	secret string
	log    *logger.Logger
}

// NewWebhookVerifier создает новый верификатор webhook-событий
func NewWebhookVerifier(secret string, log *logger.Logger) *WebhookVerifier {
	return &WebhookVerifier{
		secret: secret,
		log:    log,
	}
}

// ConstructEvent проверяет заголовок Stripe-Signature и разбирает событие.
// Подпись считается по схеме t=<timestamp>,v1=<HMAC-SHA256(timestamp.payload)>.
func (v *WebhookVerifier) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		v.log.Warnw("Webhook signature verification failed", "error", err)
		return stripe.Event{}, fmt.Errorf("stripe: webhook signature verification failed: %w", err)
	}

	return event, nil
}
