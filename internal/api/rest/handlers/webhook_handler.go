package handlers

import (
	"io"
	"net/http"

	"github.com/Dhoini/subscription-service/internal/integration/stripe"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/res"
	"github.com/gin-gonic/gin"
)

// Ограничение на размер тела вебхука, рекомендованное Stripe
const maxWebhookBodyBytes = int64(65536)

// WebhookHandler обработчик webhook-событий Stripe
type WebhookHandler struct {
	verifier   *stripe.WebhookVerifier
	webhookSvc *service.WebhookService
	log        *logger.Logger
}

// NewWebhookHandler создает новый обработчик webhook-событий
func NewWebhookHandler(verifier *stripe.WebhookVerifier, webhookSvc *service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier:   verifier,
		webhookSvc: webhookSvc,
		log:        log,
	}
}

// HandleStripeWebhook принимает событие Stripe, проверяет подпись и синхронизирует данные.
// Событие с неверной подписью отклоняется до разбора тела.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		h.log.Warnw("Failed to read webhook body", "error", err)
		res.Error(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	event, err := h.verifier.ConstructEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		res.Error(c, http.StatusBadRequest, "webhook signature verification failed")
		return
	}

	if err := h.webhookSvc.HandleEvent(c.Request.Context(), event); err != nil {
		h.log.Errorw("Failed to handle webhook event", "eventID", event.ID, "type", string(event.Type), "error", err)
		// Возвращаем 500, чтобы Stripe повторил доставку события
		res.Error(c, http.StatusInternalServerError, "failed to handle webhook event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
