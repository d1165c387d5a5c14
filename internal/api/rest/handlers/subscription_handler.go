package handlers

import (
	"errors"
	"net/http"

	"github.com/Dhoini/subscription-service/internal/api/rest/middleware"
	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/res"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SubscriptionHandler обработчик подписок
type SubscriptionHandler struct {
	subscriptionSvc *service.SubscriptionService
	log             *logger.Logger
}

// NewSubscriptionHandler создает новый обработчик подписок
func NewSubscriptionHandler(subscriptionSvc *service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionSvc: subscriptionSvc,
		log:             log,
	}
}

// ListSubscriptions возвращает подписки пользователя
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		res.Error(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	subscriptions, err := h.subscriptionSvc.List(c.Request.Context(), userID)
	if err != nil {
		h.log.Errorw("Failed to list subscriptions", "userID", userID, "error", err)
		res.Error(c, http.StatusInternalServerError, "failed to get subscriptions")
		return
	}

	responses := make([]domain.SubscriptionResponse, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		responses = append(responses, subscription.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": responses})
}

// CreateSubscription создает новую подписку
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		res.Error(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req domain.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("Invalid subscription request", "error", err)
		res.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	output, err := h.subscriptionSvc.Create(c.Request.Context(), userID, req)
	if err != nil {
		var providerErr *domain.ProviderError
		if errors.As(err, &providerErr) {
			h.log.Errorw("Payment provider error", "operation", providerErr.Operation, "error", err)
			res.Error(c, http.StatusInternalServerError, "payment provider error")
			return
		}
		h.log.Errorw("Failed to create subscription", "userID", userID, "error", err)
		res.Error(c, http.StatusInternalServerError, "failed to create subscription")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"subscription":  output.Subscription.ToResponse(),
		"client_secret": output.ClientSecret,
	})
}

// CancelSubscription помечает подписку к отмене в конце периода
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		res.Error(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	subscriptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		res.Error(c, http.StatusBadRequest, "invalid subscription id")
		return
	}

	subscription, err := h.subscriptionSvc.Cancel(c.Request.Context(), userID, subscriptionID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			res.Error(c, http.StatusNotFound, "subscription not found")
		case errors.Is(err, domain.ErrForbidden):
			res.Error(c, http.StatusForbidden, "access denied")
		default:
			var providerErr *domain.ProviderError
			if errors.As(err, &providerErr) {
				h.log.Errorw("Payment provider error", "operation", providerErr.Operation, "error", err)
				res.Error(c, http.StatusInternalServerError, "payment provider error")
				return
			}
			h.log.Errorw("Failed to cancel subscription", "subscriptionID", subscriptionID, "error", err)
			res.Error(c, http.StatusInternalServerError, "failed to cancel subscription")
		}
		return
	}

	c.JSON(http.StatusOK, subscription.ToResponse())
}
