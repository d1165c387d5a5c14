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

// PaymentHandler обработчик платежей
type PaymentHandler struct {
	paymentSvc *service.PaymentService
	log        *logger.Logger
}

// NewPaymentHandler создает новый обработчик платежей
func NewPaymentHandler(paymentSvc *service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentSvc: paymentSvc,
		log:        log,
	}
}

// CreatePaymentIntent создает платежное намерение
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		res.Error(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req domain.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("Invalid payment intent request", "error", err)
		res.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	output, err := h.paymentSvc.CreatePaymentIntent(c.Request.Context(), userID, req)
	if err != nil {
		var providerErr *domain.ProviderError
		if errors.As(err, &providerErr) {
			h.log.Errorw("Payment provider error", "operation", providerErr.Operation, "error", err)
			res.Error(c, http.StatusInternalServerError, "payment provider error")
			return
		}
		h.log.Errorw("Failed to create payment intent", "userID", userID, "error", err)
		res.Error(c, http.StatusInternalServerError, "failed to create payment intent")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment":       output.Payment.ToResponse(),
		"client_secret": output.ClientSecret,
	})
}

// GetPayment возвращает платеж по ID
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		res.Error(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		res.Error(c, http.StatusBadRequest, "invalid payment id")
		return
	}

	payment, err := h.paymentSvc.GetPayment(c.Request.Context(), userID, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			res.Error(c, http.StatusNotFound, "payment not found")
			return
		}
		h.log.Errorw("Failed to get payment", "paymentID", paymentID, "error", err)
		res.Error(c, http.StatusInternalServerError, "failed to get payment")
		return
	}

	c.JSON(http.StatusOK, payment.ToResponse())
}

// GetUserPayments возвращает последние платежи пользователя.
// Историю платежей может смотреть только сам пользователь.
func (h *PaymentHandler) GetUserPayments(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		res.Error(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	requestedID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		res.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}

	if requestedID != userID {
		h.log.Warnw("User attempted to view payments of another user", "requesterID", userID, "requestedID", requestedID)
		res.Error(c, http.StatusForbidden, "access denied")
		return
	}

	payments, err := h.paymentSvc.GetUserPayments(c.Request.Context(), userID)
	if err != nil {
		h.log.Errorw("Failed to get user payments", "userID", userID, "error", err)
		res.Error(c, http.StatusInternalServerError, "failed to get payments")
		return
	}

	responses := make([]domain.PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		responses = append(responses, payment.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"payments": responses})
}
