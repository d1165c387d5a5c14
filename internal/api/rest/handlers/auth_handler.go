package handlers

import (
	"errors"
	"net/http"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/res"
	"github.com/gin-gonic/gin"
)

// AuthHandler обработчик регистрации и входа
type AuthHandler struct {
	authSvc *service.AuthService
	log     *logger.Logger
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authSvc *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc: authSvc,
		log:     log,
	}
}

// Register регистрирует нового пользователя
func (h *AuthHandler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("Invalid registration request", "error", err)
		res.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			res.Error(c, http.StatusBadRequest, "email already registered")
			return
		}
		h.log.Errorw("Failed to register user", "error", err)
		res.Error(c, http.StatusInternalServerError, "failed to register user")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login аутентифицирует пользователя и выдает токен
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("Invalid login request", "error", err)
		res.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			res.Error(c, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.log.Errorw("Failed to login user", "error", err)
		res.Error(c, http.StatusInternalServerError, "failed to login")
		return
	}

	c.JSON(http.StatusOK, resp)
}
