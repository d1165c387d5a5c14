package middleware

import (
	"net/http"
	"strings"

	"github.com/Dhoini/subscription-service/internal/auth"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/res"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextUserIDKey ключ, под которым ID аутентифицированного пользователя
// лежит в контексте Gin.
const ContextUserIDKey = "userID"

// AuthMiddleware проверяет Bearer токен и кладет ID пользователя в контекст.
// Токен несет только идентичность: актуальные данные пользователя
// обработчики запрашивают из хранилища сами.
func AuthMiddleware(jwtManager *auth.JWTManager, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			res.AbortError(c, http.StatusUnauthorized, "authorization header required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			res.AbortError(c, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		userID, err := jwtManager.Verify(parts[1])
		if err != nil {
			log.Warnw("Token verification failed", "clientIP", c.ClientIP(), "error", err)
			res.AbortError(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// UserIDFromContext возвращает ID аутентифицированного пользователя из контекста Gin
func UserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		return uuid.Nil, false
	}

	userID, ok := value.(uuid.UUID)
	return userID, ok
}
