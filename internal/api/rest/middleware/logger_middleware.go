package middleware

import (
	"time"

	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// LoggerMiddleware создает middleware для логирования запросов
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		// Уровень лога зависит от кода ответа
		switch {
		case statusCode >= 500:
			log.Errorw("Request completed",
				"method", c.Request.Method,
				"path", c.Request.RequestURI,
				"status", statusCode,
				"latency", latency.String(),
				"clientIP", c.ClientIP(),
			)
		case statusCode >= 400:
			log.Warnw("Request completed",
				"method", c.Request.Method,
				"path", c.Request.RequestURI,
				"status", statusCode,
				"latency", latency.String(),
				"clientIP", c.ClientIP(),
			)
		default:
			log.Infow("Request completed",
				"method", c.Request.Method,
				"path", c.Request.RequestURI,
				"status", statusCode,
				"latency", latency.String(),
				"clientIP", c.ClientIP(),
			)
		}
	}
}
