package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/res"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware ограничивает количество запросов с одного IP
// в скользящем окне. Счетчики живут в Redis, лимит общий для всех
// инстансов сервиса. При недоступном Redis запросы пропускаются.
func RateLimitMiddleware(client *redis.Client, window time.Duration, maxRequests int, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s", c.ClientIP())
		ctx := c.Request.Context()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			log.Warnw("Rate limit check failed, allowing request", "error", err)
			c.Next()
			return
		}

		// TTL ставим только на первый запрос в окне
		if count == 1 {
			if err := client.Expire(ctx, key, window).Err(); err != nil {
				log.Warnw("Failed to set rate limit TTL", "key", key, "error", err)
			}
		}

		if count > int64(maxRequests) {
			log.Warnw("Rate limit exceeded", "clientIP", c.ClientIP(), "count", count)
			res.AbortError(c, http.StatusTooManyRequests, "too many requests")
			return
		}

		c.Next()
	}
}
