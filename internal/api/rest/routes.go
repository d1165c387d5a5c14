package rest

import (
	"time"

	"github.com/Dhoini/subscription-service/internal/api/rest/handlers"
	"github.com/Dhoini/subscription-service/internal/api/rest/middleware"
	"github.com/Dhoini/subscription-service/internal/auth"
	"github.com/Dhoini/subscription-service/internal/config"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// RouterDeps зависимости маршрутизатора
type RouterDeps struct {
	AuthHandler         *handlers.AuthHandler
	PaymentHandler      *handlers.PaymentHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	WebhookHandler      *handlers.WebhookHandler
	JWTManager          *auth.JWTManager
	RedisClient         *redis.Client
	Registry            *prometheus.Registry
	Config              *config.Config
	Log                 *logger.Logger
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(deps RouterDeps) *gin.Engine {
	registerValidations()

	r := gin.New()

	r.Use(middleware.LoggerMiddleware(deps.Log))
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{deps.Config.CORS.Origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.HealthCheck)

	// Prometheus метрики
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	rateLimit := middleware.RateLimitMiddleware(
		deps.RedisClient,
		time.Duration(deps.Config.RateLimit.WindowSeconds)*time.Second,
		deps.Config.RateLimit.MaxRequests,
		deps.Log,
	)

	api := r.Group("/api")
	api.Use(rateLimit)
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", deps.AuthHandler.Register)
			authGroup.POST("/login", deps.AuthHandler.Login)
		}

		authRequired := middleware.AuthMiddleware(deps.JWTManager, deps.Log)

		subscriptions := api.Group("/subscriptions", authRequired)
		{
			subscriptions.GET("", deps.SubscriptionHandler.ListSubscriptions)
			subscriptions.POST("", deps.SubscriptionHandler.CreateSubscription)
			subscriptions.POST("/:id/cancel", deps.SubscriptionHandler.CancelSubscription)
		}

		payments := api.Group("/payments", authRequired)
		{
			payments.POST("/create-payment-intent", deps.PaymentHandler.CreatePaymentIntent)
			payments.GET("/user/:userId", deps.PaymentHandler.GetUserPayments)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
		}

		// Вебхуки аутентифицируются подписью Stripe, не токеном
		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/stripe", deps.WebhookHandler.HandleStripeWebhook)
		}
	}

	return r
}
