package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dhoini/subscription-service/internal/api/rest"
	"github.com/Dhoini/subscription-service/internal/api/rest/handlers"
	"github.com/Dhoini/subscription-service/internal/auth"
	"github.com/Dhoini/subscription-service/internal/config"
	"github.com/Dhoini/subscription-service/internal/integration/stripe"
	"github.com/Dhoini/subscription-service/internal/kafka"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/internal/repository/postgres"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Время жизни JWT токена
const tokenTTL = 24 * time.Hour

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(".env")
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.New(cfg.App.LogLevel)
	defer log.Sync()

	log.Infow("Billing service starting up...")

	if cfg.Auth.JWTSecret == "" {
		log.Fatalw("JWT secret is not configured")
	}
	if cfg.Stripe.SecretKey == "" {
		log.Warnw("Stripe secret key is not set, payment operations will fail")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Подключаемся к базе данных и применяем схему
	pool, err := postgres.NewConnection(ctx, cfg.Database.DSN, log)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, log); err != nil {
		log.Fatalw("Failed to apply database schema", "error", err)
	}

	userRepo := postgres.NewUserRepository(pool, log)
	paymentRepo := postgres.NewPaymentRepository(pool, log)
	baseSubscriptionRepo := postgres.NewSubscriptionRepository(pool, log)

	// Redis кеш опционален: при недоступности работаем без кеширования
	var subscriptionRepo repository.SubscriptionRepository = baseSubscriptionRepo
	redisCache, err := repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		log.Warnw("Failed to initialize Redis cache, continuing without caching", "error", err)
	} else {
		log.Infow("Redis cache initialized")
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Errorw("Error closing Redis connection", "error", err)
			}
		}()
		subscriptionRepo = repository.NewCachedSubscriptionRepository(baseSubscriptionRepo, redisCache, log)
	}

	// Kafka опциональна: события не критичны для основного флоу
	var kafkaProducer kafka.Producer
	if err := kafka.EnsureTopics(cfg.Kafka.Brokers, log); err != nil {
		log.Warnw("Failed to ensure Kafka topics, continuing without event publishing", "error", err)
	} else {
		kafkaProducer, err = kafka.NewProducer(cfg.Kafka.Brokers, log)
		if err != nil {
			log.Warnw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		} else {
			log.Infow("Kafka producer initialized")
			defer func() {
				if err := kafkaProducer.Close(); err != nil {
					log.Errorw("Error closing Kafka producer", "error", err)
				}
			}()
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	billingMetrics := metrics.NewBillingMetrics(registry, log)

	stripeClient := stripe.NewClient(cfg.Stripe.SecretKey, log)
	webhookVerifier := stripe.NewWebhookVerifier(cfg.Stripe.WebhookSecret, log)
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, tokenTTL)

	authSvc := service.NewAuthService(userRepo, stripeClient, jwtManager, billingMetrics, log)
	paymentSvc := service.NewPaymentService(paymentRepo, userRepo, stripeClient, kafkaProducer, billingMetrics, log)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, userRepo, stripeClient, kafkaProducer, billingMetrics, log)
	webhookSvc := service.NewWebhookService(userRepo, subscriptionRepo, paymentRepo, kafkaProducer, billingMetrics, log)

	var redisClient *redis.Client
	if redisCache != nil {
		redisClient = redisCache.Client()
	}

	router := rest.SetupRouter(rest.RouterDeps{
		AuthHandler:         handlers.NewAuthHandler(authSvc, log),
		PaymentHandler:      handlers.NewPaymentHandler(paymentSvc, log),
		SubscriptionHandler: handlers.NewSubscriptionHandler(subscriptionSvc, log),
		WebhookHandler:      handlers.NewWebhookHandler(webhookVerifier, webhookSvc, log),
		JWTManager:          jwtManager,
		RedisClient:         redisClient,
		Registry:            registry,
		Config:              cfg,
		Log:                 log,
	})

	server := rest.NewServer(router, cfg, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	} else {
		log.Infow("HTTP server gracefully stopped")
	}

	log.Infow("Cleanup finished. Goodbye!")
}
