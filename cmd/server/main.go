package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/config"
	"github.com/clinicpay/payment-service/internal/domain/repository"
	"github.com/clinicpay/payment-service/internal/infrastructure/cache"
	"github.com/clinicpay/payment-service/internal/infrastructure/database"
	httpServer "github.com/clinicpay/payment-service/internal/infrastructure/http"
	"github.com/clinicpay/payment-service/internal/infrastructure/provider"
	"github.com/clinicpay/payment-service/internal/infrastructure/queue"
	"github.com/clinicpay/payment-service/internal/usecase"
	"github.com/clinicpay/payment-service/pkg/logger"
)

const (
	webhookRetryInterval  = time.Minute
	webhookRetryBatchSize = 50
)

func main() {
	// Local development convenience; missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
		Development: cfg.Service.Environment == "development",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.SplitMisconfigured() {
		zapLogger.Warn("Split payments enabled without a platform recipient; split charges will fail")
	}

	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repos := database.NewRepositories(db, zapLogger)

	factory, err := provider.NewFactory(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize provider factory", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Status cache is optional: without Redis every poll goes to the provider
	var statusCache repository.StatusCache
	if cfg.Service.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(cfg.Service.Redis, zapLogger)
		if err != nil {
			zapLogger.Warn("Redis unavailable, status polls will not be cached", zap.Error(err))
		} else {
			defer redisClient.Close()
			statusCache = cache.NewRedisStatusCache(redisClient, zapLogger)
		}
	}

	var publisher queue.CustomerSyncPublisher
	if cfg.Service.Queue.CustomerSyncURL != "" {
		sqsPublisher, err := queue.NewSQSPublisher(ctx, cfg.Service.Queue, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to initialize SQS publisher", zap.Error(err))
		}
		publisher = sqsPublisher

		worker, err := queue.NewCustomerSyncWorker(ctx, cfg.Service.Queue, repos.Customer, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to initialize customer sync worker", zap.Error(err))
		}
		go worker.Run(ctx)
	} else {
		publisher = queue.NewNopPublisher(zapLogger)
	}

	checkoutService := usecase.NewCheckoutService(cfg, factory,
		repos.Product, repos.Clinic, repos.Offer, repos.Merchant,
		repos.Customer, repos.Subscription, repos.Transaction,
		publisher, zapLogger)
	subscriptionService := usecase.NewSubscriptionService(cfg, factory,
		repos.Product, repos.Clinic, repos.Offer, repos.Merchant,
		repos.Customer, repos.Subscription, repos.Transaction,
		publisher, zapLogger)
	statusService := usecase.NewStatusService(factory, repos.Transaction, statusCache, zapLogger)
	webhookService := usecase.NewWebhookService(cfg, factory,
		repos.Webhook, repos.Transaction, repos.Subscription, zapLogger)

	go webhookService.RunRetryWorker(ctx, webhookRetryInterval, webhookRetryBatchSize)

	httpSrv := httpServer.NewServer(cfg, zapLogger, repos, &httpServer.Services{
		Checkout:     checkoutService,
		Subscription: subscriptionService,
		Status:       statusService,
		Webhook:      webhookService,
	})

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}
