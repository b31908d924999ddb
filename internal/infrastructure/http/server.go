package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/clinicpay/payment-service/internal/adapter/handler/http"
	"github.com/clinicpay/payment-service/internal/config"
	"github.com/clinicpay/payment-service/internal/infrastructure/database"
	"github.com/clinicpay/payment-service/internal/middleware/auth"
	"github.com/clinicpay/payment-service/internal/usecase"
	"github.com/clinicpay/payment-service/pkg/logger"
)

// Services bundles the use cases the server exposes
type Services struct {
	Checkout     *usecase.CheckoutService
	Subscription *usecase.SubscriptionService
	Status       *usecase.StatusService
	Webhook      *usecase.WebhookService
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	repos    *database.Repositories
	services *Services
}

func NewServer(cfg *config.Config, log *zap.Logger, repos *database.Repositories, services *Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewRequestValidator()

	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		repos:    repos,
		services: services,
	}
}

func (s *Server) Start() error {
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	checkoutHandler := handlers.NewCheckoutHandler(s.services.Checkout, s.logger)
	statusHandler := handlers.NewStatusHandler(s.services.Status, s.logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(s.services.Subscription, s.logger)
	transactionHandler := handlers.NewTransactionHandler(s.repos.Transaction, s.logger)
	webhookHandler := handlers.NewWebhookHandler(s.services.Webhook, s.logger)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.Service.JWTSecret,
		Logger: s.logger,
	}

	v1 := s.echo.Group("/api/v1")

	// Buyer-facing routes, no authentication: the checkout page runs without
	// a merchant session
	v1.POST("/checkout", checkoutHandler.Create)
	v1.POST("/subscriptions", subscriptionHandler.Create)
	v1.GET("/payments/:orderId/status", statusHandler.Get)
	v1.GET("/payments/:orderId/status/wait", statusHandler.Wait)

	// Merchant-facing routes, JWT + X-Merchant-Id required
	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))
	protected.GET("/subscriptions", subscriptionHandler.List)
	protected.DELETE("/subscriptions/:id", subscriptionHandler.Cancel)
	protected.GET("/transactions", transactionHandler.List)
	protected.GET("/transactions/:id", transactionHandler.Get)

	// Webhook route (outside API versioning)
	s.echo.POST("/webhook/:provider", webhookHandler.Handle)
}
