package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/usecase"
)

// CheckoutHandler exposes one-off checkout
type CheckoutHandler struct {
	checkoutService *usecase.CheckoutService
	logger          *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *usecase.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// Create handles POST /checkout
func (h *CheckoutHandler) Create(c echo.Context) error {
	var req usecase.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	resp, err := h.checkoutService.Create(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, resp)
}
