package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/usecase"
)

// StatusHandler answers order status polls
type StatusHandler struct {
	statusService *usecase.StatusService
	logger        *zap.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(statusService *usecase.StatusService, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		logger:        logger,
	}
}

// Get handles GET /payments/:orderId/status
func (h *StatusHandler) Get(c echo.Context) error {
	orderID := c.Param("orderId")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "order id is required",
		})
	}

	resp, err := h.statusService.Get(c.Request().Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// Wait handles GET /payments/:orderId/status/wait. It long-polls until the
// order reaches a terminal status or the poll budget runs out; either way the
// last observed state is returned with 200.
func (h *StatusHandler) Wait(c echo.Context) error {
	orderID := c.Param("orderId")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "order id is required",
		})
	}

	resp, err := h.statusService.Wait(c.Request().Context(), orderID)
	if err != nil {
		if resp != nil {
			// Client went away mid-poll; return what we have
			return c.JSON(http.StatusOK, resp)
		}
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}
