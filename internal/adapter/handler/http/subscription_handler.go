package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/clinicpay/payment-service/internal/domain/errors"
	"github.com/clinicpay/payment-service/internal/middleware/auth"
	"github.com/clinicpay/payment-service/internal/usecase"
)

// SubscriptionHandler exposes subscription creation and management
type SubscriptionHandler struct {
	subscriptionService *usecase.SubscriptionService
	logger              *zap.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptionService *usecase.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		logger:              logger,
	}
}

// Create handles POST /subscriptions
func (h *SubscriptionHandler) Create(c echo.Context) error {
	var req usecase.SubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	resp, err := h.subscriptionService.Create(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, resp)
}

// Cancel handles DELETE /subscriptions/:id
func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid subscription id",
		})
	}

	if err := h.subscriptionService.Cancel(c.Request().Context(), id); err != nil {
		if errors.Is(err, domainErrors.ErrSubscriptionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "subscription not found",
			})
		}
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ok": true,
	})
}

// List handles GET /subscriptions for the authenticated merchant
func (h *SubscriptionHandler) List(c echo.Context) error {
	merchantID, err := auth.GetMerchantID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error": "Authentication required",
		})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	subs, total, err := h.subscriptionService.List(c.Request().Context(), merchantID, limit, offset)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"subscriptions": subs,
		"total":         total,
	})
}
