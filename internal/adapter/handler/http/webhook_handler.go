package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/usecase"
)

// signatureHeaders lists the headers providers put their payload signature
// in, in lookup order.
var signatureHeaders = []string{
	"Stripe-Signature",
	"X-Hub-Signature",
	"X-Signature",
}

// WebhookHandler receives provider webhook deliveries
type WebhookHandler struct {
	webhookService *usecase.WebhookService
	logger         *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookService *usecase.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// Handle processes POST /webhook/:provider. Validation failures return 400 so
// the provider can alert; processing failures are stored for retry and return
// 200 to stop redelivery storms.
func (h *WebhookHandler) Handle(c echo.Context) error {
	providerName := c.Param("provider")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "failed to read request body",
		})
	}

	var signature string
	for _, header := range signatureHeaders {
		if v := c.Request().Header.Get(header); v != "" {
			signature = v
			break
		}
	}

	if err := h.webhookService.Ingest(c.Request().Context(), providerName, payload, signature); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"received": true,
	})
}
