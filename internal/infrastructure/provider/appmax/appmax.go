package appmax

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/domain/provider"
)

const (
	apiBaseURL = "https://admin.appmax.com.br/api/v3"

	defaultTimeout = 30 * time.Second
	chargeTimeout  = 60 * time.Second
)

var nonDigits = regexp.MustCompile(`[^\d]`)

var cents100 = decimal.NewFromInt(100)

// AppmaxAdapter implements the provider.Adapter interface for Appmax v3.
// Appmax expects monetary values in reais (major units, float); all internal
// amounts are minor units, so conversion happens here and only here.
type AppmaxAdapter struct {
	accessToken   string
	webhookSecret string
	client        *http.Client
	logger        *zap.Logger
}

// NewAppmaxAdapter creates a new Appmax adapter
func NewAppmaxAdapter(accessToken, webhookSecret string, logger *zap.Logger) *AppmaxAdapter {
	return &AppmaxAdapter{
		accessToken:   accessToken,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: defaultTimeout},
		logger:        logger,
	}
}

// Name returns the provider name
func (a *AppmaxAdapter) Name() string {
	return string(provider.ProviderTypeAppmax)
}

// centsToReais converts minor units to the major-unit float Appmax expects.
// Getting this wrong is a money-correctness bug, so the conversion goes
// through decimal instead of float division.
func centsToReais(cents int64) float64 {
	v, _ := decimal.NewFromInt(cents).Div(cents100).Float64()
	return v
}

// reaisToCents converts an Appmax major-unit value back to minor units
func reaisToCents(reais float64) int64 {
	return decimal.NewFromFloat(reais).Mul(cents100).Round(0).IntPart()
}

// post sends a request with the access token injected into the body, per the
// Appmax authentication scheme, and unwraps the {success, data} envelope.
func (a *AppmaxAdapter) post(ctx context.Context, client *http.Client, path string, body map[string]interface{}) (map[string]interface{}, error) {
	if body == nil {
		body = map[string]interface{}{}
	}
	body["access-token"] = a.accessToken

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "MARSHAL_ERROR",
			Message: "Failed to prepare request",
			Details: err.Error(),
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		a.logger.Error("AppmaxAdapter: API request failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Appmax API request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read response",
			Details: err.Error(),
		}
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}

	success, _ := envelope["success"].(bool)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !success {
		a.logger.Error("AppmaxAdapter: API call rejected",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)))

		message := getStringFromMap(envelope, "text")
		if message == "" {
			message = getStringFromMap(envelope, "message")
		}
		if message == "" {
			message = "Appmax request rejected"
		}

		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: message,
			Details: string(respBody),
		}
	}

	if data, ok := envelope["data"].(map[string]interface{}); ok {
		return data, nil
	}
	return envelope, nil
}

// CreateCustomer creates a provider-side customer
// POST /customer
func (a *AppmaxAdapter) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (*provider.CustomerResult, error) {
	firstName, lastName := splitName(req.Name)

	body := map[string]interface{}{
		"firstname": firstName,
		"lastname":  lastName,
		"email":     req.Email,
		"telephone": nonDigits.ReplaceAllString(req.Phone, ""),
	}
	if req.Address != nil {
		body["postcode"] = nonDigits.ReplaceAllString(req.Address.ZipCode, "")
		body["address_street"] = req.Address.Street
		body["address_street_number"] = req.Address.Number
		body["address_street_district"] = req.Address.District
		body["address_city"] = req.Address.City
		body["address_state"] = req.Address.State
	}
	if len(req.Metadata) > 0 {
		body["custom_txt"] = req.Metadata
	}

	data, err := a.post(ctx, a.client, "/customer", body)
	if err != nil {
		return nil, err
	}

	customerID := getIDFromMap(data, "id")
	if customerID == "" {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Appmax customer response missing id",
		}
	}

	a.logger.Info("AppmaxAdapter: Customer created",
		zap.String("provider_customer_id", customerID))

	return &provider.CustomerResult{
		ProviderCustomerID: customerID,
		ProviderData:       data,
	}, nil
}

// TokenizeCard exchanges raw card data for a token
// POST /tokenize/card
func (a *AppmaxAdapter) TokenizeCard(ctx context.Context, card *provider.CardData) (string, error) {
	body := map[string]interface{}{
		"card": map[string]interface{}{
			"number": card.Number,
			"cvv":    card.CVV,
			"month":  card.ExpMonth,
			"year":   card.ExpYear,
			"name":   card.HolderName,
		},
	}

	data, err := a.post(ctx, a.client, "/tokenize/card", body)
	if err != nil {
		return "", err
	}

	token := getStringFromMap(data, "token")
	if token == "" {
		return "", &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Appmax tokenize response missing token",
		}
	}

	return token, nil
}

// GetOrder fetches the current provider-side state of an order
// POST /order/detail
func (a *AppmaxAdapter) GetOrder(ctx context.Context, providerOrderID string) (*provider.OrderResult, error) {
	data, err := a.post(ctx, a.client, "/order/detail", map[string]interface{}{
		"order_id": providerOrderID,
	})
	if err != nil {
		return nil, err
	}

	rawStatus := getStringFromMap(data, "status")
	status, known := provider.NormalizeOrderStatus(rawStatus)
	if !known {
		a.logger.Warn("AppmaxAdapter: Unrecognized order status, defaulting to pending",
			zap.String("raw_status", rawStatus),
			zap.String("order_id", providerOrderID))
	}

	result := &provider.OrderResult{
		ProviderOrderID: providerOrderID,
		Status:          status,
		RawStatus:       rawStatus,
		Currency:        "BRL",
		ProviderData:    data,
	}
	if total, ok := data["total"].(float64); ok {
		result.AmountCents = reaisToCents(total)
	}

	return result, nil
}

// ParseWebhook verifies the delivery's HMAC and normalizes the payload.
// Appmax posts {environment, event, data}; the event id is synthesized from
// the event name and order id since Appmax does not send one.
func (a *AppmaxAdapter) ParseWebhook(ctx context.Context, payload []byte, signature string) (*provider.WebhookEvent, error) {
	if a.webhookSecret == "" {
		return nil, &provider.ProviderError{
			Code:    "SIGNATURE_ERROR",
			Message: "Appmax webhook secret not configured",
		}
	}
	if !provider.ValidSignature(a.webhookSecret, payload, signature) {
		a.logger.Warn("AppmaxAdapter: Webhook signature mismatch")
		return nil, &provider.ProviderError{
			Code:    "SIGNATURE_ERROR",
			Message: "Appmax webhook signature verification failed",
		}
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Invalid webhook payload",
			Details: err.Error(),
		}
	}

	eventType := getStringFromMap(raw, "event")
	if eventType == "" {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Webhook payload missing event",
		}
	}

	event := &provider.WebhookEvent{
		EventType: eventType,
		Data:      raw,
		CreatedAt: time.Now(),
	}

	if data, ok := raw["data"].(map[string]interface{}); ok {
		event.ProviderOrderID = getIDFromMap(data, "id")
		event.RawStatus = getStringFromMap(data, "status")
		if total, ok := data["total"].(float64); ok {
			event.AmountCents = reaisToCents(total)
		}
	}

	event.EventID = eventType + ":" + event.ProviderOrderID
	return event, nil
}

func splitName(name string) (string, string) {
	for i := 0; i < len(name); i++ {
		if name[i] == ' ' {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}

func getStringFromMap(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// getIDFromMap reads an id that Appmax may send as number or string
func getIDFromMap(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return decimal.NewFromFloat(v).String()
	}
	return ""
}
