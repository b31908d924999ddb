package pagarme

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/domain/provider"
)

const (
	apiBaseURL = "https://api.pagar.me/core/v5"

	defaultTimeout = 30 * time.Second
	// Charges can take longer on the provider side
	chargeTimeout = 60 * time.Second
)

var nonDigits = regexp.MustCompile(`[^\d]`)

// PagarmeAdapter implements the provider.Adapter interface for Pagar.me v5
type PagarmeAdapter struct {
	secretKey     string
	publicKey     string
	webhookSecret string
	client        *http.Client
	logger        *zap.Logger
}

// NewPagarmeAdapter creates a new Pagar.me adapter
func NewPagarmeAdapter(secretKey, publicKey, webhookSecret string, logger *zap.Logger) *PagarmeAdapter {
	return &PagarmeAdapter{
		secretKey:     secretKey,
		publicKey:     publicKey,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: defaultTimeout},
		logger:        logger,
	}
}

// Name returns the provider name
func (p *PagarmeAdapter) Name() string {
	return string(provider.ProviderTypePagarme)
}

// post sends an authenticated JSON request and returns the decoded response
// body. Non-2xx responses become ProviderErrors carrying the provider's code,
// message and raw body.
func (p *PagarmeAdapter) post(ctx context.Context, client *http.Client, method, path string, body interface{}) (map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, &provider.ProviderError{
				Code:    "MARSHAL_ERROR",
				Message: "Failed to prepare request",
				Details: err.Error(),
			}
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	url := apiBaseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}

	auth := base64.StdEncoding.EncodeToString([]byte(p.secretKey + ":"))
	httpReq.Header.Set("Authorization", "Basic "+auth)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		p.logger.Error("PagarmeAdapter: API request failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Pagar.me API request failed",
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

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.Unmarshal(respBody, &errResp)

		p.logger.Error("PagarmeAdapter: API call rejected",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)))

		message := getStringFromMap(errResp, "message")
		if message == "" {
			message = "Pagar.me request rejected"
		}

		return nil, &provider.ProviderError{
			Code:    classifyErrorCode(resp.StatusCode, message, string(respBody)),
			Message: message,
			Details: string(respBody),
		}
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}

	return result, nil
}

// classifyErrorCode upgrades a generic rejection to RECIPIENT_NOT_FOUND when
// the provider complains about an unknown split recipient, so the
// subscription orchestrator can decide on a no-split retry.
func classifyErrorCode(statusCode int, message, body string) string {
	if containsFold(message, "recipient") || containsFold(body, "recipient_id") {
		if statusCode == http.StatusNotFound || statusCode == http.StatusUnprocessableEntity ||
			containsFold(message, "not found") || containsFold(body, "not found") {
			return provider.ErrCodeRecipientNotFound
		}
	}
	return fmt.Sprintf("HTTP_%d", statusCode)
}

// CreateCustomer creates a provider-side customer
// POST /customers
func (p *PagarmeAdapter) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (*provider.CustomerResult, error) {
	body := map[string]interface{}{
		"name":  req.Name,
		"email": req.Email,
		"type":  "individual",
	}

	if doc := nonDigits.ReplaceAllString(req.Document, ""); doc != "" {
		body["document"] = doc
	}
	if phone := buildPhone(req.Phone); phone != nil {
		body["phones"] = map[string]interface{}{"mobile_phone": phone}
	}
	if req.Address != nil {
		body["address"] = map[string]interface{}{
			"line_1":   req.Address.Street + ", " + req.Address.Number,
			"line_2":   req.Address.Complement,
			"city":     req.Address.City,
			"state":    req.Address.State,
			"zip_code": nonDigits.ReplaceAllString(req.Address.ZipCode, ""),
			"country":  defaultString(req.Address.Country, "BR"),
		}
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	resp, err := p.post(ctx, p.client, http.MethodPost, "/customers", body)
	if err != nil {
		return nil, err
	}

	customerID := getStringFromMap(resp, "id")
	if customerID == "" {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Pagar.me customer response missing id",
		}
	}

	p.logger.Info("PagarmeAdapter: Customer created",
		zap.String("provider_customer_id", customerID))

	return &provider.CustomerResult{
		ProviderCustomerID: customerID,
		ProviderData:       resp,
	}, nil
}

// TokenizeCard exchanges raw card data for a single-use token
// POST /tokens?appId=<public_key>
func (p *PagarmeAdapter) TokenizeCard(ctx context.Context, card *provider.CardData) (string, error) {
	body := map[string]interface{}{
		"type": "card",
		"card": map[string]interface{}{
			"number":      card.Number,
			"holder_name": card.HolderName,
			"exp_month":   card.ExpMonth,
			"exp_year":    card.ExpYear,
			"cvv":         card.CVV,
		},
	}

	resp, err := p.post(ctx, p.client, http.MethodPost, "/tokens?appId="+p.publicKey, body)
	if err != nil {
		return "", err
	}

	token := getStringFromMap(resp, "id")
	if token == "" {
		return "", &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Pagar.me token response missing id",
		}
	}

	return token, nil
}

// GetOrder fetches the current provider-side state of an order
// GET /orders/{id}
func (p *PagarmeAdapter) GetOrder(ctx context.Context, providerOrderID string) (*provider.OrderResult, error) {
	resp, err := p.post(ctx, p.client, http.MethodGet, "/orders/"+providerOrderID, nil)
	if err != nil {
		return nil, err
	}

	return p.orderFromResponse(resp), nil
}

// ParseWebhook checks the delivery's HMAC against the configured webhook
// secret, then normalizes the payload. Unsigned or mismatched deliveries are
// rejected before any parsing; a missing secret rejects everything.
func (p *PagarmeAdapter) ParseWebhook(ctx context.Context, payload []byte, signature string) (*provider.WebhookEvent, error) {
	if p.webhookSecret == "" {
		return nil, &provider.ProviderError{
			Code:    "SIGNATURE_ERROR",
			Message: "Pagar.me webhook secret not configured",
		}
	}
	if !provider.ValidSignature(p.webhookSecret, payload, signature) {
		p.logger.Warn("PagarmeAdapter: Webhook signature mismatch")
		return nil, &provider.ProviderError{
			Code:    "SIGNATURE_ERROR",
			Message: "Pagar.me webhook signature verification failed",
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

	event := &provider.WebhookEvent{
		EventID:   getStringFromMap(raw, "id"),
		EventType: getStringFromMap(raw, "type"),
		Data:      raw,
		CreatedAt: time.Now(),
	}

	if createdAt := getStringFromMap(raw, "created_at"); createdAt != "" {
		if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
			event.CreatedAt = parsed
		}
	}

	if event.EventID == "" || event.EventType == "" {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Webhook payload missing id or type",
		}
	}

	if data, ok := raw["data"].(map[string]interface{}); ok {
		event.RawStatus = getStringFromMap(data, "status")
		if amount, ok := data["amount"].(float64); ok {
			event.AmountCents = int64(amount)
		}

		id := getStringFromMap(data, "id")
		switch {
		case hasPrefix(event.EventType, "order."):
			event.ProviderOrderID = id
		case hasPrefix(event.EventType, "charge."):
			event.ProviderChargeID = id
			if order, ok := data["order"].(map[string]interface{}); ok {
				event.ProviderOrderID = getStringFromMap(order, "id")
			}
		case hasPrefix(event.EventType, "subscription."), hasPrefix(event.EventType, "invoice."):
			event.ProviderSubscriptionID = id
			if sub, ok := data["subscription"].(map[string]interface{}); ok {
				event.ProviderSubscriptionID = getStringFromMap(sub, "id")
			}
		}
	}

	return event, nil
}

func (p *PagarmeAdapter) orderFromResponse(resp map[string]interface{}) *provider.OrderResult {
	rawStatus := getStringFromMap(resp, "status")
	status, known := provider.NormalizeOrderStatus(rawStatus)
	if !known {
		p.logger.Warn("PagarmeAdapter: Unrecognized order status, defaulting to pending",
			zap.String("raw_status", rawStatus),
			zap.String("order_id", getStringFromMap(resp, "id")))
	}

	result := &provider.OrderResult{
		ProviderOrderID: getStringFromMap(resp, "id"),
		Status:          status,
		RawStatus:       rawStatus,
		Currency:        defaultString(getStringFromMap(resp, "currency"), "BRL"),
		ProviderData:    resp,
	}

	if amount, ok := resp["amount"].(float64); ok {
		result.AmountCents = int64(amount)
	}

	if charges, ok := resp["charges"].([]interface{}); ok && len(charges) > 0 {
		if charge, ok := charges[0].(map[string]interface{}); ok {
			if lastTx, ok := charge["last_transaction"].(map[string]interface{}); ok {
				if installments, ok := lastTx["installments"].(float64); ok {
					result.Installments = int(installments)
				}
			}
		}
	}

	return result
}

func buildPhone(phone string) map[string]interface{} {
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) < 10 {
		return nil
	}
	// Brazilian numbers: optional 55 country code, 2-digit area code
	countryCode := "55"
	if len(digits) > 11 && digits[:2] == "55" {
		digits = digits[2:]
	}
	return map[string]interface{}{
		"country_code": countryCode,
		"area_code":    digits[:2],
		"number":       digits[2:],
	}
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

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func containsFold(s, substr string) bool {
	return bytes.Contains(bytes.ToLower([]byte(s)), bytes.ToLower([]byte(substr)))
}
