package openfinance

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/domain/provider"
)

const (
	defaultTimeout = 30 * time.Second
	chargeTimeout  = 60 * time.Second

	// Refresh the token a minute before it actually expires
	tokenExpirySlack = time.Minute
)

// OpenFinanceAdapter initiates Pix payments through an Open Finance payment
// initiator. Only Pix is supported; card and subscription operations return
// NOT_IMPLEMENTED.
type OpenFinanceAdapter struct {
	clientID      string
	clientSecret  string
	webhookSecret string
	baseURL       string
	client        *http.Client
	logger        *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewOpenFinanceAdapter creates a new Open Finance adapter
func NewOpenFinanceAdapter(clientID, clientSecret, webhookSecret, baseURL string, logger *zap.Logger) *OpenFinanceAdapter {
	return &OpenFinanceAdapter{
		clientID:      clientID,
		clientSecret:  clientSecret,
		webhookSecret: webhookSecret,
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		client:        &http.Client{Timeout: defaultTimeout},
		logger:        logger,
	}
}

// Name returns the provider name
func (o *OpenFinanceAdapter) Name() string {
	return string(provider.ProviderTypeOpenFinance)
}

// token returns a cached client-credentials token, refreshing it when close
// to expiry.
func (o *OpenFinanceAdapter) token(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.accessToken != "" && time.Now().Before(o.tokenExpiry.Add(-tokenExpirySlack)) {
		return o.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", o.clientID)
	form.Set("client_secret", o.clientSecret)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/oauth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create token request",
			Details: err.Error(),
		}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		o.logger.Error("OpenFinanceAdapter: Token request failed", zap.Error(err))
		return "", &provider.ProviderError{
			Code:    "AUTH_ERROR",
			Message: "Open Finance token request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &provider.ProviderError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read token response",
			Details: err.Error(),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.logger.Error("OpenFinanceAdapter: Token request rejected",
			zap.Int("status_code", resp.StatusCode))
		return "", &provider.ProviderError{
			Code:    "AUTH_ERROR",
			Message: "Open Finance token request rejected",
			Details: string(respBody),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		return "", &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Open Finance token response malformed",
		}
	}

	o.accessToken = tokenResp.AccessToken
	o.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return o.accessToken, nil
}

func (o *OpenFinanceAdapter) post(ctx context.Context, client *http.Client, method, path string, body interface{}) (map[string]interface{}, error) {
	token, err := o.token(ctx)
	if err != nil {
		return nil, err
	}

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

	httpReq, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, reader)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		o.logger.Error("OpenFinanceAdapter: API request failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Open Finance API request failed",
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
		o.logger.Error("OpenFinanceAdapter: API call rejected",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)))
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Open Finance request rejected",
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

// CreateCustomer synthesizes a local customer reference. Open Finance payment
// initiation carries the payer on each charge, so there is no provider-side
// customer to create.
func (o *OpenFinanceAdapter) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (*provider.CustomerResult, error) {
	return &provider.CustomerResult{
		ProviderCustomerID: "of_cus_" + uuid.New().String(),
	}, nil
}

// CreateOrder synthesizes a local order reference for the same reason
func (o *OpenFinanceAdapter) CreateOrder(ctx context.Context, req *provider.CreateOrderRequest) (*provider.OrderResult, error) {
	return &provider.OrderResult{
		ProviderOrderID: "of_ord_" + uuid.New().String(),
		Status:          provider.PaymentStatusPending,
		AmountCents:     req.AmountCents,
		Currency:        defaultString(req.Currency, "BRL"),
	}, nil
}

// ChargePix initiates a Pix payment consent and returns the QR artifacts
// POST /payments/pix
func (o *OpenFinanceAdapter) ChargePix(ctx context.Context, req *provider.PixChargeRequest) (*provider.PixChargeResult, error) {
	body := map[string]interface{}{
		"reference_id": req.ProviderOrderID,
		"amount":       req.AmountCents,
		"currency":     "BRL",
		"payer": map[string]interface{}{
			"document": req.Document,
		},
		"expires_at":  req.ExpiresAt.Format(time.RFC3339),
		"description": req.Description,
	}

	client := &http.Client{Timeout: chargeTimeout}
	resp, err := o.post(ctx, client, http.MethodPost, "/payments/pix", body)
	if err != nil {
		return nil, err
	}

	result := &provider.PixChargeResult{
		ProviderChargeID: getStringFromMap(resp, "id"),
		QRCode:           getStringFromMap(resp, "qr_code"),
		QRCodeURL:        getStringFromMap(resp, "qr_code_url"),
		ExpiresAt:        req.ExpiresAt,
		ExpiresIn:        int64(time.Until(req.ExpiresAt).Seconds()),
		Status:           provider.PaymentStatusPending,
		ProviderData:     resp,
	}
	if expiresAt := getStringFromMap(resp, "expires_at"); expiresAt != "" {
		if parsed, err := time.Parse(time.RFC3339, expiresAt); err == nil {
			result.ExpiresAt = parsed
			result.ExpiresIn = int64(time.Until(parsed).Seconds())
		}
	}

	if result.QRCode == "" {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Open Finance pix response missing qr_code",
		}
	}

	o.logger.Info("OpenFinanceAdapter: Pix payment initiated",
		zap.String("charge_id", result.ProviderChargeID),
		zap.Int64("amount_cents", req.AmountCents))

	return result, nil
}

// GetOrder fetches the current state of a Pix payment by reference
// GET /payments?reference_id=<id>
func (o *OpenFinanceAdapter) GetOrder(ctx context.Context, providerOrderID string) (*provider.OrderResult, error) {
	resp, err := o.post(ctx, o.client, http.MethodGet, "/payments?reference_id="+url.QueryEscape(providerOrderID), nil)
	if err != nil {
		return nil, err
	}

	rawStatus := getStringFromMap(resp, "status")
	status, known := provider.NormalizeOrderStatus(rawStatus)
	if !known {
		o.logger.Warn("OpenFinanceAdapter: Unrecognized payment status, defaulting to pending",
			zap.String("raw_status", rawStatus),
			zap.String("order_id", providerOrderID))
	}

	result := &provider.OrderResult{
		ProviderOrderID: providerOrderID,
		Status:          status,
		RawStatus:       rawStatus,
		Currency:        "BRL",
		ProviderData:    resp,
	}
	if amount, ok := resp["amount"].(float64); ok {
		result.AmountCents = int64(amount)
	}

	return result, nil
}

// TokenizeCard is not supported (stub)
func (o *OpenFinanceAdapter) TokenizeCard(ctx context.Context, card *provider.CardData) (string, error) {
	o.logger.Warn("OpenFinanceAdapter: TokenizeCard not implemented")

	return "", &provider.ProviderError{
		Code:    provider.ErrCodeNotImplemented,
		Message: "Open Finance card tokenization is not supported",
	}
}

// ChargeCard is not supported (stub)
func (o *OpenFinanceAdapter) ChargeCard(ctx context.Context, req *provider.CardChargeRequest) (*provider.ChargeResult, error) {
	o.logger.Warn("OpenFinanceAdapter: ChargeCard not implemented",
		zap.String("order_id", req.ProviderOrderID))

	return nil, &provider.ProviderError{
		Code:    provider.ErrCodeNotImplemented,
		Message: "Open Finance card payments are not supported",
	}
}

// CreateSubscription is not supported (stub)
func (o *OpenFinanceAdapter) CreateSubscription(ctx context.Context, req *provider.CreateSubscriptionRequest) (*provider.SubscriptionResult, error) {
	o.logger.Warn("OpenFinanceAdapter: CreateSubscription not implemented")

	return nil, &provider.ProviderError{
		Code:    provider.ErrCodeNotImplemented,
		Message: "Open Finance subscriptions are not supported",
	}
}

// ParseWebhook verifies the delivery's HMAC and normalizes an Open Finance
// payment-status webhook
func (o *OpenFinanceAdapter) ParseWebhook(ctx context.Context, payload []byte, signature string) (*provider.WebhookEvent, error) {
	if o.webhookSecret == "" {
		return nil, &provider.ProviderError{
			Code:    "SIGNATURE_ERROR",
			Message: "Open Finance webhook secret not configured",
		}
	}
	if !provider.ValidSignature(o.webhookSecret, payload, signature) {
		o.logger.Warn("OpenFinanceAdapter: Webhook signature mismatch")
		return nil, &provider.ProviderError{
			Code:    "SIGNATURE_ERROR",
			Message: "Open Finance webhook signature verification failed",
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
		EventID:   getStringFromMap(raw, "event_id"),
		EventType: getStringFromMap(raw, "event_type"),
		RawStatus: getStringFromMap(raw, "status"),
		Data:      raw,
		CreatedAt: time.Now(),
	}
	event.ProviderOrderID = getStringFromMap(raw, "reference_id")
	if amount, ok := raw["amount"].(float64); ok {
		event.AmountCents = int64(amount)
	}

	if event.EventID == "" {
		event.EventID = event.EventType + ":" + event.ProviderOrderID
	}
	if event.EventType == "" {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Webhook payload missing event_type",
		}
	}

	return event, nil
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
