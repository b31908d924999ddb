package provider

import (
	"context"
	"time"
)

// Adapter is the uniform payment-provider interface. Adapters translate the
// internal request shapes (amounts in minor units) into provider payloads,
// call the provider, and normalize responses. Providers that do not support
// an operation return a ProviderError with code NOT_IMPLEMENTED.
type Adapter interface {
	// Name returns the provider name
	Name() string

	// CreateCustomer creates or reuses a provider-side customer
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*CustomerResult, error)

	// CreateOrder creates a provider-side order without charging it
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResult, error)

	// TokenizeCard exchanges raw card data for a single-use token
	TokenizeCard(ctx context.Context, req *CardData) (string, error)

	// ChargeCard charges an existing order with a card (token or raw fields)
	ChargeCard(ctx context.Context, req *CardChargeRequest) (*ChargeResult, error)

	// ChargePix generates a Pix charge (QR code) for an existing order
	ChargePix(ctx context.Context, req *PixChargeRequest) (*PixChargeResult, error)

	// CreateSubscription creates a recurring billing relationship
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*SubscriptionResult, error)

	// GetOrder fetches the current provider-side state of an order
	GetOrder(ctx context.Context, providerOrderID string) (*OrderResult, error)

	// ParseWebhook validates and normalizes an incoming webhook payload
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// ProviderType identifies a concrete payment provider
type ProviderType string

const (
	ProviderTypePagarme     ProviderType = "pagarme"
	ProviderTypeAppmax      ProviderType = "appmax"
	ProviderTypeOpenFinance ProviderType = "openfinance"
	ProviderTypeStripe      ProviderType = "stripe"
)

// CreateCustomerRequest carries the buyer identity sent to the provider
type CreateCustomerRequest struct {
	Name     string                 `json:"name"`
	Email    string                 `json:"email"`
	Phone    string                 `json:"phone,omitempty"`
	Document string                 `json:"document,omitempty"`
	Address  *Address               `json:"address,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Address is a normalized postal address
type Address struct {
	Street     string `json:"street,omitempty"`
	Number     string `json:"number,omitempty"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	ZipCode    string `json:"zip_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// CustomerResult is the normalized provider customer
type CustomerResult struct {
	ProviderCustomerID string                 `json:"provider_customer_id"`
	ProviderData       map[string]interface{} `json:"provider_data,omitempty"`
}

// OrderItem is one line of an order. UnitAmount is in minor units; adapters
// whose provider expects major units (Appmax) convert internally.
type OrderItem struct {
	SKU        string `json:"sku,omitempty"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitAmount int64  `json:"unit_amount"`
}

// CreateOrderRequest creates a provider-side order for a resolved customer
type CreateOrderRequest struct {
	ProviderCustomerID string                 `json:"provider_customer_id"`
	AmountCents        int64                  `json:"amount_cents"`
	Currency           string                 `json:"currency"`
	Items              []OrderItem            `json:"items,omitempty"`
	Description        string                 `json:"description,omitempty"`
	ShippingCents      int64                  `json:"shipping_cents,omitempty"`
	DiscountCents      int64                  `json:"discount_cents,omitempty"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

// OrderResult is the normalized provider order
type OrderResult struct {
	ProviderOrderID string                 `json:"provider_order_id"`
	Status          PaymentStatus          `json:"status"`
	RawStatus       string                 `json:"raw_status"`
	AmountCents     int64                  `json:"amount_cents"`
	Currency        string                 `json:"currency"`
	Installments    int                    `json:"installments,omitempty"`
	ProviderData    map[string]interface{} `json:"provider_data,omitempty"`
}

// CardData carries raw card fields for tokenization or direct charge
type CardData struct {
	Number     string `json:"number"`
	CVV        string `json:"cvv"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`
	HolderName string `json:"holder_name"`
}

// CardChargeRequest charges an order by card. Either Token or Card must be
// set; when both are present the token wins.
type CardChargeRequest struct {
	ProviderOrderID    string     `json:"provider_order_id"`
	ProviderCustomerID string     `json:"provider_customer_id"`
	AmountCents        int64      `json:"amount_cents"`
	Installments       int        `json:"installments"`
	Token              string     `json:"token,omitempty"`
	Card               *CardData  `json:"card,omitempty"`
	Split              *SplitRule `json:"split,omitempty"`
	Description        string     `json:"description,omitempty"`
}

// SplitRule divides a charge between the merchant and the platform by
// percentage. Percentages must sum to 100.
type SplitRule struct {
	MerchantRecipientID string `json:"merchant_recipient_id"`
	MerchantPercent     int    `json:"merchant_percent"`
	PlatformRecipientID string `json:"platform_recipient_id"`
	PlatformPercent     int    `json:"platform_percent"`
}

// ChargeResult is the normalized outcome of a card charge
type ChargeResult struct {
	ProviderChargeID string                 `json:"provider_charge_id"`
	Status           PaymentStatus          `json:"status"`
	RawStatus        string                 `json:"raw_status"`
	PaidAt           *time.Time             `json:"paid_at,omitempty"`
	ProviderData     map[string]interface{} `json:"provider_data,omitempty"`
}

// PixChargeRequest generates a Pix charge. Document is mandatory: the
// provider will not issue a QR code without the payer's tax document.
type PixChargeRequest struct {
	ProviderOrderID    string     `json:"provider_order_id"`
	ProviderCustomerID string     `json:"provider_customer_id"`
	AmountCents        int64      `json:"amount_cents"`
	Document           string     `json:"document"`
	ExpiresAt          time.Time  `json:"expires_at"`
	Split              *SplitRule `json:"split,omitempty"`
	Description        string     `json:"description,omitempty"`
}

// PixChargeResult normalizes the provider's raw QR artifacts into a uniform
// shape for client consumption
type PixChargeResult struct {
	ProviderChargeID string                 `json:"provider_charge_id"`
	QRCode           string                 `json:"qr_code"`
	QRCodeURL        string                 `json:"qr_code_url"`
	ExpiresAt        time.Time              `json:"expires_at"`
	ExpiresIn        int64                  `json:"expires_in"`
	Status           PaymentStatus          `json:"status"`
	ProviderData     map[string]interface{} `json:"provider_data,omitempty"`
}

// CreateSubscriptionRequest carries everything needed to start recurring
// billing. UnitAmountCents is ad-hoc pricing (planless); PlanID is only used
// when planless mode is disabled.
type CreateSubscriptionRequest struct {
	ProviderCustomerID string                 `json:"provider_customer_id"`
	Customer           *CreateCustomerRequest `json:"customer,omitempty"`
	UnitAmountCents    int64                  `json:"unit_amount_cents"`
	Currency           string                 `json:"currency"`
	Interval           string                 `json:"interval"`
	IntervalCount      int                    `json:"interval_count"`
	TrialDays          int                    `json:"trial_days,omitempty"`
	PlanID             string                 `json:"plan_id,omitempty"`
	CardToken          string                 `json:"card_token,omitempty"`
	Card               *CardData              `json:"card,omitempty"`
	Split              *SplitRule             `json:"split,omitempty"`
	Description        string                 `json:"description,omitempty"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

// SubscriptionResult is the normalized provider subscription. Dates are
// parsed into time values; ProviderData preserves the raw identifiers for
// audit.
type SubscriptionResult struct {
	ProviderSubscriptionID string                 `json:"provider_subscription_id"`
	Status                 SubscriptionStatus     `json:"status"`
	RawStatus              string                 `json:"raw_status"`
	StartAt                time.Time              `json:"start_at"`
	TrialEndsAt            *time.Time             `json:"trial_ends_at,omitempty"`
	CurrentPeriodStart     *time.Time             `json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time             `json:"current_period_end,omitempty"`
	ProviderData           map[string]interface{} `json:"provider_data,omitempty"`
}

// WebhookEvent is a normalized provider webhook event
type WebhookEvent struct {
	EventID                string                 `json:"event_id"`
	EventType              string                 `json:"event_type"`
	ProviderOrderID        string                 `json:"provider_order_id,omitempty"`
	ProviderChargeID       string                 `json:"provider_charge_id,omitempty"`
	ProviderSubscriptionID string                 `json:"provider_subscription_id,omitempty"`
	RawStatus              string                 `json:"raw_status"`
	AmountCents            int64                  `json:"amount_cents,omitempty"`
	Data                   map[string]interface{} `json:"data"`
	CreatedAt              time.Time              `json:"created_at"`
}

// Error codes shared across adapters
const (
	ErrCodeNotImplemented    = "NOT_IMPLEMENTED"
	ErrCodeRecipientNotFound = "RECIPIENT_NOT_FOUND"
)

// ProviderError wraps a provider failure with enough context to debug it
// without leaking raw provider stack traces to callers.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// IsRecipientNotFound reports whether err is a provider rejection caused by
// an unknown split recipient. The subscription orchestrator may retry once
// without split when this is the case.
func IsRecipientNotFound(err error) bool {
	pe, ok := err.(*ProviderError)
	return ok && pe.Code == ErrCodeRecipientNotFound
}
