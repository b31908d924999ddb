package stripe

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	stripesdk "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/domain/provider"
)

// StripeAdapter implements the provider.Adapter interface for Stripe,
// used for international subscriptions. One-time payments stay on the
// Brazilian providers, so order and charge operations are stubs.
type StripeAdapter struct {
	sc            *client.API
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(secretKey, webhookSecret string, logger *zap.Logger) *StripeAdapter {
	sc := &client.API{}
	sc.Init(secretKey, nil)

	return &StripeAdapter{
		sc:            sc,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Name returns the provider name
func (s *StripeAdapter) Name() string {
	return string(provider.ProviderTypeStripe)
}

// CreateCustomer creates a Stripe customer
func (s *StripeAdapter) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (*provider.CustomerResult, error) {
	params := &stripesdk.CustomerParams{
		Name:  stripesdk.String(req.Name),
		Email: stripesdk.String(req.Email),
	}
	params.Context = ctx
	if req.Phone != "" {
		params.Phone = stripesdk.String(req.Phone)
	}
	for k, v := range req.Metadata {
		if str, ok := v.(string); ok {
			params.AddMetadata(k, str)
		}
	}

	cus, err := s.sc.Customers.New(params)
	if err != nil {
		s.logger.Error("StripeAdapter: Customer creation failed", zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Stripe customer creation failed",
			Details: err.Error(),
		}
	}

	s.logger.Info("StripeAdapter: Customer created",
		zap.String("provider_customer_id", cus.ID))

	return &provider.CustomerResult{ProviderCustomerID: cus.ID}, nil
}

// CreateSubscription creates a subscription with ad-hoc pricing. The card
// token must be a Stripe payment method id (tokenized client-side); it is
// attached to the customer and set as the subscription default.
func (s *StripeAdapter) CreateSubscription(ctx context.Context, req *provider.CreateSubscriptionRequest) (*provider.SubscriptionResult, error) {
	if req.ProviderCustomerID == "" {
		return nil, &provider.ProviderError{
			Code:    "VALIDATION_ERROR",
			Message: "Stripe subscription requires a provider customer id",
		}
	}
	if req.CardToken == "" {
		return nil, &provider.ProviderError{
			Code:    "VALIDATION_ERROR",
			Message: "Stripe subscription requires a client-side payment method id",
		}
	}

	attachParams := &stripesdk.PaymentMethodAttachParams{
		Customer: stripesdk.String(req.ProviderCustomerID),
	}
	attachParams.Context = ctx
	if _, err := s.sc.PaymentMethods.Attach(req.CardToken, attachParams); err != nil {
		s.logger.Error("StripeAdapter: Payment method attach failed", zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Stripe payment method attach failed",
			Details: err.Error(),
		}
	}

	productParams := &stripesdk.ProductParams{
		Name: stripesdk.String(defaultString(req.Description, "Subscription")),
	}
	productParams.Context = ctx
	product, err := s.sc.Products.New(productParams)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Stripe product creation failed",
			Details: err.Error(),
		}
	}

	params := &stripesdk.SubscriptionParams{
		Customer:             stripesdk.String(req.ProviderCustomerID),
		DefaultPaymentMethod: stripesdk.String(req.CardToken),
		Items: []*stripesdk.SubscriptionItemsParams{
			{
				PriceData: &stripesdk.SubscriptionItemPriceDataParams{
					Currency:   stripesdk.String(strings.ToLower(defaultString(req.Currency, "brl"))),
					Product:    stripesdk.String(product.ID),
					UnitAmount: stripesdk.Int64(req.UnitAmountCents),
					Recurring: &stripesdk.SubscriptionItemPriceDataRecurringParams{
						Interval:      stripesdk.String(defaultString(req.Interval, "month")),
						IntervalCount: stripesdk.Int64(int64(maxInt(req.IntervalCount, 1))),
					},
				},
				Quantity: stripesdk.Int64(1),
			},
		},
	}
	params.Context = ctx
	if req.TrialDays > 0 {
		params.TrialPeriodDays = stripesdk.Int64(int64(req.TrialDays))
	}
	for k, v := range req.Metadata {
		if str, ok := v.(string); ok {
			params.AddMetadata(k, str)
		}
	}

	sub, err := s.sc.Subscriptions.New(params)
	if err != nil {
		s.logger.Error("StripeAdapter: Subscription creation failed", zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Stripe subscription creation failed",
			Details: err.Error(),
		}
	}

	rawStatus := string(sub.Status)
	status, known := provider.NormalizeSubscriptionStatus(rawStatus)
	if !known {
		s.logger.Warn("StripeAdapter: Unrecognized subscription status, defaulting to active",
			zap.String("raw_status", rawStatus),
			zap.String("subscription_id", sub.ID))
	}

	result := &provider.SubscriptionResult{
		ProviderSubscriptionID: sub.ID,
		Status:                 status,
		RawStatus:              rawStatus,
		StartAt:                time.Unix(sub.StartDate, 0),
	}
	if sub.CurrentPeriodStart > 0 {
		start := time.Unix(sub.CurrentPeriodStart, 0)
		result.CurrentPeriodStart = &start
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0)
		result.CurrentPeriodEnd = &end
	}
	if sub.TrialEnd > 0 {
		trialEnd := time.Unix(sub.TrialEnd, 0)
		result.TrialEndsAt = &trialEnd
	}

	s.logger.Info("StripeAdapter: Subscription created",
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(status)))

	return result, nil
}

// ParseWebhook verifies the Stripe signature and normalizes the event
func (s *StripeAdapter) ParseWebhook(ctx context.Context, payload []byte, signature string) (*provider.WebhookEvent, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "SIGNATURE_ERROR",
			Message: "Stripe webhook signature verification failed",
			Details: err.Error(),
		}
	}

	var data map[string]interface{}
	if err := json.Unmarshal(stripeEvent.Data.Raw, &data); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse webhook object",
			Details: err.Error(),
		}
	}

	event := &provider.WebhookEvent{
		EventID:   stripeEvent.ID,
		EventType: string(stripeEvent.Type),
		RawStatus: getStringFromMap(data, "status"),
		Data:      data,
		CreatedAt: time.Unix(stripeEvent.Created, 0),
	}

	id := getStringFromMap(data, "id")
	switch {
	case strings.HasPrefix(event.EventType, "customer.subscription."):
		event.ProviderSubscriptionID = id
	case strings.HasPrefix(event.EventType, "invoice."):
		if sub := getStringFromMap(data, "subscription"); sub != "" {
			event.ProviderSubscriptionID = sub
		}
	}

	return event, nil
}

// CreateOrder is not supported; one-time payments use the Brazilian
// providers (stub)
func (s *StripeAdapter) CreateOrder(ctx context.Context, req *provider.CreateOrderRequest) (*provider.OrderResult, error) {
	s.logger.Warn("StripeAdapter: CreateOrder not implemented")

	return nil, &provider.ProviderError{
		Code:    provider.ErrCodeNotImplemented,
		Message: "Stripe one-time orders are not supported",
	}
}

// TokenizeCard is not supported server-side; cards are tokenized with
// Stripe.js in the client (stub)
func (s *StripeAdapter) TokenizeCard(ctx context.Context, card *provider.CardData) (string, error) {
	s.logger.Warn("StripeAdapter: TokenizeCard not implemented")

	return "", &provider.ProviderError{
		Code:    provider.ErrCodeNotImplemented,
		Message: "Stripe cards must be tokenized client-side",
	}
}

// ChargeCard is not supported (stub)
func (s *StripeAdapter) ChargeCard(ctx context.Context, req *provider.CardChargeRequest) (*provider.ChargeResult, error) {
	s.logger.Warn("StripeAdapter: ChargeCard not implemented",
		zap.String("order_id", req.ProviderOrderID))

	return nil, &provider.ProviderError{
		Code:    provider.ErrCodeNotImplemented,
		Message: "Stripe one-time card charges are not supported",
	}
}

// ChargePix is not supported (stub)
func (s *StripeAdapter) ChargePix(ctx context.Context, req *provider.PixChargeRequest) (*provider.PixChargeResult, error) {
	s.logger.Warn("StripeAdapter: ChargePix not implemented")

	return nil, &provider.ProviderError{
		Code:    provider.ErrCodeNotImplemented,
		Message: "Stripe does not support Pix",
	}
}

// GetOrder is not supported (stub)
func (s *StripeAdapter) GetOrder(ctx context.Context, providerOrderID string) (*provider.OrderResult, error) {
	s.logger.Warn("StripeAdapter: GetOrder not implemented",
		zap.String("order_id", providerOrderID))

	return nil, &provider.ProviderError{
		Code:    provider.ErrCodeNotImplemented,
		Message: "Stripe order lookup is not supported",
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

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
