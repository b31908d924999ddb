package pagarme

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/domain/provider"
)

// CreateSubscription creates a recurring billing relationship. Planless mode
// (pricing_scheme with an ad-hoc unit price) is preferred over predefined
// plan ids; PlanID is only sent when the request carries one.
// POST /subscriptions
func (p *PagarmeAdapter) CreateSubscription(ctx context.Context, req *provider.CreateSubscriptionRequest) (*provider.SubscriptionResult, error) {
	body := map[string]interface{}{
		"payment_method": "credit_card",
		"installments":   1,
		"billing_type":   "prepaid",
		"interval":       defaultString(req.Interval, "month"),
		"interval_count": maxInt(req.IntervalCount, 1),
		"currency":       defaultString(req.Currency, "BRL"),
	}

	if req.ProviderCustomerID != "" {
		body["customer_id"] = req.ProviderCustomerID
	} else if req.Customer != nil {
		customer := map[string]interface{}{
			"name":  req.Customer.Name,
			"email": req.Customer.Email,
			"type":  "individual",
		}
		if doc := nonDigits.ReplaceAllString(req.Customer.Document, ""); doc != "" {
			customer["document"] = doc
		}
		body["customer"] = customer
	}

	if req.PlanID != "" {
		body["plan_id"] = req.PlanID
	} else {
		body["items"] = []map[string]interface{}{
			{
				"description": defaultString(req.Description, "Assinatura"),
				"quantity":    1,
				"pricing_scheme": map[string]interface{}{
					"scheme_type": "unit",
					"price":       req.UnitAmountCents,
				},
			},
		}
	}

	if req.CardToken != "" {
		body["card_token"] = req.CardToken
	} else if req.Card != nil {
		body["card"] = map[string]interface{}{
			"number":      req.Card.Number,
			"holder_name": req.Card.HolderName,
			"exp_month":   req.Card.ExpMonth,
			"exp_year":    req.Card.ExpYear,
			"cvv":         req.Card.CVV,
		}
	}

	if req.TrialDays > 0 {
		body["trial_period_days"] = req.TrialDays
	}
	if req.Split != nil {
		body["split"] = map[string]interface{}{
			"enabled": true,
			"rules":   splitRules(req.Split),
		}
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	client := &http.Client{Timeout: chargeTimeout}
	resp, err := p.post(ctx, client, http.MethodPost, "/subscriptions", body)
	if err != nil {
		return nil, err
	}

	subscriptionID := getStringFromMap(resp, "id")
	if subscriptionID == "" {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Pagar.me subscription response missing id",
		}
	}

	rawStatus := getStringFromMap(resp, "status")
	status, known := provider.NormalizeSubscriptionStatus(rawStatus)
	if !known {
		p.logger.Warn("PagarmeAdapter: Unrecognized subscription status, defaulting to active",
			zap.String("raw_status", rawStatus),
			zap.String("subscription_id", subscriptionID))
	}

	result := &provider.SubscriptionResult{
		ProviderSubscriptionID: subscriptionID,
		Status:                 status,
		RawStatus:              rawStatus,
		StartAt:                time.Now(),
		ProviderData:           resp,
	}

	if startAt := getStringFromMap(resp, "start_at"); startAt != "" {
		if parsed, err := time.Parse(time.RFC3339, startAt); err == nil {
			result.StartAt = parsed
		}
	}
	if period, ok := resp["current_cycle"].(map[string]interface{}); ok {
		if start := getStringFromMap(period, "start_at"); start != "" {
			if parsed, err := time.Parse(time.RFC3339, start); err == nil {
				result.CurrentPeriodStart = &parsed
			}
		}
		if end := getStringFromMap(period, "end_at"); end != "" {
			if parsed, err := time.Parse(time.RFC3339, end); err == nil {
				result.CurrentPeriodEnd = &parsed
			}
		}
	}
	if req.TrialDays > 0 {
		trialEnd := result.StartAt.AddDate(0, 0, req.TrialDays)
		result.TrialEndsAt = &trialEnd
	}

	p.logger.Info("PagarmeAdapter: Subscription created",
		zap.String("subscription_id", subscriptionID),
		zap.String("status", string(status)),
		zap.Int64("unit_amount_cents", req.UnitAmountCents))

	return result, nil
}
