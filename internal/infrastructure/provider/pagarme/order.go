package pagarme

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/domain/provider"
)

// CreateOrder creates an open order without charging it
// POST /orders
func (p *PagarmeAdapter) CreateOrder(ctx context.Context, req *provider.CreateOrderRequest) (*provider.OrderResult, error) {
	items := make([]map[string]interface{}, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, map[string]interface{}{
			"code":        item.SKU,
			"description": item.Name,
			"quantity":    item.Quantity,
			"amount":      item.UnitAmount,
		})
	}
	if len(items) == 0 {
		items = append(items, map[string]interface{}{
			"description": req.Description,
			"quantity":    1,
			"amount":      req.AmountCents,
		})
	}

	body := map[string]interface{}{
		"customer_id": req.ProviderCustomerID,
		"items":       items,
		"closed":      false,
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	resp, err := p.post(ctx, p.client, http.MethodPost, "/orders", body)
	if err != nil {
		return nil, err
	}

	result := p.orderFromResponse(resp)
	if result.ProviderOrderID == "" {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Pagar.me order response missing id",
		}
	}
	if result.AmountCents == 0 {
		result.AmountCents = req.AmountCents
	}

	p.logger.Info("PagarmeAdapter: Order created",
		zap.String("provider_order_id", result.ProviderOrderID),
		zap.Int64("amount_cents", req.AmountCents))

	return result, nil
}

// ChargeCard charges an existing order with a card
// POST /charges
func (p *PagarmeAdapter) ChargeCard(ctx context.Context, req *provider.CardChargeRequest) (*provider.ChargeResult, error) {
	creditCard := map[string]interface{}{
		"installments": maxInt(req.Installments, 1),
	}
	if req.Token != "" {
		creditCard["card_token"] = req.Token
	} else if req.Card != nil {
		creditCard["card"] = map[string]interface{}{
			"number":      req.Card.Number,
			"holder_name": req.Card.HolderName,
			"exp_month":   req.Card.ExpMonth,
			"exp_year":    req.Card.ExpYear,
			"cvv":         req.Card.CVV,
		}
	}

	body := map[string]interface{}{
		"order_id":    req.ProviderOrderID,
		"customer_id": req.ProviderCustomerID,
		"amount":      req.AmountCents,
		"payment": map[string]interface{}{
			"payment_method": "credit_card",
			"credit_card":    creditCard,
		},
	}
	if req.Split != nil {
		body["split"] = splitRules(req.Split)
	}

	client := &http.Client{Timeout: chargeTimeout}
	resp, err := p.post(ctx, client, http.MethodPost, "/charges", body)
	if err != nil {
		return nil, err
	}

	rawStatus := getStringFromMap(resp, "status")
	status, known := provider.NormalizeOrderStatus(rawStatus)
	if !known {
		p.logger.Warn("PagarmeAdapter: Unrecognized charge status, defaulting to pending",
			zap.String("raw_status", rawStatus))
	}

	result := &provider.ChargeResult{
		ProviderChargeID: getStringFromMap(resp, "id"),
		Status:           status,
		RawStatus:        rawStatus,
		ProviderData:     resp,
	}

	if paidAt := getStringFromMap(resp, "paid_at"); paidAt != "" {
		if parsed, err := time.Parse(time.RFC3339, paidAt); err == nil {
			result.PaidAt = &parsed
		}
	}

	p.logger.Info("PagarmeAdapter: Card charge completed",
		zap.String("charge_id", result.ProviderChargeID),
		zap.String("status", string(result.Status)))

	return result, nil
}

// ChargePix generates a Pix charge for an existing order
// POST /charges
func (p *PagarmeAdapter) ChargePix(ctx context.Context, req *provider.PixChargeRequest) (*provider.PixChargeResult, error) {
	expiresIn := int64(time.Until(req.ExpiresAt).Seconds())
	if expiresIn <= 0 {
		expiresIn = 1800
	}

	body := map[string]interface{}{
		"order_id":    req.ProviderOrderID,
		"customer_id": req.ProviderCustomerID,
		"amount":      req.AmountCents,
		"payment": map[string]interface{}{
			"payment_method": "pix",
			"pix": map[string]interface{}{
				"expires_in": expiresIn,
			},
		},
	}
	if req.Split != nil {
		body["split"] = splitRules(req.Split)
	}

	client := &http.Client{Timeout: chargeTimeout}
	resp, err := p.post(ctx, client, http.MethodPost, "/charges", body)
	if err != nil {
		return nil, err
	}

	rawStatus := getStringFromMap(resp, "status")
	status, _ := provider.NormalizeOrderStatus(rawStatus)

	result := &provider.PixChargeResult{
		ProviderChargeID: getStringFromMap(resp, "id"),
		Status:           status,
		ExpiresAt:        req.ExpiresAt,
		ExpiresIn:        expiresIn,
		ProviderData:     resp,
	}

	if lastTx, ok := resp["last_transaction"].(map[string]interface{}); ok {
		result.QRCode = getStringFromMap(lastTx, "qr_code")
		result.QRCodeURL = getStringFromMap(lastTx, "qr_code_url")
		if expiresAt := getStringFromMap(lastTx, "expires_at"); expiresAt != "" {
			if parsed, err := time.Parse(time.RFC3339, expiresAt); err == nil {
				result.ExpiresAt = parsed
				result.ExpiresIn = int64(time.Until(parsed).Seconds())
			}
		}
	}

	if result.QRCode == "" {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Pagar.me pix response missing qr_code",
		}
	}

	p.logger.Info("PagarmeAdapter: Pix charge created",
		zap.String("charge_id", result.ProviderChargeID),
		zap.Int64("expires_in", result.ExpiresIn))

	return result, nil
}

// splitRules builds the provider split payload. The merchant carries the
// sale; the platform recipient absorbs processing fees and chargebacks.
func splitRules(split *provider.SplitRule) []map[string]interface{} {
	return []map[string]interface{}{
		{
			"recipient_id": split.MerchantRecipientID,
			"amount":       split.MerchantPercent,
			"type":         "percentage",
			"options": map[string]interface{}{
				"charge_processing_fee": false,
				"charge_remainder_fee":  false,
				"liable":                false,
			},
		},
		{
			"recipient_id": split.PlatformRecipientID,
			"amount":       split.PlatformPercent,
			"type":         "percentage",
			"options": map[string]interface{}{
				"charge_processing_fee": true,
				"charge_remainder_fee":  true,
				"liable":                true,
			},
		},
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
