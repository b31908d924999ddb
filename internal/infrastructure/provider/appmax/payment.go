package appmax

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/domain/provider"
)

// CreateOrder creates an Appmax order bound to an existing customer
// POST /order
func (a *AppmaxAdapter) CreateOrder(ctx context.Context, req *provider.CreateOrderRequest) (*provider.OrderResult, error) {
	products := make([]map[string]interface{}, 0, len(req.Items))
	for _, item := range req.Items {
		products = append(products, map[string]interface{}{
			"sku":   defaultSKU(item.SKU, item.Name),
			"name":  item.Name,
			"qty":   item.Quantity,
			"price": centsToReais(item.UnitAmount),
		})
	}
	if len(products) == 0 {
		products = append(products, map[string]interface{}{
			"sku":   "default",
			"name":  req.Description,
			"qty":   1,
			"price": centsToReais(req.AmountCents),
		})
	}

	body := map[string]interface{}{
		"customer_id": req.ProviderCustomerID,
		"total":       centsToReais(req.AmountCents),
		"products":    products,
	}
	if req.ShippingCents > 0 {
		body["shipping"] = centsToReais(req.ShippingCents)
	}
	if req.DiscountCents > 0 {
		body["discount"] = centsToReais(req.DiscountCents)
	}

	data, err := a.post(ctx, a.client, "/order", body)
	if err != nil {
		return nil, err
	}

	orderID := getIDFromMap(data, "id")
	if orderID == "" {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Appmax order response missing id",
		}
	}

	a.logger.Info("AppmaxAdapter: Order created",
		zap.String("provider_order_id", orderID),
		zap.Int64("amount_cents", req.AmountCents))

	return &provider.OrderResult{
		ProviderOrderID: orderID,
		Status:          provider.PaymentStatusPending,
		RawStatus:       getStringFromMap(data, "status"),
		AmountCents:     req.AmountCents,
		Currency:        "BRL",
		ProviderData:    data,
	}, nil
}

// ChargeCard charges an existing order with a card
// POST /payment/credit-card
func (a *AppmaxAdapter) ChargeCard(ctx context.Context, req *provider.CardChargeRequest) (*provider.ChargeResult, error) {
	if req.Split != nil {
		// Appmax has no split API; the charge goes through unsplit
		a.logger.Warn("AppmaxAdapter: Split rules are not supported, charging without split",
			zap.String("order_id", req.ProviderOrderID))
	}

	payment := map[string]interface{}{
		"installments": maxInt(req.Installments, 1),
	}
	if req.Token != "" {
		payment["token"] = req.Token
	} else if req.Card != nil {
		payment["number"] = req.Card.Number
		payment["cvv"] = req.Card.CVV
		payment["month"] = req.Card.ExpMonth
		payment["year"] = req.Card.ExpYear
		payment["name"] = req.Card.HolderName
	}

	body := map[string]interface{}{
		"cart": map[string]interface{}{
			"order_id": req.ProviderOrderID,
		},
		"customer": map[string]interface{}{
			"customer_id": req.ProviderCustomerID,
		},
		"payment": map[string]interface{}{
			"CreditCard": payment,
		},
	}

	client := &http.Client{Timeout: chargeTimeout}
	data, err := a.post(ctx, client, "/payment/credit-card", body)
	if err != nil {
		return nil, err
	}

	rawStatus := getStringFromMap(data, "status")
	status, known := provider.NormalizeOrderStatus(rawStatus)
	if !known {
		a.logger.Warn("AppmaxAdapter: Unrecognized charge status, defaulting to pending",
			zap.String("raw_status", rawStatus))
	}

	result := &provider.ChargeResult{
		ProviderChargeID: getIDFromMap(data, "pay_reference"),
		Status:           status,
		RawStatus:        rawStatus,
		ProviderData:     data,
	}
	if result.ProviderChargeID == "" {
		result.ProviderChargeID = req.ProviderOrderID
	}
	if result.Status == provider.PaymentStatusPaid {
		now := time.Now()
		result.PaidAt = &now
	}

	a.logger.Info("AppmaxAdapter: Card charge completed",
		zap.String("charge_id", result.ProviderChargeID),
		zap.String("status", string(result.Status)))

	return result, nil
}

// ChargePix generates a Pix charge for an existing order
// POST /payment/pix
func (a *AppmaxAdapter) ChargePix(ctx context.Context, req *provider.PixChargeRequest) (*provider.PixChargeResult, error) {
	if req.Split != nil {
		a.logger.Warn("AppmaxAdapter: Split rules are not supported, charging without split",
			zap.String("order_id", req.ProviderOrderID))
	}

	body := map[string]interface{}{
		"cart": map[string]interface{}{
			"order_id": req.ProviderOrderID,
		},
		"customer": map[string]interface{}{
			"customer_id": req.ProviderCustomerID,
		},
		"payment": map[string]interface{}{
			"pix": map[string]interface{}{
				"document_number": nonDigits.ReplaceAllString(req.Document, ""),
				"expiration_date": req.ExpiresAt.Format("2006-01-02 15:04:05"),
			},
		},
	}

	client := &http.Client{Timeout: chargeTimeout}
	data, err := a.post(ctx, client, "/payment/pix", body)
	if err != nil {
		return nil, err
	}

	result := &provider.PixChargeResult{
		ProviderChargeID: getIDFromMap(data, "pay_reference"),
		QRCode:           getStringFromMap(data, "pix_emv"),
		QRCodeURL:        getStringFromMap(data, "pix_qrcode"),
		ExpiresAt:        req.ExpiresAt,
		ExpiresIn:        int64(time.Until(req.ExpiresAt).Seconds()),
		Status:           provider.PaymentStatusPending,
		ProviderData:     data,
	}
	if expiration := getStringFromMap(data, "pix_expiration_date"); expiration != "" {
		if parsed, err := time.ParseInLocation("2006-01-02 15:04:05", expiration, time.Local); err == nil {
			result.ExpiresAt = parsed
			result.ExpiresIn = int64(time.Until(parsed).Seconds())
		}
	}

	if result.QRCode == "" {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Appmax pix response missing emv payload",
		}
	}

	a.logger.Info("AppmaxAdapter: Pix charge created",
		zap.String("charge_id", result.ProviderChargeID),
		zap.Int64("expires_in", result.ExpiresIn))

	return result, nil
}

// CreateSubscription is not supported by Appmax; recurring billing is routed
// to providers with native subscriptions.
func (a *AppmaxAdapter) CreateSubscription(ctx context.Context, req *provider.CreateSubscriptionRequest) (*provider.SubscriptionResult, error) {
	return nil, &provider.ProviderError{
		Code:    provider.ErrCodeNotImplemented,
		Message: "Appmax does not support subscriptions",
	}
}

func defaultSKU(sku, name string) string {
	if sku != "" {
		return sku
	}
	return name
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
