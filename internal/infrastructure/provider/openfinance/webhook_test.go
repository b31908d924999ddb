package openfinance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/domain/provider"
)

const webhookSecret = "whsec_test"

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestParseWebhookRejectsUnsignedDelivery(t *testing.T) {
	adapter := NewOpenFinanceAdapter("id", "secret", webhookSecret, "https://api.example.com", zap.NewNop())
	payload := []byte(`{"event_id":"evt_1","event_type":"payment.completed","reference_id":"of_ord_1","status":"completed","amount":15000}`)

	_, err := adapter.ParseWebhook(context.Background(), payload, "")

	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "SIGNATURE_ERROR", perr.Code)
}

func TestParseWebhookRejectsWrongSignature(t *testing.T) {
	adapter := NewOpenFinanceAdapter("id", "secret", webhookSecret, "https://api.example.com", zap.NewNop())
	payload := []byte(`{"event_id":"evt_1","event_type":"payment.completed","reference_id":"of_ord_1","status":"completed"}`)

	_, err := adapter.ParseWebhook(context.Background(), payload, signPayload("other_secret", payload))

	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "SIGNATURE_ERROR", perr.Code)
}

func TestParseWebhookAcceptsSignedDelivery(t *testing.T) {
	adapter := NewOpenFinanceAdapter("id", "secret", webhookSecret, "https://api.example.com", zap.NewNop())
	payload := []byte(`{"event_id":"evt_1","event_type":"payment.completed","reference_id":"of_ord_1","status":"completed","amount":15000}`)

	event, err := adapter.ParseWebhook(context.Background(), payload, signPayload(webhookSecret, payload))

	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.EventID)
	assert.Equal(t, "payment.completed", event.EventType)
	assert.Equal(t, "of_ord_1", event.ProviderOrderID)
	assert.Equal(t, "completed", event.RawStatus)
	assert.Equal(t, int64(15000), event.AmountCents)
}
