package pagarme

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

func testAdapter() *PagarmeAdapter {
	return NewPagarmeAdapter("sk_test", "pk_test", webhookSecret, zap.NewNop())
}

func TestParseWebhookRejectsUnsignedDelivery(t *testing.T) {
	adapter := testAdapter()
	payload := []byte(`{"id":"hook_1","type":"charge.paid","data":{"id":"ch_1","status":"paid","order":{"id":"or_1"}}}`)

	_, err := adapter.ParseWebhook(context.Background(), payload, "")

	require.Error(t, err)
	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "SIGNATURE_ERROR", perr.Code)
}

func TestParseWebhookRejectsTamperedPayload(t *testing.T) {
	adapter := testAdapter()
	payload := []byte(`{"id":"hook_1","type":"charge.paid","data":{"id":"ch_1","status":"pending","order":{"id":"or_1"}}}`)
	signature := signPayload(webhookSecret, payload)

	// Flip the status after signing: the signature no longer matches
	forged := []byte(`{"id":"hook_1","type":"charge.paid","data":{"id":"ch_1","status":"paid","order":{"id":"or_1"}}}`)

	_, err := adapter.ParseWebhook(context.Background(), forged, signature)

	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "SIGNATURE_ERROR", perr.Code)
}

func TestParseWebhookRejectsWithoutConfiguredSecret(t *testing.T) {
	adapter := NewPagarmeAdapter("sk_test", "pk_test", "", zap.NewNop())
	payload := []byte(`{"id":"hook_1","type":"order.paid","data":{"id":"or_1","status":"paid"}}`)

	_, err := adapter.ParseWebhook(context.Background(), payload, signPayload("anything", payload))

	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "SIGNATURE_ERROR", perr.Code)
}

func TestParseWebhookAcceptsSignedChargeEvent(t *testing.T) {
	adapter := testAdapter()
	payload := []byte(`{"id":"hook_1","type":"charge.paid","created_at":"2026-08-01T12:00:00Z","data":{"id":"ch_1","status":"paid","amount":15000,"order":{"id":"or_1"}}}`)

	event, err := adapter.ParseWebhook(context.Background(), payload, signPayload(webhookSecret, payload))

	require.NoError(t, err)
	assert.Equal(t, "hook_1", event.EventID)
	assert.Equal(t, "charge.paid", event.EventType)
	assert.Equal(t, "ch_1", event.ProviderChargeID)
	assert.Equal(t, "or_1", event.ProviderOrderID)
	assert.Equal(t, "paid", event.RawStatus)
	assert.Equal(t, int64(15000), event.AmountCents)
}

func TestParseWebhookAcceptsPrefixedSignature(t *testing.T) {
	adapter := testAdapter()
	payload := []byte(`{"id":"hook_2","type":"subscription.canceled","data":{"id":"sub_1","status":"canceled"}}`)

	event, err := adapter.ParseWebhook(context.Background(), payload, "sha256="+signPayload(webhookSecret, payload))

	require.NoError(t, err)
	assert.Equal(t, "sub_1", event.ProviderSubscriptionID)
	assert.Equal(t, "canceled", event.RawStatus)
}
