package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/config"
	"github.com/clinicpay/payment-service/internal/domain/model"
	"github.com/clinicpay/payment-service/internal/domain/provider"
	"github.com/clinicpay/payment-service/internal/domain/repository"
)

type webhookFixture struct {
	service      *WebhookService
	adapter      *mockAdapter
	webhooks     *mockWebhookRepo
	transactions *mockTransactionRepo
	subs         *mockSubscriptionRepo
}

func newWebhookFixture(cfg *config.Config) *webhookFixture {
	if cfg == nil {
		cfg = &config.Config{}
	}

	f := &webhookFixture{
		adapter:      &mockAdapter{},
		webhooks:     &mockWebhookRepo{},
		transactions: &mockTransactionRepo{},
		subs:         &mockSubscriptionRepo{},
	}

	f.service = NewWebhookService(cfg, &staticResolver{adapter: f.adapter},
		f.webhooks, f.transactions, f.subs, zap.NewNop())
	return f
}

// failingResolver rejects every provider lookup
type failingResolver struct{}

func (r *failingResolver) Resolve(clinic *model.Clinic, product *model.Product) (provider.Adapter, error) {
	return nil, errors.New("no adapter")
}

func (r *failingResolver) GetProviderFromString(providerStr string) (provider.Adapter, error) {
	return nil, errors.New("no adapter")
}

func TestWebhookUnknownProvider(t *testing.T) {
	service := NewWebhookService(&config.Config{}, &failingResolver{},
		&mockWebhookRepo{}, &mockTransactionRepo{}, &mockSubscriptionRepo{}, zap.NewNop())

	err := service.Ingest(context.Background(), "nonexistent", []byte(`{}`), "")

	cerr := checkoutError(t, err)
	assert.Equal(t, http.StatusNotFound, cerr.Status)
}

func TestWebhookValidationFailureIsRejected(t *testing.T) {
	f := newWebhookFixture(nil)
	f.adapter.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("signature mismatch"))

	err := f.service.Ingest(context.Background(), "pagarme", []byte(`{}`), "bad-sig")

	cerr := checkoutError(t, err)
	assert.Equal(t, http.StatusBadRequest, cerr.Status)
	// Invalid deliveries are never stored
	f.webhooks.AssertNotCalled(t, "SaveEvent",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookDuplicateDeliveryIgnored(t *testing.T) {
	f := newWebhookFixture(nil)

	f.adapter.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.WebhookEvent{
			EventID:         "evt_1",
			EventType:       "order.paid",
			ProviderOrderID: "or_123",
			RawStatus:       "paid",
		}, nil)
	f.webhooks.On("SaveEvent",
		mock.Anything, "pagarme", "evt_1", "order.paid", mock.Anything, mock.Anything).
		Return(false, nil)

	err := f.service.Ingest(context.Background(), "pagarme", []byte(`{}`), "sig")

	assert.NoError(t, err)
	f.transactions.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.webhooks.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestWebhookOrderEventUpdatesLedger(t *testing.T) {
	f := newWebhookFixture(nil)

	tx := &model.PaymentTransaction{ID: uuid.New(), ProviderOrderID: "or_123"}
	f.adapter.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.WebhookEvent{
			EventID:         "evt_1",
			EventType:       "order.paid",
			ProviderOrderID: "or_123",
			RawStatus:       "paid",
			CreatedAt:       time.Now(),
		}, nil)
	f.webhooks.On("SaveEvent",
		mock.Anything, "pagarme", "evt_1", "order.paid", mock.Anything, mock.Anything).
		Return(true, nil)
	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_123").Return(tx, nil)
	f.transactions.On("UpdateStatus", mock.Anything, tx.ID, "paid", model.TransactionStatusPaid).Return(nil)
	f.transactions.On("AppendStep", mock.Anything, tx.ID, "webhook_order.paid", mock.Anything).Return(nil)
	f.webhooks.On("MarkProcessed", mock.Anything, "evt_1").Return(nil)

	err := f.service.Ingest(context.Background(), "pagarme", []byte(`{}`), "sig")

	assert.NoError(t, err)
	f.transactions.AssertExpectations(t)
	f.webhooks.AssertExpectations(t)
}

func TestWebhookSubscriptionEventUpdatesStatus(t *testing.T) {
	f := newWebhookFixture(nil)

	f.adapter.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.WebhookEvent{
			EventID:                "evt_2",
			EventType:              "subscription.canceled",
			ProviderSubscriptionID: "sub_123",
			RawStatus:              "canceled",
		}, nil)
	f.webhooks.On("SaveEvent",
		mock.Anything, "pagarme", "evt_2", "subscription.canceled", mock.Anything, mock.Anything).
		Return(true, nil)
	f.subs.On("UpdateStatus", mock.Anything, "sub_123", mock.MatchedBy(func(u repository.SubscriptionUpdate) bool {
		return u.Status == model.SubscriptionStatusCanceled
	})).Return(nil)
	f.webhooks.On("MarkProcessed", mock.Anything, "evt_2").Return(nil)

	err := f.service.Ingest(context.Background(), "pagarme", []byte(`{}`), "sig")

	assert.NoError(t, err)
	f.subs.AssertExpectations(t)
}

func TestWebhookProcessingFailureQueuesRetry(t *testing.T) {
	f := newWebhookFixture(nil)

	f.adapter.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.WebhookEvent{
			EventID:         "evt_3",
			EventType:       "order.paid",
			ProviderOrderID: "or_raced",
			RawStatus:       "paid",
		}, nil)
	f.webhooks.On("SaveEvent",
		mock.Anything, "pagarme", "evt_3", "order.paid", mock.Anything, mock.Anything).
		Return(true, nil)
	// The webhook raced the checkout: no ledger row yet
	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_raced").Return(nil, nil)
	f.webhooks.On("MarkFailed", mock.Anything, "evt_3", mock.Anything).Return(nil)

	err := f.service.Ingest(context.Background(), "pagarme", []byte(`{}`), "sig")

	// The provider gets a 200; the retry worker owns the event now
	assert.NoError(t, err)
	f.webhooks.AssertCalled(t, "MarkFailed", mock.Anything, "evt_3", mock.Anything)
	f.webhooks.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestWebhookAsyncModeStoresWithoutApplying(t *testing.T) {
	f := newWebhookFixture(&config.Config{Service: config.ServiceConfig{AsyncWebhooks: true}})

	f.adapter.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.WebhookEvent{
			EventID:         "evt_4",
			EventType:       "order.paid",
			ProviderOrderID: "or_123",
			RawStatus:       "paid",
		}, nil)
	f.webhooks.On("SaveEvent",
		mock.Anything, "pagarme", "evt_4", "order.paid", mock.Anything, mock.Anything).
		Return(true, nil)

	err := f.service.Ingest(context.Background(), "pagarme", []byte(`{}`), "sig")

	assert.NoError(t, err)
	f.transactions.AssertNotCalled(t, "GetByProviderOrderID", mock.Anything, mock.Anything)
	f.webhooks.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestWebhookProcessPending(t *testing.T) {
	f := newWebhookFixture(nil)

	tx := &model.PaymentTransaction{ID: uuid.New(), ProviderOrderID: "or_ok"}
	events := []*model.ProviderWebhookEvent{
		{
			Provider:  "pagarme",
			EventID:   "evt_ok",
			EventType: "order.paid",
			Data: model.JSONB{
				"provider_order_id": "or_ok",
				"raw_status":        "paid",
			},
		},
		{
			Provider:  "pagarme",
			EventID:   "evt_raced",
			EventType: "order.paid",
			Data: model.JSONB{
				"provider_order_id": "or_missing",
				"raw_status":        "paid",
			},
		},
	}

	f.webhooks.On("GetPendingEvents", mock.Anything, 10).Return(events, nil)
	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_ok").Return(tx, nil)
	f.transactions.On("UpdateStatus", mock.Anything, tx.ID, "paid", model.TransactionStatusPaid).Return(nil)
	f.transactions.On("AppendStep", mock.Anything, tx.ID, mock.Anything, mock.Anything).Return(nil)
	f.webhooks.On("MarkProcessed", mock.Anything, "evt_ok").Return(nil)
	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_missing").Return(nil, nil)
	f.webhooks.On("MarkFailed", mock.Anything, "evt_raced", mock.Anything).Return(nil)

	processed, err := f.service.ProcessPending(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	f.webhooks.AssertExpectations(t)
}

func TestRestoreEventRoundTrip(t *testing.T) {
	event := &provider.WebhookEvent{
		EventID:                "evt_1",
		EventType:              "order.paid",
		ProviderOrderID:        "or_123",
		ProviderChargeID:       "ch_123",
		ProviderSubscriptionID: "sub_123",
		RawStatus:              "paid",
		AmountCents:            15000,
		Data:                   map[string]interface{}{"id": "or_123"},
	}

	stored := &model.ProviderWebhookEvent{
		EventID:   event.EventID,
		EventType: event.EventType,
		Data:      storedEventData(event),
	}
	// JSONB columns come back with numbers as float64
	stored.Data["amount_cents"] = float64(15000)

	restored := restoreEvent(stored)

	assert.Equal(t, event.EventID, restored.EventID)
	assert.Equal(t, event.EventType, restored.EventType)
	assert.Equal(t, event.ProviderOrderID, restored.ProviderOrderID)
	assert.Equal(t, event.ProviderChargeID, restored.ProviderChargeID)
	assert.Equal(t, event.ProviderSubscriptionID, restored.ProviderSubscriptionID)
	assert.Equal(t, event.RawStatus, restored.RawStatus)
	assert.Equal(t, event.AmountCents, restored.AmountCents)
	assert.Equal(t, event.Data, restored.Data)
}
