package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/domain/model"
	"github.com/clinicpay/payment-service/internal/domain/provider"
	"github.com/clinicpay/payment-service/internal/domain/repository"
)

type statusFixture struct {
	service      *StatusService
	adapter      *mockAdapter
	transactions *mockTransactionRepo
	cache        *mockStatusCache
}

func newStatusFixture(withCache bool) *statusFixture {
	f := &statusFixture{
		adapter:      &mockAdapter{},
		transactions: &mockTransactionRepo{},
	}

	var cache repository.StatusCache
	if withCache {
		f.cache = &mockStatusCache{}
		cache = f.cache
	}

	f.service = NewStatusService(&staticResolver{adapter: f.adapter}, f.transactions, cache, zap.NewNop())
	return f
}

func pendingTransaction(orderID string) *model.PaymentTransaction {
	return &model.PaymentTransaction{
		ID:              uuid.New(),
		Provider:        "pagarme",
		ProviderOrderID: orderID,
		AmountCents:     15000,
		Currency:        "BRL",
		Installments:    1,
		StatusV2:        model.TransactionStatusProcessing,
	}
}

func TestStatusGetUnknownOrder(t *testing.T) {
	f := newStatusFixture(false)
	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_missing").Return(nil, nil)

	_, err := f.service.Get(context.Background(), "or_missing")

	cerr := checkoutError(t, err)
	assert.Equal(t, http.StatusNotFound, cerr.Status)
}

func TestStatusTerminalServedFromLedger(t *testing.T) {
	f := newStatusFixture(true)

	tx := pendingTransaction("or_123")
	tx.StatusV2 = model.TransactionStatusPaid
	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_123").Return(tx, nil)

	resp, err := f.service.Get(context.Background(), "or_123")

	require.NoError(t, err)
	assert.Equal(t, string(model.TransactionStatusPaid), resp.Normalized.Status)
	assert.Equal(t, int64(15000), resp.Normalized.AmountMinor)
	f.adapter.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
	f.cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestStatusCacheHitSkipsProvider(t *testing.T) {
	f := newStatusFixture(true)

	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_123").Return(pendingTransaction("or_123"), nil)
	f.cache.On("Get", mock.Anything, "or_123").Return(&repository.NormalizedStatus{
		Status:      string(provider.PaymentStatusProcessing),
		AmountMinor: 15000,
		Currency:    "BRL",
	}, nil)

	resp, err := f.service.Get(context.Background(), "or_123")

	require.NoError(t, err)
	assert.Equal(t, "processing", resp.Normalized.Status)
	f.adapter.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}

func TestStatusProviderFetchUpdatesLedgerAndCache(t *testing.T) {
	f := newStatusFixture(true)

	tx := pendingTransaction("or_123")
	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_123").Return(tx, nil)
	f.cache.On("Get", mock.Anything, "or_123").Return(nil, nil)

	// Provider reports a dialect status and no amount; the ledger fills the gap
	f.adapter.On("GetOrder", mock.Anything, "or_123").Return(&provider.OrderResult{
		ProviderOrderID: "or_123",
		RawStatus:       "approved",
	}, nil)

	f.transactions.On("UpdateStatus", mock.Anything, tx.ID, "approved", model.TransactionStatusPaid).Return(nil)
	f.cache.On("Set", mock.Anything, "or_123", mock.MatchedBy(func(s *repository.NormalizedStatus) bool {
		return s.Status == "paid" && s.AmountMinor == 15000 && s.Currency == "BRL"
	}), statusCacheTTL).Return(nil)

	resp, err := f.service.Get(context.Background(), "or_123")

	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Normalized.Status)
	assert.Equal(t, int64(15000), resp.Normalized.AmountMinor)
	f.transactions.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func TestStatusProviderFailureServesLedgerState(t *testing.T) {
	f := newStatusFixture(false)

	tx := pendingTransaction("or_123")
	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_123").Return(tx, nil)
	f.adapter.On("GetOrder", mock.Anything, "or_123").Return(nil, errors.New("provider timeout"))

	resp, err := f.service.Get(context.Background(), "or_123")

	require.NoError(t, err)
	assert.Equal(t, string(model.TransactionStatusProcessing), resp.Normalized.Status)
	f.transactions.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStatusWaitReturnsOnTerminal(t *testing.T) {
	f := newStatusFixture(false)

	tx := pendingTransaction("or_123")
	tx.StatusV2 = model.TransactionStatusFailed
	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_123").Return(tx, nil)

	resp, err := f.service.Wait(context.Background(), "or_123")

	require.NoError(t, err)
	assert.Equal(t, string(model.TransactionStatusFailed), resp.Normalized.Status)
	f.transactions.AssertNumberOfCalls(t, "GetByProviderOrderID", 1)
}

func TestStatusWaitStopsOnAuthorized(t *testing.T) {
	f := newStatusFixture(false)

	// Capture is a merchant action; polling an authorized order forever
	// would burn the whole budget without observing a change
	tx := pendingTransaction("or_123")
	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_123").Return(tx, nil)
	f.adapter.On("GetOrder", mock.Anything, "or_123").Return(&provider.OrderResult{
		ProviderOrderID: "or_123",
		RawStatus:       "authorized",
	}, nil)
	f.transactions.On("UpdateStatus", mock.Anything, tx.ID, "authorized", model.TransactionStatusAuthorized).Return(nil)

	resp, err := f.service.Wait(context.Background(), "or_123")

	require.NoError(t, err)
	assert.Equal(t, "authorized", resp.Normalized.Status)
	f.transactions.AssertNumberOfCalls(t, "GetByProviderOrderID", 1)
}

func TestStatusWaitReturnsLastStateOnCancel(t *testing.T) {
	f := newStatusFixture(false)

	tx := pendingTransaction("or_123")
	f.transactions.On("GetByProviderOrderID", mock.Anything, "or_123").Return(tx, nil)
	f.adapter.On("GetOrder", mock.Anything, "or_123").Return(&provider.OrderResult{
		ProviderOrderID: "or_123",
		RawStatus:       "processing",
	}, nil)
	f.transactions.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := f.service.Wait(ctx, "or_123")

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, resp, "the last observed state is returned even on cancellation")
	assert.Equal(t, "processing", resp.Normalized.Status)
}
