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

	"github.com/clinicpay/payment-service/internal/config"
	domainErrors "github.com/clinicpay/payment-service/internal/domain/errors"
	"github.com/clinicpay/payment-service/internal/domain/model"
	"github.com/clinicpay/payment-service/internal/domain/provider"
	"github.com/clinicpay/payment-service/internal/infrastructure/queue"
)

type checkoutFixture struct {
	service      *CheckoutService
	adapter      *mockAdapter
	products     *mockProductRepo
	clinics      *mockClinicRepo
	offers       *mockOfferRepo
	merchants    *mockMerchantRepo
	customers    *mockCustomerRepo
	subs         *mockSubscriptionRepo
	transactions *mockTransactionRepo
}

func newCheckoutFixture(cfg *config.Config) *checkoutFixture {
	if cfg == nil {
		cfg = &config.Config{}
	}

	f := &checkoutFixture{
		adapter:      &mockAdapter{},
		products:     &mockProductRepo{},
		clinics:      &mockClinicRepo{},
		offers:       &mockOfferRepo{},
		merchants:    &mockMerchantRepo{},
		customers:    &mockCustomerRepo{},
		subs:         &mockSubscriptionRepo{},
		transactions: &mockTransactionRepo{},
	}

	f.service = NewCheckoutService(cfg, &staticResolver{adapter: f.adapter},
		f.products, f.clinics, f.offers, f.merchants,
		f.customers, f.subs, f.transactions,
		queue.NewNopPublisher(zap.NewNop()), zap.NewNop())
	return f
}

func checkoutError(t *testing.T, err error) *domainErrors.CheckoutError {
	t.Helper()
	var cerr *domainErrors.CheckoutError
	require.True(t, errors.As(err, &cerr), "expected a step-tagged error, got %v", err)
	return cerr
}

func TestCheckoutValidationOrdering(t *testing.T) {
	tests := []struct {
		name    string
		req     *CheckoutRequest
		message string
	}{
		{
			name:    "missing product reference",
			req:     &CheckoutRequest{Method: MethodPix},
			message: "product_id or product_slug is required",
		},
		{
			name:    "unknown method",
			req:     &CheckoutRequest{ProductSlug: "consult", Method: "boleto"},
			message: "method must be card or pix",
		},
		{
			name:    "missing buyer",
			req:     &CheckoutRequest{ProductSlug: "consult", Method: MethodPix},
			message: "buyer name and email are required",
		},
		{
			name: "pix without document",
			req: &CheckoutRequest{
				ProductSlug: "consult",
				Method:      MethodPix,
				Buyer:       BuyerInput{Name: "Ana", Email: "ana@example.com"},
			},
			message: "pix payment requires the buyer document",
		},
		{
			name: "card without card data",
			req: &CheckoutRequest{
				ProductSlug: "consult",
				Method:      MethodCard,
				Buyer:       BuyerInput{Name: "Ana", Email: "ana@example.com"},
			},
			message: "card payment requires card data",
		},
		{
			name: "incomplete raw card",
			req: &CheckoutRequest{
				ProductSlug: "consult",
				Method:      MethodCard,
				Buyer:       BuyerInput{Name: "Ana", Email: "ana@example.com"},
				Card:        &CardInput{Number: "4111111111111111"},
			},
			message: "card requires token or complete card fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(nil)

			_, err := f.service.Create(context.Background(), tt.req)

			cerr := checkoutError(t, err)
			assert.Equal(t, domainErrors.StepInputValidation, cerr.Step)
			assert.Equal(t, http.StatusBadRequest, cerr.Status)
			assert.Equal(t, tt.message, cerr.Message)
			// Validation must reject before any side effect
			f.transactions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCheckoutClinicResolutionFailsFast(t *testing.T) {
	f := newCheckoutFixture(nil)

	// Product with neither a clinic link nor a doctor
	product := &model.Product{
		ID:         uuid.New(),
		Slug:       "orphan",
		Name:       "Orphan Product",
		Type:       model.ProductTypeOneOff,
		PriceCents: 10000,
		Currency:   "BRL",
	}
	f.products.On("GetBySlug", mock.Anything, "orphan").Return(product, nil)

	_, err := f.service.Create(context.Background(), &CheckoutRequest{
		ProductSlug: "orphan",
		Method:      MethodPix,
		Buyer:       BuyerInput{Name: "Ana", Email: "ana@example.com", Document: "12345678900"},
	})

	cerr := checkoutError(t, err)
	assert.Equal(t, domainErrors.StepResolveClinic, cerr.Step)
	assert.Equal(t, http.StatusNotFound, cerr.Status)
	// No ledger row and no provider call without a tenant
	f.transactions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.adapter.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCheckoutPixIncompleteBuyerSkipsCustomerIndex(t *testing.T) {
	f := newCheckoutFixture(nil)

	clinicID := uuid.New()
	product := &model.Product{
		ID:         uuid.New(),
		ClinicID:   &clinicID,
		Slug:       "consult",
		Name:       "Consultation",
		Type:       model.ProductTypeOneOff,
		PriceCents: 15000,
		Currency:   "BRL",
	}
	clinic := &model.Clinic{ID: clinicID, Slug: "clinic-a"}
	merchant := &model.Merchant{ID: uuid.New(), ClinicID: clinicID}

	f.products.On("GetBySlug", mock.Anything, "consult").Return(product, nil)
	f.clinics.On("GetByID", mock.Anything, clinicID).Return(clinic, nil)
	f.merchants.On("GetByClinic", mock.Anything, clinicID).Return(merchant, nil)
	f.offers.On("GetActiveByProduct", mock.Anything, product.ID).Return(nil, nil)

	f.adapter.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(&provider.CustomerResult{ProviderCustomerID: "cus_123"}, nil)
	f.adapter.On("CreateOrder", mock.Anything, mock.Anything).
		Return(&provider.OrderResult{ProviderOrderID: "or_123", Status: provider.PaymentStatusPending, RawStatus: "pending"}, nil)
	f.adapter.On("ChargePix", mock.Anything, mock.Anything).
		Return(&provider.PixChargeResult{
			ProviderChargeID: "ch_123",
			QRCode:           "000201qrdata",
			Status:           provider.PaymentStatusPending,
		}, nil)

	f.transactions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.transactions.On("AppendStep", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.transactions.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	// Buyer has no phone: identity is incomplete and must not be indexed
	resp, err := f.service.Create(context.Background(), &CheckoutRequest{
		ProductSlug: "consult",
		Method:      MethodPix,
		Buyer:       BuyerInput{Name: "Ana", Email: "ana@example.com", Document: "12345678900"},
	})

	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "or_123", resp.OrderID)
	assert.Equal(t, "pending", resp.Status)
	require.NotNil(t, resp.Pix)
	assert.Equal(t, "000201qrdata", resp.Pix.QRCode)

	f.customers.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestCheckoutCardTokenizeFallback(t *testing.T) {
	f := newCheckoutFixture(nil)

	clinicID := uuid.New()
	product := &model.Product{
		ID:         uuid.New(),
		ClinicID:   &clinicID,
		Slug:       "consult",
		Name:       "Consultation",
		Type:       model.ProductTypeOneOff,
		PriceCents: 15000,
		Currency:   "BRL",
	}
	clinic := &model.Clinic{ID: clinicID}
	merchant := &model.Merchant{ID: uuid.New(), ClinicID: clinicID}

	f.products.On("GetBySlug", mock.Anything, "consult").Return(product, nil)
	f.clinics.On("GetByID", mock.Anything, clinicID).Return(clinic, nil)
	f.merchants.On("GetByClinic", mock.Anything, clinicID).Return(merchant, nil)
	f.offers.On("GetActiveByProduct", mock.Anything, product.ID).Return(nil, nil)

	f.adapter.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(&provider.CustomerResult{ProviderCustomerID: "cus_123"}, nil)
	f.adapter.On("CreateOrder", mock.Anything, mock.Anything).
		Return(&provider.OrderResult{ProviderOrderID: "or_123", RawStatus: "pending"}, nil)
	f.adapter.On("TokenizeCard", mock.Anything, mock.Anything).
		Return("", errors.New("tokenizer unavailable"))
	// The charge must fall back to the raw card fields
	f.adapter.On("ChargeCard", mock.Anything, mock.MatchedBy(func(req *provider.CardChargeRequest) bool {
		return req.Token == "" && req.Card != nil && req.Card.Number == "4111111111111111"
	})).Return(&provider.ChargeResult{
		ProviderChargeID: "ch_123",
		Status:           provider.PaymentStatusPaid,
		RawStatus:        "paid",
	}, nil)

	f.transactions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.transactions.On("AppendStep", mock.Anything, mock.Anything, "tokenize_error", mock.Anything).Return(nil)
	f.transactions.On("AppendStep", mock.Anything, mock.Anything, "payment_card", mock.Anything).Return(nil)
	f.transactions.On("UpdateStatus", mock.Anything, mock.Anything, "paid", model.TransactionStatusPaid).Return(nil)

	resp, err := f.service.Create(context.Background(), &CheckoutRequest{
		ProductSlug: "consult",
		Method:      MethodCard,
		Buyer:       BuyerInput{Name: "Ana", Email: "ana@example.com"},
		Card: &CardInput{
			Number:     "4111111111111111",
			CVV:        "123",
			ExpMonth:   12,
			ExpYear:    2030,
			HolderName: "ANA SILVA",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)
	f.adapter.AssertExpectations(t)
	f.transactions.AssertExpectations(t)
}

func TestCheckoutCardChargeFailureMarksLedger(t *testing.T) {
	f := newCheckoutFixture(nil)

	clinicID := uuid.New()
	product := &model.Product{
		ID:         uuid.New(),
		ClinicID:   &clinicID,
		Slug:       "consult",
		Name:       "Consultation",
		Type:       model.ProductTypeOneOff,
		PriceCents: 15000,
		Currency:   "BRL",
	}
	f.products.On("GetBySlug", mock.Anything, "consult").Return(product, nil)
	f.clinics.On("GetByID", mock.Anything, clinicID).Return(&model.Clinic{ID: clinicID}, nil)
	f.merchants.On("GetByClinic", mock.Anything, clinicID).Return(&model.Merchant{ID: uuid.New(), ClinicID: clinicID}, nil)
	f.offers.On("GetActiveByProduct", mock.Anything, product.ID).Return(nil, nil)

	f.adapter.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(&provider.CustomerResult{ProviderCustomerID: "cus_123"}, nil)
	f.adapter.On("CreateOrder", mock.Anything, mock.Anything).
		Return(&provider.OrderResult{ProviderOrderID: "or_123"}, nil)
	f.adapter.On("ChargeCard", mock.Anything, mock.Anything).
		Return(nil, &provider.ProviderError{Code: "CARD_DECLINED", Message: "card declined"})

	f.transactions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.transactions.On("AppendStep", mock.Anything, mock.Anything, "payment_card_error", mock.Anything).Return(nil)
	f.transactions.On("UpdateStatus", mock.Anything, mock.Anything, "failed", model.TransactionStatusFailed).Return(nil)

	_, err := f.service.Create(context.Background(), &CheckoutRequest{
		ProductSlug: "consult",
		Method:      MethodCard,
		Buyer:       BuyerInput{Name: "Ana", Email: "ana@example.com"},
		Card:        &CardInput{Token: "tok_abc"},
	})

	cerr := checkoutError(t, err)
	assert.Equal(t, domainErrors.StepPaymentCard, cerr.Step)
	assert.Contains(t, cerr.Details, "card declined")
	f.transactions.AssertExpectations(t)
}

func TestCheckoutSubscriptionProductWritesTrialStub(t *testing.T) {
	f := newCheckoutFixture(nil)

	clinicID := uuid.New()
	product := &model.Product{
		ID:         uuid.New(),
		ClinicID:   &clinicID,
		Slug:       "membership",
		Name:       "Membership",
		Type:       model.ProductTypeSubscription,
		PriceCents: 9900,
		Currency:   "BRL",
	}
	offer := &model.Offer{ID: uuid.New(), ProductID: product.ID, PriceCents: 9900, Currency: "BRL", TrialDays: 7}
	merchant := &model.Merchant{ID: uuid.New(), ClinicID: clinicID}
	customer := &model.Customer{ID: uuid.New(), MerchantID: merchant.ID, Name: "Ana", Email: "ana@example.com", Phone: "11999990000"}

	f.products.On("GetBySlug", mock.Anything, "membership").Return(product, nil)
	f.clinics.On("GetByID", mock.Anything, clinicID).Return(&model.Clinic{ID: clinicID}, nil)
	f.merchants.On("GetByClinic", mock.Anything, clinicID).Return(merchant, nil)
	f.offers.On("GetActiveByProduct", mock.Anything, product.ID).Return(offer, nil)
	f.customers.On("Upsert", mock.Anything, mock.Anything).Return(customer, nil)
	f.customers.On("GetProviderLink", mock.Anything, customer.ID, "pagarme", merchant.ID).Return(nil, nil)
	f.customers.On("LinkProvider", mock.Anything, mock.Anything).Return(nil, nil)

	f.adapter.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(&provider.CustomerResult{ProviderCustomerID: "cus_123"}, nil)
	f.adapter.On("CreateOrder", mock.Anything, mock.Anything).
		Return(&provider.OrderResult{ProviderOrderID: "or_123"}, nil)
	f.adapter.On("ChargePix", mock.Anything, mock.Anything).
		Return(&provider.PixChargeResult{ProviderChargeID: "ch_1", Status: provider.PaymentStatusPending}, nil)

	f.subs.On("FindActive", mock.Anything, customer.ID, merchant.ID, product.ID, "pagarme").Return(nil, nil)
	f.subs.On("Upsert", mock.Anything, mock.MatchedBy(func(sub *model.CustomerSubscription) bool {
		return sub.Status == model.SubscriptionStatusTrial && sub.TrialEndsAt != nil
	})).Return(&model.CustomerSubscription{ID: uuid.New()}, nil)

	f.transactions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.transactions.On("AppendStep", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.transactions.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	_, err := f.service.Create(context.Background(), &CheckoutRequest{
		ProductSlug: "membership",
		Method:      MethodPix,
		Buyer:       BuyerInput{Name: "Ana", Email: "ana@example.com", Phone: "11999990000", Document: "12345678900"},
	})

	require.NoError(t, err)
	f.subs.AssertExpectations(t)
}

func TestCheckoutPixCarriesSplit(t *testing.T) {
	f := newCheckoutFixture(&config.Config{Service: config.ServiceConfig{
		EnableSplit:         true,
		PlatformRecipientID: "re_platform",
	}})

	clinicID := uuid.New()
	product := &model.Product{
		ID:         uuid.New(),
		ClinicID:   &clinicID,
		Slug:       "consult",
		Name:       "Consultation",
		Type:       model.ProductTypeOneOff,
		PriceCents: 15000,
		Currency:   "BRL",
	}
	merchant := &model.Merchant{ID: uuid.New(), ClinicID: clinicID, RecipientID: "re_merchant", SplitPercent: 80}

	f.products.On("GetBySlug", mock.Anything, "consult").Return(product, nil)
	f.clinics.On("GetByID", mock.Anything, clinicID).Return(&model.Clinic{ID: clinicID}, nil)
	f.merchants.On("GetByClinic", mock.Anything, clinicID).Return(merchant, nil)
	f.offers.On("GetActiveByProduct", mock.Anything, product.ID).Return(nil, nil)

	f.adapter.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(&provider.CustomerResult{ProviderCustomerID: "cus_123"}, nil)
	f.adapter.On("CreateOrder", mock.Anything, mock.Anything).
		Return(&provider.OrderResult{ProviderOrderID: "or_123", RawStatus: "pending"}, nil)
	// The pix charge must carry the same split the card path would
	f.adapter.On("ChargePix", mock.Anything, mock.MatchedBy(func(req *provider.PixChargeRequest) bool {
		return req.Split != nil &&
			req.Split.MerchantRecipientID == "re_merchant" &&
			req.Split.MerchantPercent == 80 &&
			req.Split.PlatformRecipientID == "re_platform"
	})).Return(&provider.PixChargeResult{
		ProviderChargeID: "ch_123",
		QRCode:           "000201qrdata",
		Status:           provider.PaymentStatusPending,
	}, nil)

	f.transactions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.transactions.On("AppendStep", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.transactions.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	resp, err := f.service.Create(context.Background(), &CheckoutRequest{
		ProductSlug: "consult",
		Method:      MethodPix,
		Buyer:       BuyerInput{Name: "Ana", Email: "ana@example.com", Document: "12345678900"},
	})

	require.NoError(t, err)
	assert.True(t, resp.OK)
	f.adapter.AssertExpectations(t)
}

func TestCheckoutSplitRule(t *testing.T) {
	merchant := &model.Merchant{RecipientID: "re_merchant", SplitPercent: 80}

	t.Run("split disabled", func(t *testing.T) {
		f := newCheckoutFixture(&config.Config{})
		assert.Nil(t, f.service.splitRule(merchant))
	})

	t.Run("missing platform recipient", func(t *testing.T) {
		f := newCheckoutFixture(&config.Config{Service: config.ServiceConfig{EnableSplit: true}})
		assert.Nil(t, f.service.splitRule(merchant))
	})

	t.Run("configured split", func(t *testing.T) {
		f := newCheckoutFixture(&config.Config{Service: config.ServiceConfig{
			EnableSplit:         true,
			PlatformRecipientID: "re_platform",
		}})

		rule := f.service.splitRule(merchant)
		require.NotNil(t, rule)
		assert.Equal(t, 80, rule.MerchantPercent)
		assert.Equal(t, 20, rule.PlatformPercent)
		assert.Equal(t, "re_merchant", rule.MerchantRecipientID)
		assert.Equal(t, "re_platform", rule.PlatformRecipientID)
	})

	t.Run("clinic recipient override", func(t *testing.T) {
		f := newCheckoutFixture(&config.Config{Service: config.ServiceConfig{
			EnableSplit:         true,
			PlatformRecipientID: "re_platform",
			ClinicRecipientID:   "re_staging",
		}})

		rule := f.service.splitRule(&model.Merchant{})
		require.NotNil(t, rule)
		assert.Equal(t, "re_staging", rule.MerchantRecipientID)
		assert.Equal(t, model.DefaultSplitPercent, rule.MerchantPercent)
	})

	t.Run("invalid merchant percent falls back to default", func(t *testing.T) {
		f := newCheckoutFixture(&config.Config{Service: config.ServiceConfig{
			EnableSplit:         true,
			PlatformRecipientID: "re_platform",
		}})

		rule := f.service.splitRule(&model.Merchant{RecipientID: "re_merchant", SplitPercent: 120})
		require.NotNil(t, rule)
		assert.Equal(t, model.DefaultSplitPercent, rule.MerchantPercent)
		assert.Equal(t, 100-model.DefaultSplitPercent, rule.PlatformPercent)
	})
}
