package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/clinicpay/payment-service/internal/domain/model"
	"github.com/clinicpay/payment-service/internal/domain/provider"
	"github.com/clinicpay/payment-service/internal/domain/repository"
)

type mockProductRepo struct{ mock.Mock }

func (m *mockProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	var p *model.Product
	if v := args.Get(0); v != nil {
		p = v.(*model.Product)
	}
	return p, args.Error(1)
}

func (m *mockProductRepo) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	args := m.Called(ctx, slug)
	var p *model.Product
	if v := args.Get(0); v != nil {
		p = v.(*model.Product)
	}
	return p, args.Error(1)
}

type mockClinicRepo struct{ mock.Mock }

func (m *mockClinicRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	args := m.Called(ctx, id)
	var c *model.Clinic
	if v := args.Get(0); v != nil {
		c = v.(*model.Clinic)
	}
	return c, args.Error(1)
}

func (m *mockClinicRepo) GetBySlug(ctx context.Context, slug string) (*model.Clinic, error) {
	args := m.Called(ctx, slug)
	var c *model.Clinic
	if v := args.Get(0); v != nil {
		c = v.(*model.Clinic)
	}
	return c, args.Error(1)
}

func (m *mockClinicRepo) ActiveClinicForDoctor(ctx context.Context, doctorID uuid.UUID) (*model.Clinic, error) {
	args := m.Called(ctx, doctorID)
	var c *model.Clinic
	if v := args.Get(0); v != nil {
		c = v.(*model.Clinic)
	}
	return c, args.Error(1)
}

type mockOfferRepo struct{ mock.Mock }

func (m *mockOfferRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	args := m.Called(ctx, id)
	var o *model.Offer
	if v := args.Get(0); v != nil {
		o = v.(*model.Offer)
	}
	return o, args.Error(1)
}

func (m *mockOfferRepo) GetActiveByProduct(ctx context.Context, productID uuid.UUID) (*model.Offer, error) {
	args := m.Called(ctx, productID)
	var o *model.Offer
	if v := args.Get(0); v != nil {
		o = v.(*model.Offer)
	}
	return o, args.Error(1)
}

func (m *mockOfferRepo) GetPrices(ctx context.Context, offerID uuid.UUID) ([]model.OfferPrice, error) {
	args := m.Called(ctx, offerID)
	var prices []model.OfferPrice
	if v := args.Get(0); v != nil {
		prices = v.([]model.OfferPrice)
	}
	return prices, args.Error(1)
}

type mockMerchantRepo struct{ mock.Mock }

func (m *mockMerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Merchant, error) {
	args := m.Called(ctx, id)
	var mc *model.Merchant
	if v := args.Get(0); v != nil {
		mc = v.(*model.Merchant)
	}
	return mc, args.Error(1)
}

func (m *mockMerchantRepo) GetByClinic(ctx context.Context, clinicID uuid.UUID) (*model.Merchant, error) {
	args := m.Called(ctx, clinicID)
	var mc *model.Merchant
	if v := args.Get(0); v != nil {
		mc = v.(*model.Merchant)
	}
	return mc, args.Error(1)
}

func (m *mockMerchantRepo) Provision(ctx context.Context, clinicID uuid.UUID) (*model.Merchant, error) {
	args := m.Called(ctx, clinicID)
	var mc *model.Merchant
	if v := args.Get(0); v != nil {
		mc = v.(*model.Merchant)
	}
	return mc, args.Error(1)
}

type mockCustomerRepo struct{ mock.Mock }

func (m *mockCustomerRepo) Upsert(ctx context.Context, customer *model.Customer) (*model.Customer, error) {
	args := m.Called(ctx, customer)
	var c *model.Customer
	if v := args.Get(0); v != nil {
		c = v.(*model.Customer)
	}
	return c, args.Error(1)
}

func (m *mockCustomerRepo) GetByEmail(ctx context.Context, merchantID uuid.UUID, email string) (*model.Customer, error) {
	args := m.Called(ctx, merchantID, email)
	var c *model.Customer
	if v := args.Get(0); v != nil {
		c = v.(*model.Customer)
	}
	return c, args.Error(1)
}

func (m *mockCustomerRepo) LinkProvider(ctx context.Context, link *model.CustomerProvider) (*model.CustomerProvider, error) {
	args := m.Called(ctx, link)
	var l *model.CustomerProvider
	if v := args.Get(0); v != nil {
		l = v.(*model.CustomerProvider)
	}
	return l, args.Error(1)
}

func (m *mockCustomerRepo) GetProviderLink(ctx context.Context, customerID uuid.UUID, providerName string, accountID uuid.UUID) (*model.CustomerProvider, error) {
	args := m.Called(ctx, customerID, providerName, accountID)
	var l *model.CustomerProvider
	if v := args.Get(0); v != nil {
		l = v.(*model.CustomerProvider)
	}
	return l, args.Error(1)
}

type mockSubscriptionRepo struct{ mock.Mock }

func (m *mockSubscriptionRepo) GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*model.CustomerSubscription, error) {
	args := m.Called(ctx, providerSubscriptionID)
	var s *model.CustomerSubscription
	if v := args.Get(0); v != nil {
		s = v.(*model.CustomerSubscription)
	}
	return s, args.Error(1)
}

func (m *mockSubscriptionRepo) FindActive(ctx context.Context, customerID, merchantID, productID uuid.UUID, providerName string) (*model.CustomerSubscription, error) {
	args := m.Called(ctx, customerID, merchantID, productID, providerName)
	var s *model.CustomerSubscription
	if v := args.Get(0); v != nil {
		s = v.(*model.CustomerSubscription)
	}
	return s, args.Error(1)
}

func (m *mockSubscriptionRepo) Upsert(ctx context.Context, sub *model.CustomerSubscription) (*model.CustomerSubscription, error) {
	args := m.Called(ctx, sub)
	var s *model.CustomerSubscription
	if v := args.Get(0); v != nil {
		s = v.(*model.CustomerSubscription)
	}
	return s, args.Error(1)
}

func (m *mockSubscriptionRepo) UpdateStatus(ctx context.Context, providerSubscriptionID string, update repository.SubscriptionUpdate) error {
	args := m.Called(ctx, providerSubscriptionID, update)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) Cancel(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.CustomerSubscription, error) {
	args := m.Called(ctx, id)
	var s *model.CustomerSubscription
	if v := args.Get(0); v != nil {
		s = v.(*model.CustomerSubscription)
	}
	return s, args.Error(1)
}

func (m *mockSubscriptionRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]model.CustomerSubscription, int64, error) {
	args := m.Called(ctx, merchantID, limit, offset)
	var subs []model.CustomerSubscription
	if v := args.Get(0); v != nil {
		subs = v.([]model.CustomerSubscription)
	}
	return subs, args.Get(1).(int64), args.Error(2)
}

type mockTransactionRepo struct{ mock.Mock }

func (m *mockTransactionRepo) Create(ctx context.Context, tx *model.PaymentTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentTransaction, error) {
	args := m.Called(ctx, id)
	var tx *model.PaymentTransaction
	if v := args.Get(0); v != nil {
		tx = v.(*model.PaymentTransaction)
	}
	return tx, args.Error(1)
}

func (m *mockTransactionRepo) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*model.PaymentTransaction, error) {
	args := m.Called(ctx, providerOrderID)
	var tx *model.PaymentTransaction
	if v := args.Get(0); v != nil {
		tx = v.(*model.PaymentTransaction)
	}
	return tx, args.Error(1)
}

func (m *mockTransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, legacyStatus string, status model.TransactionStatus) error {
	args := m.Called(ctx, id, legacyStatus, status)
	return args.Error(0)
}

func (m *mockTransactionRepo) AppendStep(ctx context.Context, id uuid.UUID, step string, payload map[string]interface{}) error {
	args := m.Called(ctx, id, step, payload)
	return args.Error(0)
}

func (m *mockTransactionRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]model.PaymentTransaction, int64, error) {
	args := m.Called(ctx, merchantID, limit, offset)
	var txs []model.PaymentTransaction
	if v := args.Get(0); v != nil {
		txs = v.([]model.PaymentTransaction)
	}
	return txs, args.Get(1).(int64), args.Error(2)
}

type mockWebhookRepo struct{ mock.Mock }

func (m *mockWebhookRepo) SaveEvent(ctx context.Context, providerName, eventID, eventType string, data model.JSONB, providerCreatedAt *time.Time) (bool, error) {
	args := m.Called(ctx, providerName, eventID, eventType, data, providerCreatedAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockWebhookRepo) GetEvent(ctx context.Context, eventID string) (*model.ProviderWebhookEvent, error) {
	args := m.Called(ctx, eventID)
	var e *model.ProviderWebhookEvent
	if v := args.Get(0); v != nil {
		e = v.(*model.ProviderWebhookEvent)
	}
	return e, args.Error(1)
}

func (m *mockWebhookRepo) MarkProcessed(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *mockWebhookRepo) MarkFailed(ctx context.Context, eventID string, err error) error {
	args := m.Called(ctx, eventID, err)
	return args.Error(0)
}

func (m *mockWebhookRepo) GetPendingEvents(ctx context.Context, limit int) ([]*model.ProviderWebhookEvent, error) {
	args := m.Called(ctx, limit)
	var events []*model.ProviderWebhookEvent
	if v := args.Get(0); v != nil {
		events = v.([]*model.ProviderWebhookEvent)
	}
	return events, args.Error(1)
}

type mockStatusCache struct{ mock.Mock }

func (m *mockStatusCache) Get(ctx context.Context, orderID string) (*repository.NormalizedStatus, error) {
	args := m.Called(ctx, orderID)
	var s *repository.NormalizedStatus
	if v := args.Get(0); v != nil {
		s = v.(*repository.NormalizedStatus)
	}
	return s, args.Error(1)
}

func (m *mockStatusCache) Set(ctx context.Context, orderID string, status *repository.NormalizedStatus, ttl time.Duration) error {
	args := m.Called(ctx, orderID, status, ttl)
	return args.Error(0)
}

type mockAdapter struct {
	mock.Mock
	name string
}

func (m *mockAdapter) Name() string {
	if m.name != "" {
		return m.name
	}
	return "pagarme"
}

func (m *mockAdapter) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (*provider.CustomerResult, error) {
	args := m.Called(ctx, req)
	var r *provider.CustomerResult
	if v := args.Get(0); v != nil {
		r = v.(*provider.CustomerResult)
	}
	return r, args.Error(1)
}

func (m *mockAdapter) CreateOrder(ctx context.Context, req *provider.CreateOrderRequest) (*provider.OrderResult, error) {
	args := m.Called(ctx, req)
	var r *provider.OrderResult
	if v := args.Get(0); v != nil {
		r = v.(*provider.OrderResult)
	}
	return r, args.Error(1)
}

func (m *mockAdapter) TokenizeCard(ctx context.Context, req *provider.CardData) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockAdapter) ChargeCard(ctx context.Context, req *provider.CardChargeRequest) (*provider.ChargeResult, error) {
	args := m.Called(ctx, req)
	var r *provider.ChargeResult
	if v := args.Get(0); v != nil {
		r = v.(*provider.ChargeResult)
	}
	return r, args.Error(1)
}

func (m *mockAdapter) ChargePix(ctx context.Context, req *provider.PixChargeRequest) (*provider.PixChargeResult, error) {
	args := m.Called(ctx, req)
	var r *provider.PixChargeResult
	if v := args.Get(0); v != nil {
		r = v.(*provider.PixChargeResult)
	}
	return r, args.Error(1)
}

func (m *mockAdapter) CreateSubscription(ctx context.Context, req *provider.CreateSubscriptionRequest) (*provider.SubscriptionResult, error) {
	args := m.Called(ctx, req)
	var r *provider.SubscriptionResult
	if v := args.Get(0); v != nil {
		r = v.(*provider.SubscriptionResult)
	}
	return r, args.Error(1)
}

func (m *mockAdapter) GetOrder(ctx context.Context, providerOrderID string) (*provider.OrderResult, error) {
	args := m.Called(ctx, providerOrderID)
	var r *provider.OrderResult
	if v := args.Get(0); v != nil {
		r = v.(*provider.OrderResult)
	}
	return r, args.Error(1)
}

func (m *mockAdapter) ParseWebhook(ctx context.Context, payload []byte, signature string) (*provider.WebhookEvent, error) {
	args := m.Called(ctx, payload, signature)
	var e *provider.WebhookEvent
	if v := args.Get(0); v != nil {
		e = v.(*provider.WebhookEvent)
	}
	return e, args.Error(1)
}

// staticResolver returns the same adapter for every request
type staticResolver struct {
	adapter provider.Adapter
}

func (r *staticResolver) Resolve(clinic *model.Clinic, product *model.Product) (provider.Adapter, error) {
	return r.adapter, nil
}

func (r *staticResolver) GetProviderFromString(providerStr string) (provider.Adapter, error) {
	return r.adapter, nil
}
