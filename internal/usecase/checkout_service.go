package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/config"
	domainErrors "github.com/clinicpay/payment-service/internal/domain/errors"
	"github.com/clinicpay/payment-service/internal/domain/model"
	"github.com/clinicpay/payment-service/internal/domain/provider"
	"github.com/clinicpay/payment-service/internal/domain/repository"
	"github.com/clinicpay/payment-service/internal/infrastructure/queue"
)

const pixExpiration = 30 * time.Minute

// PaymentMethod values accepted by checkout
const (
	MethodCard = "card"
	MethodPix  = "pix"
)

// AdapterResolver picks the provider adapter for a checkout
type AdapterResolver interface {
	Resolve(clinic *model.Clinic, product *model.Product) (provider.Adapter, error)
	GetProviderFromString(providerStr string) (provider.Adapter, error)
}

// CardInput carries card payment data. Token wins over raw fields when both
// are present.
type CardInput struct {
	Token      string `json:"token,omitempty"`
	Number     string `json:"number,omitempty"`
	CVV        string `json:"cvv,omitempty"`
	ExpMonth   int    `json:"exp_month,omitempty"`
	ExpYear    int    `json:"exp_year,omitempty"`
	HolderName string `json:"holder_name,omitempty"`
}

// BuyerInput is the buyer identity captured at checkout
type BuyerInput struct {
	Name     string            `json:"name"`
	Email    string            `json:"email" validate:"omitempty,email"`
	Phone    string            `json:"phone,omitempty"`
	Document string            `json:"document,omitempty"`
	Address  *provider.Address `json:"address,omitempty"`
}

// CheckoutRequest is the full checkout payload
type CheckoutRequest struct {
	ProductID    string         `json:"product_id,omitempty"`
	ProductSlug  string         `json:"product_slug,omitempty"`
	OfferID      string         `json:"offer_id,omitempty"`
	DoctorID     string         `json:"doctor_id,omitempty"`
	Method       string         `json:"method"`
	Buyer        BuyerInput     `json:"buyer"`
	Card         *CardInput     `json:"card,omitempty"`
	Installments int            `json:"installments,omitempty"`
	Items        []CheckoutItem `json:"items,omitempty"`
	Country      string         `json:"country,omitempty"`
	Metadata     model.JSONB    `json:"metadata,omitempty"`
}

// PixPayment is the client-facing Pix artifact set
type PixPayment struct {
	QRCode    string    `json:"qr_code"`
	QRCodeURL string    `json:"qr_code_url"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int64     `json:"expires_in"`
}

// CheckoutResponse is returned on a successful checkout
type CheckoutResponse struct {
	OK            bool        `json:"ok"`
	Provider      string      `json:"provider"`
	OrderID       string      `json:"order_id"`
	TransactionID string      `json:"transaction_id"`
	Status        string      `json:"status"`
	Pix           *PixPayment `json:"pix,omitempty"`
}

// CheckoutService orchestrates one-off checkout: resolve the catalog chain,
// upsert the buyer, create the provider order, write the ledger, charge.
type CheckoutService struct {
	cfg              *config.Config
	adapters         AdapterResolver
	productRepo      repository.ProductRepository
	clinicRepo       repository.ClinicRepository
	offerRepo        repository.OfferRepository
	merchantRepo     repository.MerchantRepository
	customerRepo     repository.CustomerRepository
	subscriptionRepo repository.CustomerSubscriptionRepository
	transactionRepo  repository.TransactionRepository
	publisher        queue.CustomerSyncPublisher
	logger           *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	cfg *config.Config,
	adapters AdapterResolver,
	productRepo repository.ProductRepository,
	clinicRepo repository.ClinicRepository,
	offerRepo repository.OfferRepository,
	merchantRepo repository.MerchantRepository,
	customerRepo repository.CustomerRepository,
	subscriptionRepo repository.CustomerSubscriptionRepository,
	transactionRepo repository.TransactionRepository,
	publisher queue.CustomerSyncPublisher,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		cfg:              cfg,
		adapters:         adapters,
		productRepo:      productRepo,
		clinicRepo:       clinicRepo,
		offerRepo:        offerRepo,
		merchantRepo:     merchantRepo,
		customerRepo:     customerRepo,
		subscriptionRepo: subscriptionRepo,
		transactionRepo:  transactionRepo,
		publisher:        publisher,
		logger:           logger,
	}
}

// validate runs every input precondition before any side effect. Order
// matters: a pix request without a document must fail here, never at the
// provider.
func (s *CheckoutService) validate(req *CheckoutRequest) *domainErrors.CheckoutError {
	if req.ProductID == "" && req.ProductSlug == "" {
		return domainErrors.NewValidationError(domainErrors.StepInputValidation, "product_id or product_slug is required")
	}
	if req.Method != MethodCard && req.Method != MethodPix {
		return domainErrors.NewValidationError(domainErrors.StepInputValidation, "method must be card or pix")
	}
	if req.Buyer.Name == "" || req.Buyer.Email == "" {
		return domainErrors.NewValidationError(domainErrors.StepInputValidation, "buyer name and email are required")
	}
	if req.Method == MethodPix && req.Buyer.Document == "" {
		return domainErrors.NewValidationError(domainErrors.StepInputValidation, "pix payment requires the buyer document")
	}
	if req.Method == MethodCard {
		if req.Card == nil {
			return domainErrors.NewValidationError(domainErrors.StepInputValidation, "card payment requires card data")
		}
		if req.Card.Token == "" {
			if req.Card.Number == "" || req.Card.CVV == "" || req.Card.HolderName == "" ||
				req.Card.ExpMonth == 0 || req.Card.ExpYear == 0 {
				return domainErrors.NewValidationError(domainErrors.StepInputValidation, "card requires token or complete card fields")
			}
		}
	}
	return nil
}

// Create runs the checkout flow end to end
func (s *CheckoutService) Create(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	if cerr := s.validate(req); cerr != nil {
		return nil, cerr
	}

	product, cerr := s.resolveProduct(ctx, req)
	if cerr != nil {
		return nil, cerr
	}

	clinic, cerr := s.resolveClinic(ctx, product, req)
	if cerr != nil {
		return nil, cerr
	}

	merchant, cerr := s.resolveMerchant(ctx, clinic)
	if cerr != nil {
		return nil, cerr
	}

	offer, cerr := s.resolveOffer(ctx, req, product)
	if cerr != nil {
		return nil, cerr
	}

	adapter, err := s.adapters.Resolve(clinic, product)
	if err != nil {
		return nil, domainErrors.NewInternalError(domainErrors.StepResolveProduct, err)
	}

	amountCents, currency, cerr := s.resolveAmount(req, offer, product, adapter.Name())
	if cerr != nil {
		return nil, cerr
	}

	customer := s.persistCustomer(ctx, merchant, req)
	providerCustomerID, cerr := s.resolveProviderCustomer(ctx, adapter, merchant, customer, req)
	if cerr != nil {
		return nil, cerr
	}

	order, err := adapter.CreateOrder(ctx, &provider.CreateOrderRequest{
		ProviderCustomerID: providerCustomerID,
		AmountCents:        amountCents,
		Currency:           currency,
		Items:              s.orderItems(req, product, amountCents),
		Description:        product.Name,
		Metadata:           req.Metadata,
	})
	if err != nil {
		return nil, domainErrors.NewProviderError(domainErrors.StepCreateOrder, "provider order creation failed", err)
	}

	tx := s.newLedgerRow(adapter.Name(), order, clinic, merchant, product, customer, req, amountCents, currency)
	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		// The provider order exists; without a ledger row there is nothing to
		// reconcile against, so this one is fatal.
		return nil, domainErrors.NewInternalError(domainErrors.StepPersist, err)
	}

	s.maybeCreateSubscriptionStub(ctx, product, offer, merchant, customer, adapter.Name(), amountCents, currency)

	switch req.Method {
	case MethodPix:
		return s.chargePix(ctx, adapter, tx, order, providerCustomerID, merchant, amountCents, req)
	default:
		return s.chargeCard(ctx, adapter, tx, order, providerCustomerID, merchant, amountCents, req)
	}
}

func (s *CheckoutService) resolveProduct(ctx context.Context, req *CheckoutRequest) (*model.Product, *domainErrors.CheckoutError) {
	var product *model.Product
	var err error

	if req.ProductID != "" {
		id, parseErr := uuid.Parse(req.ProductID)
		if parseErr != nil {
			return nil, domainErrors.NewValidationError(domainErrors.StepResolveProduct, "invalid product id")
		}
		product, err = s.productRepo.GetByID(ctx, id)
	} else {
		product, err = s.productRepo.GetBySlug(ctx, req.ProductSlug)
	}

	if err != nil {
		return nil, domainErrors.NewInternalError(domainErrors.StepResolveProduct, err)
	}
	if product == nil {
		return nil, domainErrors.NewNotFoundError(domainErrors.StepResolveProduct, "product not found")
	}
	return product, nil
}

// resolveClinic pins the transaction to a tenant. Direct link first, then the
// doctor's active clinic; a transaction without a clinic is never written.
func (s *CheckoutService) resolveClinic(ctx context.Context, product *model.Product, req *CheckoutRequest) (*model.Clinic, *domainErrors.CheckoutError) {
	if product.ClinicID != nil {
		clinic, err := s.clinicRepo.GetByID(ctx, *product.ClinicID)
		if err != nil {
			return nil, domainErrors.NewInternalError(domainErrors.StepResolveClinic, err)
		}
		if clinic != nil {
			return clinic, nil
		}
	}

	doctorID := product.DoctorID
	if doctorID == nil && req.DoctorID != "" {
		if parsed, err := uuid.Parse(req.DoctorID); err == nil {
			doctorID = &parsed
		}
	}
	if doctorID != nil {
		clinic, err := s.clinicRepo.ActiveClinicForDoctor(ctx, *doctorID)
		if err != nil {
			return nil, domainErrors.NewInternalError(domainErrors.StepResolveClinic, err)
		}
		if clinic != nil {
			return clinic, nil
		}
	}

	return nil, domainErrors.NewNotFoundError(domainErrors.StepResolveClinic, "unable to resolve a clinic for this product")
}

// resolveMerchant finds or provisions the clinic's merchant. One-off checkout
// tolerates a missing merchant by provisioning a stub; the sale is never
// blocked on payout configuration.
func (s *CheckoutService) resolveMerchant(ctx context.Context, clinic *model.Clinic) (*model.Merchant, *domainErrors.CheckoutError) {
	if clinic.MerchantID != nil {
		merchant, err := s.merchantRepo.GetByID(ctx, *clinic.MerchantID)
		if err != nil {
			return nil, domainErrors.NewInternalError(domainErrors.StepResolveMerchant, err)
		}
		if merchant != nil {
			return merchant, nil
		}
	}

	merchant, err := s.merchantRepo.GetByClinic(ctx, clinic.ID)
	if err != nil {
		return nil, domainErrors.NewInternalError(domainErrors.StepResolveMerchant, err)
	}
	if merchant != nil {
		return merchant, nil
	}

	merchant, err = s.merchantRepo.Provision(ctx, clinic.ID)
	if err != nil {
		return nil, domainErrors.NewInternalError(domainErrors.StepResolveMerchant, err)
	}
	return merchant, nil
}

func (s *CheckoutService) resolveOffer(ctx context.Context, req *CheckoutRequest, product *model.Product) (*model.Offer, *domainErrors.CheckoutError) {
	var offer *model.Offer
	var err error

	if req.OfferID != "" {
		id, parseErr := uuid.Parse(req.OfferID)
		if parseErr != nil {
			return nil, domainErrors.NewValidationError(domainErrors.StepResolveOffer, "invalid offer id")
		}
		offer, err = s.offerRepo.GetByID(ctx, id)
		if err != nil {
			return nil, domainErrors.NewInternalError(domainErrors.StepResolveOffer, err)
		}
		if offer == nil {
			return nil, domainErrors.NewNotFoundError(domainErrors.StepResolveOffer, "offer not found")
		}
	} else {
		offer, err = s.offerRepo.GetActiveByProduct(ctx, product.ID)
		if err != nil {
			return nil, domainErrors.NewInternalError(domainErrors.StepResolveOffer, err)
		}
	}

	if offer != nil && !offer.AllowsMethod(req.Method) {
		return nil, domainErrors.NewValidationError(domainErrors.StepResolveOffer, "offer does not allow this payment method")
	}
	return offer, nil
}

func (s *CheckoutService) resolveAmount(req *CheckoutRequest, offer *model.Offer, product *model.Product, providerName string) (int64, string, *domainErrors.CheckoutError) {
	if len(req.Items) > 0 {
		amount, err := ComputeAmountCents(req.Items)
		if err != nil {
			return 0, "", domainErrors.NewValidationError(domainErrors.StepResolvePrice, err.Error())
		}
		currency := product.Currency
		if offer != nil && offer.Currency != "" {
			currency = offer.Currency
		}
		return amount, currency, nil
	}

	amount, currency := ResolveUnitAmount(offer, product, req.Country, providerName)
	if amount <= 0 {
		return 0, "", domainErrors.NewValidationError(domainErrors.StepResolvePrice, "unable to resolve a positive amount")
	}
	return amount, currency, nil
}

// persistCustomer writes the unified customer when the identity is complete
// and publishes the sync message. Both are best-effort: checkout proceeds
// without a customer row.
func (s *CheckoutService) persistCustomer(ctx context.Context, merchant *model.Merchant, req *CheckoutRequest) *model.Customer {
	candidate := &model.Customer{
		MerchantID: merchant.ID,
		Name:       req.Buyer.Name,
		Email:      req.Buyer.Email,
		Phone:      req.Buyer.Phone,
		Document:   req.Buyer.Document,
	}
	if !candidate.IsComplete() {
		s.logger.Debug("Skipping incomplete buyer identity",
			zap.String("merchant_id", merchant.ID.String()))
		return nil
	}

	customer, err := s.customerRepo.Upsert(ctx, candidate)
	if err != nil {
		s.logger.Warn("Customer upsert failed, continuing checkout",
			zap.String("merchant_id", merchant.ID.String()),
			zap.Error(err))
		return nil
	}

	if err := s.publisher.PublishCustomerSync(ctx, &queue.CustomerSyncMessage{
		MerchantID: merchant.ID.String(),
		Name:       customer.Name,
		Email:      customer.Email,
		Phone:      customer.Phone,
		Document:   customer.Document,
		Source:     "checkout",
	}); err != nil {
		s.logger.Warn("Customer sync publish failed",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err))
	}

	return customer
}

// resolveProviderCustomer reuses a stored provider link when possible and
// otherwise creates the provider-side customer.
func (s *CheckoutService) resolveProviderCustomer(ctx context.Context, adapter provider.Adapter, merchant *model.Merchant, customer *model.Customer, req *CheckoutRequest) (string, *domainErrors.CheckoutError) {
	if customer != nil {
		link, err := s.customerRepo.GetProviderLink(ctx, customer.ID, adapter.Name(), merchant.ID)
		if err == nil && link != nil {
			return link.ProviderCustomerID, nil
		}
	}

	result, err := adapter.CreateCustomer(ctx, &provider.CreateCustomerRequest{
		Name:     req.Buyer.Name,
		Email:    req.Buyer.Email,
		Phone:    req.Buyer.Phone,
		Document: req.Buyer.Document,
		Address:  req.Buyer.Address,
	})
	if err != nil {
		return "", domainErrors.NewProviderError(domainErrors.StepCreateCustomer, "provider customer creation failed", err)
	}

	if customer != nil {
		if _, err := s.customerRepo.LinkProvider(ctx, &model.CustomerProvider{
			CustomerID:         customer.ID,
			Provider:           adapter.Name(),
			AccountID:          merchant.ID,
			ProviderCustomerID: result.ProviderCustomerID,
		}); err != nil {
			s.logger.Warn("Provider link persist failed",
				zap.String("customer_id", customer.ID.String()),
				zap.Error(err))
		}
	}

	return result.ProviderCustomerID, nil
}

func (s *CheckoutService) orderItems(req *CheckoutRequest, product *model.Product, amountCents int64) []provider.OrderItem {
	if len(req.Items) == 0 {
		return []provider.OrderItem{{
			SKU:        product.Slug,
			Name:       product.Name,
			Quantity:   1,
			UnitAmount: amountCents,
		}}
	}

	items := make([]provider.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		unit := item.UnitPriceCents
		if unit == 0 {
			if parsed, err := ComputeAmountCents([]CheckoutItem{{Quantity: 1, UnitPrice: item.UnitPrice}}); err == nil {
				unit = parsed
			}
		}
		items = append(items, provider.OrderItem{
			SKU:        item.SKU,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitAmount: unit,
		})
	}
	return items
}

func (s *CheckoutService) newLedgerRow(providerName string, order *provider.OrderResult, clinic *model.Clinic, merchant *model.Merchant, product *model.Product, customer *model.Customer, req *CheckoutRequest, amountCents int64, currency string) *model.PaymentTransaction {
	tx := &model.PaymentTransaction{
		Provider:          providerName,
		ProviderV2:        providerName,
		RoutedProvider:    providerName,
		ProviderOrderID:   order.ProviderOrderID,
		ClinicID:          clinic.ID,
		MerchantID:        &merchant.ID,
		ProductID:         &product.ID,
		DoctorID:          product.DoctorID,
		AmountCents:       amountCents,
		Currency:          currency,
		Installments:      maxInstallments(req.Installments),
		PaymentMethodType: req.Method,
		Status:            string(model.TransactionStatusProcessing),
		StatusV2:          model.TransactionStatusProcessing,
		ClientName:        req.Buyer.Name,
		ClientEmail:       req.Buyer.Email,
		RawPayload: model.JSONB{
			"create_order": map[string]interface{}{
				"at":      time.Now().Format(time.RFC3339),
				"payload": order.ProviderData,
			},
		},
	}
	if customer != nil {
		tx.CustomerID = &customer.ID
	}
	return tx
}

// maybeCreateSubscriptionStub records recurring intent when a subscription
// product goes through one-off checkout. The stub starts in TRIAL when the
// offer grants trial days, PENDING otherwise; the subscription orchestrator
// later binds it to a provider subscription.
func (s *CheckoutService) maybeCreateSubscriptionStub(ctx context.Context, product *model.Product, offer *model.Offer, merchant *model.Merchant, customer *model.Customer, providerName string, amountCents int64, currency string) {
	if product.Type != model.ProductTypeSubscription || customer == nil {
		return
	}

	existing, err := s.subscriptionRepo.FindActive(ctx, customer.ID, merchant.ID, product.ID, providerName)
	if err != nil || existing != nil {
		return
	}

	stub := &model.CustomerSubscription{
		CustomerID: customer.ID,
		MerchantID: merchant.ID,
		ProductID:  product.ID,
		Provider:   providerName,
		AccountID:  merchant.ID,
		Status:     model.SubscriptionStatusPending,
		StartAt:    time.Now(),
		PriceCents: amountCents,
		Currency:   currency,
	}
	if offer != nil {
		stub.OfferID = &offer.ID
		if offer.TrialDays > 0 {
			stub.Status = model.SubscriptionStatusTrial
			trialEnd := time.Now().AddDate(0, 0, offer.TrialDays)
			stub.TrialEndsAt = &trialEnd
		}
	}

	if _, err := s.subscriptionRepo.Upsert(ctx, stub); err != nil {
		s.logger.Warn("Subscription stub persist failed",
			zap.String("customer_id", customer.ID.String()),
			zap.String("product_id", product.ID.String()),
			zap.Error(err))
	}
}

// chargeCard charges the order by card: tokenize first, fall back to the raw
// card fields when tokenization fails.
func (s *CheckoutService) chargeCard(ctx context.Context, adapter provider.Adapter, tx *model.PaymentTransaction, order *provider.OrderResult, providerCustomerID string, merchant *model.Merchant, amountCents int64, req *CheckoutRequest) (*CheckoutResponse, error) {
	token := req.Card.Token
	rawCard := &provider.CardData{
		Number:     req.Card.Number,
		CVV:        req.Card.CVV,
		ExpMonth:   req.Card.ExpMonth,
		ExpYear:    req.Card.ExpYear,
		HolderName: req.Card.HolderName,
	}

	if token == "" {
		tokenized, err := adapter.TokenizeCard(ctx, rawCard)
		if err != nil {
			s.logger.Warn("Card tokenization failed, falling back to raw card",
				zap.String("transaction_id", tx.ID.String()),
				zap.Error(err))
			s.appendStep(ctx, tx.ID, "tokenize_error", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			token = tokenized
		}
	}

	chargeReq := &provider.CardChargeRequest{
		ProviderOrderID:    order.ProviderOrderID,
		ProviderCustomerID: providerCustomerID,
		AmountCents:        amountCents,
		Installments:       maxInstallments(req.Installments),
		Split:              s.splitRule(merchant),
	}
	if token != "" {
		chargeReq.Token = token
	} else {
		chargeReq.Card = rawCard
	}

	result, err := adapter.ChargeCard(ctx, chargeReq)
	if err != nil {
		s.appendStep(ctx, tx.ID, "payment_card_error", map[string]interface{}{
			"error": err.Error(),
		})
		s.updateLedger(ctx, tx.ID, "failed", model.TransactionStatusFailed)
		return nil, domainErrors.NewProviderError(domainErrors.StepPaymentCard, "card charge failed", err)
	}

	s.appendStep(ctx, tx.ID, "payment_card", map[string]interface{}{
		"charge_id": result.ProviderChargeID,
		"status":    string(result.Status),
	})
	s.updateLedger(ctx, tx.ID, string(result.RawStatus), statusFromPayment(result.Status))

	return &CheckoutResponse{
		OK:            true,
		Provider:      adapter.Name(),
		OrderID:       order.ProviderOrderID,
		TransactionID: tx.ID.String(),
		Status:        string(result.Status),
	}, nil
}

// chargePix generates the Pix charge and returns the normalized QR artifacts.
// Pix charges split the same way card charges do.
func (s *CheckoutService) chargePix(ctx context.Context, adapter provider.Adapter, tx *model.PaymentTransaction, order *provider.OrderResult, providerCustomerID string, merchant *model.Merchant, amountCents int64, req *CheckoutRequest) (*CheckoutResponse, error) {
	expiresAt := time.Now().Add(pixExpiration)

	result, err := adapter.ChargePix(ctx, &provider.PixChargeRequest{
		ProviderOrderID:    order.ProviderOrderID,
		ProviderCustomerID: providerCustomerID,
		AmountCents:        amountCents,
		Document:           req.Buyer.Document,
		ExpiresAt:          expiresAt,
		Split:              s.splitRule(merchant),
	})
	if err != nil {
		s.appendStep(ctx, tx.ID, "payment_pix_error", map[string]interface{}{
			"error": err.Error(),
		})
		s.updateLedger(ctx, tx.ID, "failed", model.TransactionStatusFailed)
		return nil, domainErrors.NewProviderError(domainErrors.StepPaymentPix, "pix charge failed", err)
	}

	s.appendStep(ctx, tx.ID, "payment_pix", map[string]interface{}{
		"charge_id":  result.ProviderChargeID,
		"expires_at": result.ExpiresAt.Format(time.RFC3339),
	})
	s.updateLedger(ctx, tx.ID, string(result.Status), model.TransactionStatusPending)

	return &CheckoutResponse{
		OK:            true,
		Provider:      adapter.Name(),
		OrderID:       order.ProviderOrderID,
		TransactionID: tx.ID.String(),
		Status:        string(provider.PaymentStatusPending),
		Pix: &PixPayment{
			QRCode:    result.QRCode,
			QRCodeURL: result.QRCodeURL,
			ExpiresAt: result.ExpiresAt,
			ExpiresIn: result.ExpiresIn,
		},
	}, nil
}

// splitRule builds the one-off split when enabled and both recipients are
// known; otherwise the charge goes unsplit. The clinic_recipient_id override
// substitutes for a merchant that has not onboarded a recipient.
func (s *CheckoutService) splitRule(merchant *model.Merchant) *provider.SplitRule {
	if !s.cfg.Service.EnableSplit {
		return nil
	}
	platformRecipient := s.cfg.Service.PlatformRecipientID
	merchantRecipient := merchant.RecipientID
	if merchantRecipient == "" {
		merchantRecipient = s.cfg.Service.ClinicRecipientID
	}
	if merchantRecipient == "" || platformRecipient == "" {
		return nil
	}

	merchantPercent := merchant.SplitPercent
	if merchantPercent <= 0 || merchantPercent > 100 {
		merchantPercent = model.DefaultSplitPercent
	}

	return &provider.SplitRule{
		MerchantRecipientID: merchantRecipient,
		MerchantPercent:     merchantPercent,
		PlatformRecipientID: platformRecipient,
		PlatformPercent:     100 - merchantPercent,
	}
}

// appendStep and updateLedger are best-effort after a provider call has
// already happened; failures are logged, never surfaced.
func (s *CheckoutService) appendStep(ctx context.Context, txID uuid.UUID, step string, payload map[string]interface{}) {
	if err := s.transactionRepo.AppendStep(ctx, txID, step, payload); err != nil {
		s.logger.Error("Ledger step append failed",
			zap.String("transaction_id", txID.String()),
			zap.String("step", step),
			zap.Error(err))
	}
}

func (s *CheckoutService) updateLedger(ctx context.Context, txID uuid.UUID, legacyStatus string, status model.TransactionStatus) {
	if legacyStatus == "" {
		legacyStatus = string(status)
	}
	if err := s.transactionRepo.UpdateStatus(ctx, txID, legacyStatus, status); err != nil {
		s.logger.Error("Ledger status update failed",
			zap.String("transaction_id", txID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func maxInstallments(installments int) int {
	if installments < 1 {
		return 1
	}
	return installments
}

// statusFromPayment maps a normalized payment status onto the ledger status
func statusFromPayment(status provider.PaymentStatus) model.TransactionStatus {
	switch status {
	case provider.PaymentStatusPaid:
		return model.TransactionStatusPaid
	case provider.PaymentStatusAuthorized:
		return model.TransactionStatusAuthorized
	case provider.PaymentStatusFailed:
		return model.TransactionStatusFailed
	case provider.PaymentStatusCanceled:
		return model.TransactionStatusCanceled
	case provider.PaymentStatusRefunded:
		return model.TransactionStatusRefunded
	case provider.PaymentStatusProcessing:
		return model.TransactionStatusProcessing
	default:
		return model.TransactionStatusPending
	}
}
