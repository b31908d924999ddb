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

// SubscriptionRequest starts a recurring billing relationship
type SubscriptionRequest struct {
	ClinicID   string      `json:"clinic_id,omitempty"`
	ClinicSlug string      `json:"clinic_slug,omitempty"`
	OfferID    string      `json:"offer_id,omitempty"`
	ProductID  string      `json:"product_id,omitempty"`
	Method     string      `json:"method"`
	Buyer      BuyerInput  `json:"buyer"`
	Card       *CardInput  `json:"card,omitempty"`
	Country    string      `json:"country,omitempty"`
	Metadata   model.JSONB `json:"metadata,omitempty"`
}

// SubscriptionResponse is returned on a successful subscription creation
type SubscriptionResponse struct {
	OK                     bool       `json:"ok"`
	SubscriptionID         string     `json:"subscription_id"`
	ProviderSubscriptionID string     `json:"provider_subscription_id"`
	Provider               string     `json:"provider"`
	Status                 string     `json:"status"`
	TrialEndsAt            *time.Time `json:"trial_ends_at,omitempty"`
	CurrentPeriodEnd       *time.Time `json:"current_period_end,omitempty"`
}

// SubscriptionService orchestrates recurring billing: resolve the catalog
// chain, price the offer, create the provider subscription (planless ad-hoc
// pricing or a predefined plan) with split, and persist idempotently by
// provider subscription id.
type SubscriptionService struct {
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

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
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
) *SubscriptionService {
	return &SubscriptionService{
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

func (s *SubscriptionService) validate(req *SubscriptionRequest) *domainErrors.CheckoutError {
	if req.ClinicID == "" && req.ClinicSlug == "" {
		return domainErrors.NewValidationError(domainErrors.StepInputValidation, "clinic_id or clinic_slug is required")
	}
	if req.OfferID == "" && req.ProductID == "" {
		return domainErrors.NewValidationError(domainErrors.StepInputValidation, "offer_id or product_id is required")
	}
	if req.Method != MethodCard {
		return domainErrors.NewValidationError(domainErrors.StepInputValidation, "subscriptions require the card method")
	}
	// Recurring billing needs a complete identity up front
	if req.Buyer.Name == "" || req.Buyer.Email == "" || req.Buyer.Phone == "" {
		return domainErrors.NewValidationError(domainErrors.StepInputValidation, "buyer name, email and phone are required")
	}
	if req.Card == nil {
		return domainErrors.NewValidationError(domainErrors.StepInputValidation, "card data is required")
	}
	if req.Card.Token == "" {
		if req.Card.Number == "" || req.Card.CVV == "" || req.Card.HolderName == "" ||
			req.Card.ExpMonth == 0 || req.Card.ExpYear == 0 {
			return domainErrors.NewValidationError(domainErrors.StepInputValidation, "card requires token or complete card fields")
		}
	}
	return nil
}

// Create runs the subscription flow end to end
func (s *SubscriptionService) Create(ctx context.Context, req *SubscriptionRequest) (*SubscriptionResponse, error) {
	if cerr := s.validate(req); cerr != nil {
		return nil, cerr
	}

	clinic, cerr := s.resolveClinic(ctx, req)
	if cerr != nil {
		return nil, cerr
	}

	offer, product, cerr := s.resolveOfferAndProduct(ctx, req)
	if cerr != nil {
		return nil, cerr
	}

	if product.Type != model.ProductTypeSubscription {
		return nil, domainErrors.NewValidationError(domainErrors.StepResolveProduct, domainErrors.ErrProductNotSubscription.Error())
	}
	if offer != nil && !offer.AllowsMethod(req.Method) {
		return nil, domainErrors.NewValidationError(domainErrors.StepResolveOffer, domainErrors.ErrMethodNotAllowed.Error())
	}

	// Subscriptions never auto-provision a merchant: without a configured
	// payout there is nowhere for the recurring revenue to go.
	merchant, err := s.merchantRepo.GetByClinic(ctx, clinic.ID)
	if err != nil {
		return nil, domainErrors.NewInternalError(domainErrors.StepResolveMerchant, err)
	}
	if merchant == nil {
		return nil, domainErrors.NewNotFoundError(domainErrors.StepResolveMerchant, "clinic has no merchant configured")
	}
	if s.cfg.Service.EnableSplit && merchant.RecipientID == "" && s.cfg.Service.ClinicRecipientID == "" {
		return nil, domainErrors.NewValidationError(domainErrors.StepResolveMerchant, domainErrors.ErrMerchantNotConfigured.Error())
	}

	adapter, err := s.adapters.Resolve(clinic, product)
	if err != nil {
		return nil, domainErrors.NewInternalError(domainErrors.StepResolveProduct, err)
	}

	amountCents, currency := ResolveUnitAmount(offer, product, req.Country, adapter.Name())
	if amountCents <= 0 {
		return nil, domainErrors.NewValidationError(domainErrors.StepResolvePrice, domainErrors.ErrInvalidAmount.Error())
	}

	customer, cerr := s.persistCustomer(ctx, merchant, req)
	if cerr != nil {
		return nil, cerr
	}

	providerCustomerID, cerr := s.resolveProviderCustomer(ctx, adapter, merchant, customer, req)
	if cerr != nil {
		return nil, cerr
	}

	cardToken, rawCard := s.resolveCard(ctx, adapter, req)

	trialDays := 0
	if offer != nil {
		trialDays = offer.TrialDays
	}

	subReq := &provider.CreateSubscriptionRequest{
		ProviderCustomerID: providerCustomerID,
		UnitAmountCents:    amountCents,
		Currency:           currency,
		Interval:           product.Interval,
		IntervalCount:      product.IntervalCount,
		TrialDays:          trialDays,
		CardToken:          cardToken,
		Card:               rawCard,
		Split:              s.splitRule(merchant),
		Description:        product.Name,
		Metadata:           req.Metadata,
	}
	// Planless mode prices ad hoc; with it disabled the provider bills
	// against the product's predefined plan
	if !s.cfg.Service.UsePlanless {
		subReq.PlanID = product.ProviderPlanID
	}

	result, err := adapter.CreateSubscription(ctx, subReq)
	if err != nil && provider.IsRecipientNotFound(err) && s.cfg.Service.SplitFallback && subReq.Split != nil {
		s.logger.Warn("Split recipient rejected by provider, retrying without split",
			zap.String("clinic_id", clinic.ID.String()),
			zap.String("merchant_recipient", merchant.RecipientID),
			zap.Error(err))
		subReq.Split = nil
		result, err = adapter.CreateSubscription(ctx, subReq)
	}
	if err != nil {
		return nil, domainErrors.NewProviderError(domainErrors.StepCreateSub, "provider subscription creation failed", err)
	}

	sub, cerr := s.persistSubscription(ctx, customer, merchant, product, offer, adapter.Name(), result, amountCents, currency, req.Metadata)
	if cerr != nil {
		return nil, cerr
	}

	s.writeLedgerStub(ctx, clinic, merchant, product, customer, adapter.Name(), result, amountCents, currency, req)

	return &SubscriptionResponse{
		OK:                     true,
		SubscriptionID:         sub.ID.String(),
		ProviderSubscriptionID: result.ProviderSubscriptionID,
		Provider:               adapter.Name(),
		Status:                 string(sub.Status),
		TrialEndsAt:            sub.TrialEndsAt,
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
	}, nil
}

func (s *SubscriptionService) resolveClinic(ctx context.Context, req *SubscriptionRequest) (*model.Clinic, *domainErrors.CheckoutError) {
	var clinic *model.Clinic
	var err error

	if req.ClinicID != "" {
		id, parseErr := uuid.Parse(req.ClinicID)
		if parseErr != nil {
			return nil, domainErrors.NewValidationError(domainErrors.StepResolveClinic, "invalid clinic id")
		}
		clinic, err = s.clinicRepo.GetByID(ctx, id)
	} else {
		clinic, err = s.clinicRepo.GetBySlug(ctx, req.ClinicSlug)
	}

	if err != nil {
		return nil, domainErrors.NewInternalError(domainErrors.StepResolveClinic, err)
	}
	if clinic == nil {
		return nil, domainErrors.NewNotFoundError(domainErrors.StepResolveClinic, "clinic not found")
	}
	return clinic, nil
}

func (s *SubscriptionService) resolveOfferAndProduct(ctx context.Context, req *SubscriptionRequest) (*model.Offer, *model.Product, *domainErrors.CheckoutError) {
	if req.OfferID != "" {
		id, parseErr := uuid.Parse(req.OfferID)
		if parseErr != nil {
			return nil, nil, domainErrors.NewValidationError(domainErrors.StepResolveOffer, "invalid offer id")
		}
		offer, err := s.offerRepo.GetByID(ctx, id)
		if err != nil {
			return nil, nil, domainErrors.NewInternalError(domainErrors.StepResolveOffer, err)
		}
		if offer == nil {
			return nil, nil, domainErrors.NewNotFoundError(domainErrors.StepResolveOffer, "offer not found")
		}

		product, err := s.productRepo.GetByID(ctx, offer.ProductID)
		if err != nil {
			return nil, nil, domainErrors.NewInternalError(domainErrors.StepResolveProduct, err)
		}
		if product == nil {
			return nil, nil, domainErrors.NewNotFoundError(domainErrors.StepResolveProduct, "product not found")
		}
		return offer, product, nil
	}

	id, parseErr := uuid.Parse(req.ProductID)
	if parseErr != nil {
		return nil, nil, domainErrors.NewValidationError(domainErrors.StepResolveProduct, "invalid product id")
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, domainErrors.NewInternalError(domainErrors.StepResolveProduct, err)
	}
	if product == nil {
		return nil, nil, domainErrors.NewNotFoundError(domainErrors.StepResolveProduct, "product not found")
	}

	offer, err := s.offerRepo.GetActiveByProduct(ctx, product.ID)
	if err != nil {
		return nil, nil, domainErrors.NewInternalError(domainErrors.StepResolveOffer, err)
	}
	return offer, product, nil
}

// persistCustomer writes the unified customer. Unlike one-off checkout this
// is mandatory: a subscription without a local customer row cannot be
// reconciled later.
func (s *SubscriptionService) persistCustomer(ctx context.Context, merchant *model.Merchant, req *SubscriptionRequest) (*model.Customer, *domainErrors.CheckoutError) {
	customer, err := s.customerRepo.Upsert(ctx, &model.Customer{
		MerchantID: merchant.ID,
		Name:       req.Buyer.Name,
		Email:      req.Buyer.Email,
		Phone:      req.Buyer.Phone,
		Document:   req.Buyer.Document,
	})
	if err != nil {
		return nil, domainErrors.NewInternalError(domainErrors.StepPersist, err)
	}

	if err := s.publisher.PublishCustomerSync(ctx, &queue.CustomerSyncMessage{
		MerchantID: merchant.ID.String(),
		Name:       customer.Name,
		Email:      customer.Email,
		Phone:      customer.Phone,
		Document:   customer.Document,
		Source:     "subscription",
	}); err != nil {
		s.logger.Warn("Customer sync publish failed",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err))
	}

	return customer, nil
}

func (s *SubscriptionService) resolveProviderCustomer(ctx context.Context, adapter provider.Adapter, merchant *model.Merchant, customer *model.Customer, req *SubscriptionRequest) (string, *domainErrors.CheckoutError) {
	link, err := s.customerRepo.GetProviderLink(ctx, customer.ID, adapter.Name(), merchant.ID)
	if err == nil && link != nil {
		return link.ProviderCustomerID, nil
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

	return result.ProviderCustomerID, nil
}

// resolveCard tokenizes raw card data when possible, falling back to sending
// the raw fields with the subscription call
func (s *SubscriptionService) resolveCard(ctx context.Context, adapter provider.Adapter, req *SubscriptionRequest) (string, *provider.CardData) {
	if req.Card.Token != "" {
		return req.Card.Token, nil
	}

	rawCard := &provider.CardData{
		Number:     req.Card.Number,
		CVV:        req.Card.CVV,
		ExpMonth:   req.Card.ExpMonth,
		ExpYear:    req.Card.ExpYear,
		HolderName: req.Card.HolderName,
	}

	token, err := adapter.TokenizeCard(ctx, rawCard)
	if err != nil {
		s.logger.Warn("Card tokenization failed, sending raw card",
			zap.String("provider", adapter.Name()),
			zap.Error(err))
		return "", rawCard
	}
	return token, nil
}

func (s *SubscriptionService) splitRule(merchant *model.Merchant) *provider.SplitRule {
	if !s.cfg.Service.EnableSplit {
		return nil
	}
	platformRecipient := s.cfg.Service.PlatformRecipientID
	merchantRecipient := merchant.RecipientID
	if merchantRecipient == "" {
		// Staging override for merchants that have not onboarded a recipient
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

// persistSubscription converges on one row per provider subscription id.
// Trial offers start in trial with the trial end stamped even when the
// provider reports something else.
func (s *SubscriptionService) persistSubscription(ctx context.Context, customer *model.Customer, merchant *model.Merchant, product *model.Product, offer *model.Offer, providerName string, result *provider.SubscriptionResult, amountCents int64, currency string, metadata model.JSONB) (*model.CustomerSubscription, *domainErrors.CheckoutError) {
	status := subscriptionStatusFromProvider(result.Status)
	trialEndsAt := result.TrialEndsAt
	if offer != nil && offer.TrialDays > 0 {
		status = model.SubscriptionStatusTrial
		if trialEndsAt == nil {
			end := time.Now().AddDate(0, 0, offer.TrialDays)
			trialEndsAt = &end
		}
	}

	startAt := result.StartAt
	if startAt.IsZero() {
		startAt = time.Now()
	}

	providerSubID := result.ProviderSubscriptionID
	sub := &model.CustomerSubscription{
		CustomerID:             customer.ID,
		MerchantID:             merchant.ID,
		ProductID:              product.ID,
		Provider:               providerName,
		AccountID:              merchant.ID,
		ProviderSubscriptionID: &providerSubID,
		Status:                 status,
		StartAt:                startAt,
		TrialEndsAt:            trialEndsAt,
		CurrentPeriodStart:     result.CurrentPeriodStart,
		CurrentPeriodEnd:       result.CurrentPeriodEnd,
		PriceCents:             amountCents,
		Currency:               currency,
		Metadata:               metadata,
	}
	if offer != nil {
		sub.OfferID = &offer.ID
	}

	persisted, err := s.subscriptionRepo.Upsert(ctx, sub)
	if err != nil {
		// The provider subscription exists; surface the persistence failure
		// so the caller can reconcile instead of silently double-billing.
		return nil, domainErrors.NewInternalError(domainErrors.StepPersist, err)
	}

	return persisted, nil
}

// writeLedgerStub records the subscription creation in the payment ledger so
// the merchant's transaction history is complete. Best-effort.
func (s *SubscriptionService) writeLedgerStub(ctx context.Context, clinic *model.Clinic, merchant *model.Merchant, product *model.Product, customer *model.Customer, providerName string, result *provider.SubscriptionResult, amountCents int64, currency string, req *SubscriptionRequest) {
	tx := &model.PaymentTransaction{
		Provider:          providerName,
		ProviderV2:        providerName,
		RoutedProvider:    providerName,
		ProviderOrderID:   result.ProviderSubscriptionID,
		ClinicID:          clinic.ID,
		MerchantID:        &merchant.ID,
		ProductID:         &product.ID,
		CustomerID:        &customer.ID,
		AmountCents:       amountCents,
		Currency:          currency,
		Installments:      1,
		PaymentMethodType: MethodCard,
		Status:            result.RawStatus,
		StatusV2:          model.TransactionStatusProcessing,
		ClientName:        req.Buyer.Name,
		ClientEmail:       req.Buyer.Email,
		RawPayload: model.JSONB{
			"create_subscription": map[string]interface{}{
				"at":      time.Now().Format(time.RFC3339),
				"payload": result.ProviderData,
			},
		},
	}

	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		s.logger.Error("Subscription ledger write failed",
			zap.String("provider_subscription_id", result.ProviderSubscriptionID),
			zap.Error(err))
	}
}

// Cancel marks a subscription canceled
func (s *SubscriptionService) Cancel(ctx context.Context, id uuid.UUID) error {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub == nil {
		return domainErrors.ErrSubscriptionNotFound
	}
	if sub.Status == model.SubscriptionStatusCanceled {
		return nil
	}

	if err := s.subscriptionRepo.Cancel(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Subscription canceled",
		zap.String("subscription_id", id.String()),
		zap.String("provider", sub.Provider))
	return nil
}

// List returns a merchant's subscriptions, newest first
func (s *SubscriptionService) List(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]model.CustomerSubscription, int64, error) {
	if limit < 1 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	return s.subscriptionRepo.ListByMerchant(ctx, merchantID, limit, offset)
}

// subscriptionStatusFromProvider maps the provider enum onto the persistence enum
func subscriptionStatusFromProvider(status provider.SubscriptionStatus) model.SubscriptionStatus {
	switch status {
	case provider.SubscriptionStatusTrial:
		return model.SubscriptionStatusTrial
	case provider.SubscriptionStatusPending:
		return model.SubscriptionStatusPending
	case provider.SubscriptionStatusPastDue:
		return model.SubscriptionStatusPastDue
	case provider.SubscriptionStatusCanceled:
		return model.SubscriptionStatusCanceled
	default:
		return model.SubscriptionStatusActive
	}
}
