package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/clinicpay/payment-service/internal/domain/errors"
	"github.com/clinicpay/payment-service/internal/domain/model"
	"github.com/clinicpay/payment-service/internal/domain/provider"
	"github.com/clinicpay/payment-service/internal/domain/repository"
)

const (
	statusCacheTTL = 30 * time.Second

	// Long-poll backoff: linear ramp, capped
	waitBaseDelay = 1000 * time.Millisecond
	waitStepDelay = 500 * time.Millisecond
	waitMaxDelay  = 4000 * time.Millisecond
	waitMaxPolls  = 40
)

// StatusResponse is the client-facing view of an order: the normalized
// summary plus the provider's raw order state for callers that need it.
type StatusResponse struct {
	Normalized repository.NormalizedStatus `json:"normalized"`
	Order      map[string]interface{}      `json:"order,omitempty"`
}

// StatusService answers "did my payment go through" polls. Terminal ledger
// rows are served locally; everything else goes to the provider, updates the
// ledger and lands in a short-lived cache.
type StatusService struct {
	adapters        AdapterResolver
	transactionRepo repository.TransactionRepository
	cache           repository.StatusCache
	logger          *zap.Logger
}

// NewStatusService creates a new status service
func NewStatusService(
	adapters AdapterResolver,
	transactionRepo repository.TransactionRepository,
	cache repository.StatusCache,
	logger *zap.Logger,
) *StatusService {
	return &StatusService{
		adapters:        adapters,
		transactionRepo: transactionRepo,
		cache:           cache,
		logger:          logger,
	}
}

// Get returns the current status of an order by provider order id
func (s *StatusService) Get(ctx context.Context, providerOrderID string) (*StatusResponse, error) {
	tx, err := s.transactionRepo.GetByProviderOrderID(ctx, providerOrderID)
	if err != nil {
		return nil, domainErrors.NewInternalError(domainErrors.StepUnhandled, err)
	}
	if tx == nil {
		return nil, domainErrors.NewNotFoundError(domainErrors.StepUnhandled, "order not found")
	}

	// Terminal rows never change again; skip the provider round trip
	if tx.StatusV2.IsTerminal() {
		return &StatusResponse{Normalized: normalizedFromLedger(tx)}, nil
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, providerOrderID); err == nil && cached != nil {
			return &StatusResponse{Normalized: *cached}, nil
		}
	}

	adapter, err := s.adapters.GetProviderFromString(tx.Provider)
	if err != nil {
		return nil, domainErrors.NewInternalError(domainErrors.StepUnhandled, err)
	}

	order, err := adapter.GetOrder(ctx, providerOrderID)
	if err != nil {
		s.logger.Warn("Provider status fetch failed, serving ledger state",
			zap.String("provider", tx.Provider),
			zap.String("provider_order_id", providerOrderID),
			zap.Error(err))
		return &StatusResponse{Normalized: normalizedFromLedger(tx)}, nil
	}

	normalized, known := provider.NormalizeOrderStatus(order.RawStatus)
	if !known {
		s.logger.Warn("Unknown provider order status",
			zap.String("provider", tx.Provider),
			zap.String("raw_status", order.RawStatus))
	}

	if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, order.RawStatus, statusFromPayment(normalized)); err != nil {
		s.logger.Warn("Ledger status update failed",
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err))
	}

	amount := order.AmountCents
	if amount == 0 {
		amount = tx.AmountCents
	}
	currency := order.Currency
	if currency == "" {
		currency = tx.Currency
	}
	installments := order.Installments
	if installments == 0 {
		installments = tx.Installments
	}

	status := &repository.NormalizedStatus{
		Status:       string(normalized),
		AmountMinor:  amount,
		Currency:     currency,
		Installments: installments,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, providerOrderID, status, statusCacheTTL); err != nil {
			s.logger.Debug("Status cache write failed",
				zap.String("provider_order_id", providerOrderID),
				zap.Error(err))
		}
	}

	return &StatusResponse{
		Normalized: *status,
		Order:      order.ProviderData,
	}, nil
}

// Wait long-polls an order until it reaches a terminal status, the poll
// budget runs out or the context is canceled. The last observed state is
// always returned so the caller can keep polling.
func (s *StatusService) Wait(ctx context.Context, providerOrderID string) (*StatusResponse, error) {
	var last *StatusResponse

	for attempt := 0; attempt < waitMaxPolls; attempt++ {
		resp, err := s.Get(ctx, providerOrderID)
		if err != nil {
			return nil, err
		}
		last = resp

		if model.TransactionStatus(resp.Normalized.Status).IsTerminal() {
			return resp, nil
		}

		delay := waitBaseDelay + time.Duration(attempt)*waitStepDelay
		if delay > waitMaxDelay {
			delay = waitMaxDelay
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(delay):
		}
	}

	return last, nil
}

func normalizedFromLedger(tx *model.PaymentTransaction) repository.NormalizedStatus {
	return repository.NormalizedStatus{
		Status:       string(tx.StatusV2),
		AmountMinor:  tx.AmountCents,
		Currency:     tx.Currency,
		Installments: tx.Installments,
	}
}
