package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/config"
	domainErrors "github.com/clinicpay/payment-service/internal/domain/errors"
	"github.com/clinicpay/payment-service/internal/domain/model"
	"github.com/clinicpay/payment-service/internal/domain/provider"
	"github.com/clinicpay/payment-service/internal/domain/repository"
)

// WebhookService ingests provider webhooks: validate and normalize the
// payload, store it exactly once, then fold the status change into the
// ledger or the subscription row. In async mode ingestion only stores the
// event and the retry worker applies it.
type WebhookService struct {
	cfg              *config.Config
	adapters         AdapterResolver
	webhookRepo      repository.WebhookRepository
	transactionRepo  repository.TransactionRepository
	subscriptionRepo repository.CustomerSubscriptionRepository
	logger           *zap.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	cfg *config.Config,
	adapters AdapterResolver,
	webhookRepo repository.WebhookRepository,
	transactionRepo repository.TransactionRepository,
	subscriptionRepo repository.CustomerSubscriptionRepository,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		cfg:              cfg,
		adapters:         adapters,
		webhookRepo:      webhookRepo,
		transactionRepo:  transactionRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

// Ingest validates, stores and (in sync mode) applies one webhook delivery.
// Replayed deliveries are acknowledged without reprocessing.
func (s *WebhookService) Ingest(ctx context.Context, providerName string, payload []byte, signature string) error {
	adapter, err := s.adapters.GetProviderFromString(providerName)
	if err != nil {
		return domainErrors.NewNotFoundError(domainErrors.StepUnhandled, "unknown provider")
	}

	event, err := adapter.ParseWebhook(ctx, payload, signature)
	if err != nil {
		s.logger.Warn("Webhook rejected",
			zap.String("provider", adapter.Name()),
			zap.Error(err))
		return domainErrors.NewProviderError(domainErrors.StepUnhandled, "webhook validation failed", err)
	}

	var providerCreatedAt *time.Time
	if !event.CreatedAt.IsZero() {
		providerCreatedAt = &event.CreatedAt
	}

	fresh, err := s.webhookRepo.SaveEvent(ctx, adapter.Name(), event.EventID, event.EventType, storedEventData(event), providerCreatedAt)
	if err != nil {
		return domainErrors.NewInternalError(domainErrors.StepPersist, err)
	}
	if !fresh {
		s.logger.Info("Duplicate webhook delivery ignored",
			zap.String("provider", adapter.Name()),
			zap.String("event_id", event.EventID))
		return nil
	}

	if s.cfg.Service.AsyncWebhooks {
		return nil
	}

	if err := s.apply(ctx, adapter.Name(), event); err != nil {
		if markErr := s.webhookRepo.MarkFailed(ctx, event.EventID, err); markErr != nil {
			s.logger.Error("Failed to schedule webhook retry",
				zap.String("event_id", event.EventID),
				zap.Error(markErr))
		}
		// The event is stored; the retry worker will pick it up. The
		// provider gets a 200 so it does not hammer us in parallel.
		s.logger.Error("Webhook processing failed, queued for retry",
			zap.String("provider", adapter.Name()),
			zap.String("event_id", event.EventID),
			zap.Error(err))
		return nil
	}

	return s.webhookRepo.MarkProcessed(ctx, event.EventID)
}

// apply folds one normalized event into local state
func (s *WebhookService) apply(ctx context.Context, providerName string, event *provider.WebhookEvent) error {
	switch {
	case event.ProviderSubscriptionID != "":
		return s.applySubscriptionEvent(ctx, providerName, event)
	case event.ProviderOrderID != "":
		return s.applyOrderEvent(ctx, providerName, event)
	default:
		s.logger.Info("Webhook carries no order or subscription reference, ignoring",
			zap.String("provider", providerName),
			zap.String("event_type", event.EventType))
		return nil
	}
}

func (s *WebhookService) applyOrderEvent(ctx context.Context, providerName string, event *provider.WebhookEvent) error {
	tx, err := s.transactionRepo.GetByProviderOrderID(ctx, event.ProviderOrderID)
	if err != nil {
		return err
	}
	if tx == nil {
		// The webhook may have raced the checkout's ledger write; retry later
		return fmt.Errorf("no ledger row for provider order %s", event.ProviderOrderID)
	}

	normalized, known := provider.NormalizeOrderStatus(event.RawStatus)
	if !known {
		s.logger.Warn("Unknown order status in webhook",
			zap.String("provider", providerName),
			zap.String("raw_status", event.RawStatus),
			zap.String("event_type", event.EventType))
	}

	if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, event.RawStatus, statusFromPayment(normalized)); err != nil {
		return err
	}

	if err := s.transactionRepo.AppendStep(ctx, tx.ID, "webhook_"+event.EventType, map[string]interface{}{
		"event_id":   event.EventID,
		"raw_status": event.RawStatus,
	}); err != nil {
		s.logger.Warn("Webhook audit append failed",
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("Order status updated from webhook",
		zap.String("provider", providerName),
		zap.String("provider_order_id", event.ProviderOrderID),
		zap.String("raw_status", event.RawStatus),
		zap.String("status", string(normalized)))
	return nil
}

func (s *WebhookService) applySubscriptionEvent(ctx context.Context, providerName string, event *provider.WebhookEvent) error {
	normalized, known := provider.NormalizeSubscriptionStatus(event.RawStatus)
	if !known {
		s.logger.Warn("Unknown subscription status in webhook",
			zap.String("provider", providerName),
			zap.String("raw_status", event.RawStatus),
			zap.String("event_type", event.EventType))
	}

	update := repository.SubscriptionUpdate{
		Status: subscriptionStatusFromProvider(normalized),
		Metadata: model.JSONB{
			"last_webhook_event": event.EventType,
			"last_webhook_at":    time.Now().Format(time.RFC3339),
		},
	}

	if err := s.subscriptionRepo.UpdateStatus(ctx, event.ProviderSubscriptionID, update); err != nil {
		// The provider may deliver the first webhook before the creation
		// flow committed the row; retry later
		return err
	}

	s.logger.Info("Subscription status updated from webhook",
		zap.String("provider", providerName),
		zap.String("provider_subscription_id", event.ProviderSubscriptionID),
		zap.String("status", string(update.Status)))
	return nil
}

// ProcessPending applies stored events that are due: fresh events in async
// mode plus previously failed ones whose backoff elapsed. Returns how many
// events were applied successfully.
func (s *WebhookService) ProcessPending(ctx context.Context, limit int) (int, error) {
	events, err := s.webhookRepo.GetPendingEvents(ctx, limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, stored := range events {
		event := restoreEvent(stored)

		if err := s.apply(ctx, stored.Provider, event); err != nil {
			if markErr := s.webhookRepo.MarkFailed(ctx, stored.EventID, err); markErr != nil {
				s.logger.Error("Failed to schedule webhook retry",
					zap.String("event_id", stored.EventID),
					zap.Error(markErr))
			}
			continue
		}

		if err := s.webhookRepo.MarkProcessed(ctx, stored.EventID); err != nil {
			s.logger.Error("Failed to mark webhook processed",
				zap.String("event_id", stored.EventID),
				zap.Error(err))
			continue
		}
		processed++
	}

	return processed, nil
}

// RunRetryWorker drains due webhook events on a fixed interval until the
// context is canceled
func (s *WebhookService) RunRetryWorker(ctx context.Context, interval time.Duration, batchSize int) {
	s.logger.Info("Webhook retry worker started",
		zap.Duration("interval", interval),
		zap.Int("batch_size", batchSize))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Webhook retry worker stopped")
			return
		case <-ticker.C:
			processed, err := s.ProcessPending(ctx, batchSize)
			if err != nil {
				s.logger.Error("Webhook retry pass failed", zap.Error(err))
				continue
			}
			if processed > 0 {
				s.logger.Info("Webhook retry pass completed",
					zap.Int("processed", processed))
			}
		}
	}
}

// storedEventData flattens the normalized event into the stored payload so a
// retry can rebuild it without re-parsing the raw delivery
func storedEventData(event *provider.WebhookEvent) model.JSONB {
	return model.JSONB{
		"provider_order_id":        event.ProviderOrderID,
		"provider_charge_id":       event.ProviderChargeID,
		"provider_subscription_id": event.ProviderSubscriptionID,
		"raw_status":               event.RawStatus,
		"amount_cents":             event.AmountCents,
		"payload":                  event.Data,
	}
}

// restoreEvent rebuilds the normalized event from a stored row
func restoreEvent(stored *model.ProviderWebhookEvent) *provider.WebhookEvent {
	event := &provider.WebhookEvent{
		EventID:   stored.EventID,
		EventType: stored.EventType,
	}
	if stored.Data == nil {
		return event
	}

	if v, ok := stored.Data["provider_order_id"].(string); ok {
		event.ProviderOrderID = v
	}
	if v, ok := stored.Data["provider_charge_id"].(string); ok {
		event.ProviderChargeID = v
	}
	if v, ok := stored.Data["provider_subscription_id"].(string); ok {
		event.ProviderSubscriptionID = v
	}
	if v, ok := stored.Data["raw_status"].(string); ok {
		event.RawStatus = v
	}
	// JSONB round trips numbers as float64
	switch v := stored.Data["amount_cents"].(type) {
	case float64:
		event.AmountCents = int64(v)
	case int64:
		event.AmountCents = v
	}
	if v, ok := stored.Data["payload"].(map[string]interface{}); ok {
		event.Data = v
	}

	return event
}
