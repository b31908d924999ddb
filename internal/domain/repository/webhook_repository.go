package repository

import (
	"context"
	"time"

	"github.com/clinicpay/payment-service/internal/domain/model"
)

// WebhookRepository stores incoming provider webhook events. SaveEvent
// returns false when the event id was already stored, which is the dedupe
// signal for replayed deliveries.
type WebhookRepository interface {
	SaveEvent(ctx context.Context, providerName, eventID, eventType string, data model.JSONB, providerCreatedAt *time.Time) (bool, error)
	GetEvent(ctx context.Context, eventID string) (*model.ProviderWebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID string, err error) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.ProviderWebhookEvent, error)
}
