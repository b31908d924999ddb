package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clinicpay/payment-service/internal/domain/model"
	domainRepo "github.com/clinicpay/payment-service/internal/domain/repository"
)

type webhookRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookRepository creates a new webhook repository
func NewWebhookRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WebhookRepository {
	return &webhookRepository{
		db:     db,
		logger: logger,
	}
}

// SaveEvent persists a new webhook event. Returns false when the event id was
// already stored, which is the dedupe signal for replayed deliveries.
func (r *webhookRepository) SaveEvent(ctx context.Context, providerName, eventID, eventType string, data model.JSONB, providerCreatedAt *time.Time) (bool, error) {
	event := &model.ProviderWebhookEvent{
		Provider:          providerName,
		EventID:           eventID,
		EventType:         eventType,
		Status:            model.WebhookStatusPending,
		Data:              data,
		ProviderCreatedAt: providerCreatedAt,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)

	if result.Error != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("provider", providerName),
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to save webhook event: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// GetEvent retrieves a webhook event by ID
func (r *webhookRepository) GetEvent(ctx context.Context, eventID string) (*model.ProviderWebhookEvent, error) {
	var event model.ProviderWebhookEvent

	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get webhook event",
			zap.String("event_id", eventID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return &event, nil
}

// MarkProcessed marks a webhook event as processed
func (r *webhookRepository) MarkProcessed(ctx context.Context, eventID string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.ProviderWebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":       model.WebhookStatusCompleted,
			"processed_at": &now,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as processed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook as processed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not found: %s", eventID)
	}

	return nil
}

// MarkFailed marks a webhook event as failed and schedules the next retry
func (r *webhookRepository) MarkFailed(ctx context.Context, eventID string, err error) error {
	var event model.ProviderWebhookEvent
	if dbErr := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error; dbErr != nil {
		r.logger.Error("Failed to get webhook event for failure update",
			zap.String("event_id", eventID),
			zap.Error(dbErr))
		return fmt.Errorf("failed to get webhook event: %w", dbErr)
	}

	// Exponential backoff: 10, 20, 40 minutes ... capped at 24 hours
	attempts := event.ProcessingAttempts + 1
	retryMinutes := 5 * (1 << attempts)
	if retryMinutes > 1440 {
		retryMinutes = 1440
	}
	nextRetry := time.Now().Add(time.Duration(retryMinutes) * time.Minute)

	errorMsg := err.Error()

	result := r.db.WithContext(ctx).
		Model(&model.ProviderWebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":              model.WebhookStatusFailed,
			"processing_attempts": attempts,
			"last_error":          &errorMsg,
			"next_retry_at":       &nextRetry,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as failed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook as failed: %w", result.Error)
	}

	return nil
}

// GetPendingEvents retrieves webhook events due for processing
func (r *webhookRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.ProviderWebhookEvent, error) {
	var events []*model.ProviderWebhookEvent

	query := r.db.WithContext(ctx).
		Where("status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)",
			model.WebhookStatusPending,
			model.WebhookStatusFailed,
			time.Now()).
		Order("created_at ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&events).Error
	if err != nil {
		r.logger.Error("Failed to get pending webhook events",
			zap.Error(err))
		return nil, fmt.Errorf("failed to get pending webhook events: %w", err)
	}

	return events, nil
}
