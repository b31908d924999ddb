package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clinicpay/payment-service/internal/domain/model"
	domainRepo "github.com/clinicpay/payment-service/internal/domain/repository"
)

type customerSubscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCustomerSubscriptionRepository creates a new customer subscription repository
func NewCustomerSubscriptionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.CustomerSubscriptionRepository {
	return &customerSubscriptionRepository{
		db:     db,
		logger: logger,
	}
}

// GetByProviderSubscriptionID retrieves a subscription by its provider id
func (r *customerSubscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*model.CustomerSubscription, error) {
	var sub model.CustomerSubscription

	err := r.db.WithContext(ctx).
		Where("provider_subscription_id = ?", providerSubscriptionID).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by provider id",
			zap.String("provider_subscription_id", providerSubscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// GetByID retrieves a subscription by id
func (r *customerSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CustomerSubscription, error) {
	var sub model.CustomerSubscription

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription",
			zap.String("subscription_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// FindActive returns the live subscription for the combination, or nil
func (r *customerSubscriptionRepository) FindActive(ctx context.Context, customerID, merchantID, productID uuid.UUID, providerName string) (*model.CustomerSubscription, error) {
	var sub model.CustomerSubscription

	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND merchant_id = ? AND product_id = ? AND provider = ?",
			customerID, merchantID, productID, providerName).
		Where("status IN ?", []model.SubscriptionStatus{
			model.SubscriptionStatusTrial,
			model.SubscriptionStatusActive,
			model.SubscriptionStatusPastDue,
		}).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to find active subscription",
			zap.String("customer_id", customerID.String()),
			zap.String("product_id", productID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}

	return &sub, nil
}

// Upsert converges on one row per provider subscription id: when a row with
// the same provider id exists it receives a partial update (status, dates,
// merged metadata), otherwise a new row is inserted.
func (r *customerSubscriptionRepository) Upsert(ctx context.Context, sub *model.CustomerSubscription) (*model.CustomerSubscription, error) {
	if sub.ProviderSubscriptionID != nil && *sub.ProviderSubscriptionID != "" {
		existing, err := r.GetByProviderSubscriptionID(ctx, *sub.ProviderSubscriptionID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			update := domainRepo.SubscriptionUpdate{
				Status:             sub.Status,
				TrialEndsAt:        sub.TrialEndsAt,
				CurrentPeriodStart: sub.CurrentPeriodStart,
				CurrentPeriodEnd:   sub.CurrentPeriodEnd,
				Metadata:           sub.Metadata,
			}
			if err := r.UpdateStatus(ctx, *sub.ProviderSubscriptionID, update); err != nil {
				return nil, err
			}
			return r.GetByProviderSubscriptionID(ctx, *sub.ProviderSubscriptionID)
		}
	}

	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		r.logger.Error("Failed to create subscription",
			zap.String("customer_id", sub.CustomerID.String()),
			zap.String("product_id", sub.ProductID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return sub, nil
}

// UpdateStatus applies a partial update to the row with the given provider
// subscription id. Nil date fields are left untouched; metadata is merged.
func (r *customerSubscriptionRepository) UpdateStatus(ctx context.Context, providerSubscriptionID string, update domainRepo.SubscriptionUpdate) error {
	updates := map[string]interface{}{
		"status":     update.Status,
		"updated_at": time.Now(),
	}
	if update.TrialEndsAt != nil {
		updates["trial_ends_at"] = update.TrialEndsAt
	}
	if update.CurrentPeriodStart != nil {
		updates["current_period_start"] = update.CurrentPeriodStart
	}
	if update.CurrentPeriodEnd != nil {
		updates["current_period_end"] = update.CurrentPeriodEnd
	}

	if len(update.Metadata) > 0 {
		existing, err := r.GetByProviderSubscriptionID(ctx, providerSubscriptionID)
		if err != nil {
			return err
		}
		if existing != nil {
			updates["metadata"] = existing.Metadata.Merge(update.Metadata)
		} else {
			updates["metadata"] = update.Metadata
		}
	}

	result := r.db.WithContext(ctx).
		Model(&model.CustomerSubscription{}).
		Where("provider_subscription_id = ?", providerSubscriptionID).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("Failed to update subscription status",
			zap.String("provider_subscription_id", providerSubscriptionID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %s", providerSubscriptionID)
	}

	return nil
}

// Cancel marks a subscription canceled and stamps the cancellation time
func (r *customerSubscriptionRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.CustomerSubscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.SubscriptionStatusCanceled,
			"canceled_at": &now,
			"updated_at":  now,
		})

	if result.Error != nil {
		r.logger.Error("Failed to cancel subscription",
			zap.String("subscription_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to cancel subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %s", id)
	}

	return nil
}

// ListByMerchant returns a page of a merchant's subscriptions, newest first
func (r *customerSubscriptionRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]model.CustomerSubscription, int64, error) {
	var subs []model.CustomerSubscription
	var total int64

	base := r.db.WithContext(ctx).
		Model(&model.CustomerSubscription{}).
		Where("merchant_id = ?", merchantID)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	err := base.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&subs).Error

	if err != nil {
		r.logger.Error("Failed to list subscriptions",
			zap.String("merchant_id", merchantID.String()),
			zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, total, nil
}
