package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicpay/payment-service/internal/domain/model"
)

// SubscriptionUpdate is the partial update applied when a subscription row
// already exists: status, period dates and metadata only, never a
// destructive overwrite of unrelated fields.
type SubscriptionUpdate struct {
	Status             model.SubscriptionStatus
	TrialEndsAt        *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	Metadata           model.JSONB
}

// CustomerSubscriptionRepository persists recurring billing relationships.
// Upsert checks for an existing row by provider subscription id before
// inserting, so replays of the same provider subscription converge on one
// row.
type CustomerSubscriptionRepository interface {
	GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*model.CustomerSubscription, error)
	FindActive(ctx context.Context, customerID, merchantID, productID uuid.UUID, providerName string) (*model.CustomerSubscription, error)
	Upsert(ctx context.Context, sub *model.CustomerSubscription) (*model.CustomerSubscription, error)
	UpdateStatus(ctx context.Context, providerSubscriptionID string, update SubscriptionUpdate) error
	Cancel(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CustomerSubscription, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]model.CustomerSubscription, int64, error)
}
