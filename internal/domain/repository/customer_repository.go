package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicpay/payment-service/internal/domain/model"
)

// CustomerRepository maintains the unified customer index. Upsert is keyed by
// (merchant_id, email): repeat purchases update the existing row, concurrent
// writers resolve last-write-wins at the database level.
type CustomerRepository interface {
	Upsert(ctx context.Context, customer *model.Customer) (*model.Customer, error)
	GetByEmail(ctx context.Context, merchantID uuid.UUID, email string) (*model.Customer, error)
	LinkProvider(ctx context.Context, link *model.CustomerProvider) (*model.CustomerProvider, error)
	GetProviderLink(ctx context.Context, customerID uuid.UUID, providerName string, accountID uuid.UUID) (*model.CustomerProvider, error)
}
