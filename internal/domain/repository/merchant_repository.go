package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicpay/payment-service/internal/domain/model"
)

// MerchantRepository manages clinic payout bindings. Provision creates a
// minimal merchant stub for a clinic with no payout configuration; one-off
// checkout uses it so a missing merchant never blocks a sale.
type MerchantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Merchant, error)
	GetByClinic(ctx context.Context, clinicID uuid.UUID) (*model.Merchant, error)
	Provision(ctx context.Context, clinicID uuid.UUID) (*model.Merchant, error)
}
