package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicpay/payment-service/internal/domain/model"
)

// TransactionRepository is the ledger. One row per payment attempt, created
// right after provider order creation and updated in place. AppendStep merges
// a step-tagged payload into raw_payload so every provider interaction leaves
// an audit trace.
type TransactionRepository interface {
	Create(ctx context.Context, tx *model.PaymentTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentTransaction, error)
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*model.PaymentTransaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, legacyStatus string, status model.TransactionStatus) error
	AppendStep(ctx context.Context, id uuid.UUID, step string, payload map[string]interface{}) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]model.PaymentTransaction, int64, error)
}
