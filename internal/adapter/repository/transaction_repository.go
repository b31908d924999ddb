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

type transactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new payment transaction repository
func NewTransactionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new ledger row
func (r *transactionRepository) Create(ctx context.Context, tx *model.PaymentTransaction) error {
	err := r.db.WithContext(ctx).Create(tx).Error
	if err != nil {
		r.logger.Error("Failed to create payment transaction",
			zap.String("provider_order_id", tx.ProviderOrderID),
			zap.String("clinic_id", tx.ClinicID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by id
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentTransaction, error) {
	var tx model.PaymentTransaction

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tx).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment transaction",
			zap.String("transaction_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment transaction: %w", err)
	}

	return &tx, nil
}

// GetByProviderOrderID retrieves a transaction by the provider's order id
func (r *transactionRepository) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*model.PaymentTransaction, error) {
	var tx model.PaymentTransaction

	err := r.db.WithContext(ctx).
		Where("provider_order_id = ?", providerOrderID).
		First(&tx).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment transaction by order id",
			zap.String("provider_order_id", providerOrderID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment transaction: %w", err)
	}

	return &tx, nil
}

// UpdateStatus updates both the legacy status string and the typed status
func (r *transactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, legacyStatus string, status model.TransactionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.PaymentTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     legacyStatus,
			"status_v2":  status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to update transaction status",
			zap.String("transaction_id", id.String()),
			zap.String("status", string(status)),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update transaction status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("payment transaction not found: %s", id)
	}

	return nil
}

// AppendStep merges a step-tagged payload into raw_payload. Every provider
// interaction leaves a trace; nothing is overwritten.
func (r *transactionRepository) AppendStep(ctx context.Context, id uuid.UUID, step string, payload map[string]interface{}) error {
	tx, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tx == nil {
		return fmt.Errorf("payment transaction not found: %s", id)
	}

	entry := model.JSONB{
		step: map[string]interface{}{
			"at":      time.Now().Format(time.RFC3339),
			"payload": payload,
		},
	}

	result := r.db.WithContext(ctx).
		Model(&model.PaymentTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"raw_payload": tx.RawPayload.Merge(entry),
			"updated_at":  time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to append transaction step",
			zap.String("transaction_id", id.String()),
			zap.String("step", step),
			zap.Error(result.Error))
		return fmt.Errorf("failed to append transaction step: %w", result.Error)
	}

	return nil
}

// ListByMerchant returns a page of a merchant's transactions, newest first
func (r *transactionRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]model.PaymentTransaction, int64, error) {
	var txs []model.PaymentTransaction
	var total int64

	base := r.db.WithContext(ctx).
		Model(&model.PaymentTransaction{}).
		Where("merchant_id = ?", merchantID)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	err := base.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error

	if err != nil {
		r.logger.Error("Failed to list transactions",
			zap.String("merchant_id", merchantID.String()),
			zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txs, total, nil
}
