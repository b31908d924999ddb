package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clinicpay/payment-service/internal/domain/model"
	domainRepo "github.com/clinicpay/payment-service/internal/domain/repository"
)

type merchantRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewMerchantRepository creates a new merchant repository
func NewMerchantRepository(db *gorm.DB, logger *zap.Logger) domainRepo.MerchantRepository {
	return &merchantRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a merchant by id
func (r *merchantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Merchant, error) {
	var merchant model.Merchant

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&merchant).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get merchant",
			zap.String("merchant_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}

	return &merchant, nil
}

// GetByClinic retrieves the merchant bound to a clinic
func (r *merchantRepository) GetByClinic(ctx context.Context, clinicID uuid.UUID) (*model.Merchant, error) {
	var merchant model.Merchant

	err := r.db.WithContext(ctx).
		Where("clinic_id = ?", clinicID).
		First(&merchant).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get merchant by clinic",
			zap.String("clinic_id", clinicID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}

	return &merchant, nil
}

// Provision creates a minimal merchant stub for a clinic. Safe under
// concurrency: the unique clinic_id constraint makes racing provisions
// converge on one row.
func (r *merchantRepository) Provision(ctx context.Context, clinicID uuid.UUID) (*model.Merchant, error) {
	merchant := &model.Merchant{
		ClinicID:     clinicID,
		SplitPercent: model.DefaultSplitPercent,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "clinic_id"}},
			DoNothing: true,
		}).
		Create(merchant).Error

	if err != nil {
		r.logger.Error("Failed to provision merchant",
			zap.String("clinic_id", clinicID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to provision merchant: %w", err)
	}

	provisioned, err := r.GetByClinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	if provisioned == nil {
		return nil, fmt.Errorf("merchant provisioning produced no row for clinic %s", clinicID)
	}

	r.logger.Info("Merchant provisioned for clinic",
		zap.String("clinic_id", clinicID.String()),
		zap.String("merchant_id", provisioned.ID.String()))

	return provisioned, nil
}
