package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clinicpay/payment-service/internal/domain/model"
	domainRepo "github.com/clinicpay/payment-service/internal/domain/repository"
)

type customerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB, logger *zap.Logger) domainRepo.CustomerRepository {
	return &customerRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or updates the unified customer keyed by
// (merchant_id, email). Concurrent writers converge on one row with
// last-write-wins semantics.
func (r *customerRepository) Upsert(ctx context.Context, customer *model.Customer) (*model.Customer, error) {
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "merchant_id"}, {Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "phone", "document", "updated_at",
			}),
		}).
		Create(customer).Error

	if err != nil {
		r.logger.Error("Failed to upsert customer",
			zap.String("merchant_id", customer.MerchantID.String()),
			zap.String("email", customer.Email),
			zap.Error(err))
		return nil, fmt.Errorf("failed to upsert customer: %w", err)
	}

	// The upsert may have resolved to an existing row; read it back so the
	// caller always sees the persisted id.
	return r.GetByEmail(ctx, customer.MerchantID, customer.Email)
}

// GetByEmail retrieves a customer by merchant and email
func (r *customerRepository) GetByEmail(ctx context.Context, merchantID uuid.UUID, email string) (*model.Customer, error) {
	var customer model.Customer

	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND email = ?", merchantID, strings.ToLower(strings.TrimSpace(email))).
		First(&customer).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get customer by email",
			zap.String("merchant_id", merchantID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &customer, nil
}

// LinkProvider records the provider-side customer id for a unified customer.
// Re-linking the same (customer, provider, account) updates the stored id.
func (r *customerRepository) LinkProvider(ctx context.Context, link *model.CustomerProvider) (*model.CustomerProvider, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "customer_id"}, {Name: "provider"}, {Name: "account_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"provider_customer_id", "updated_at",
			}),
		}).
		Create(link).Error

	if err != nil {
		r.logger.Error("Failed to link provider customer",
			zap.String("customer_id", link.CustomerID.String()),
			zap.String("provider", link.Provider),
			zap.Error(err))
		return nil, fmt.Errorf("failed to link provider customer: %w", err)
	}

	return r.GetProviderLink(ctx, link.CustomerID, link.Provider, link.AccountID)
}

// GetProviderLink retrieves the provider link for a customer, or nil
func (r *customerRepository) GetProviderLink(ctx context.Context, customerID uuid.UUID, providerName string, accountID uuid.UUID) (*model.CustomerProvider, error) {
	var link model.CustomerProvider

	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND provider = ? AND account_id = ?", customerID, providerName, accountID).
		First(&link).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get provider link",
			zap.String("customer_id", customerID.String()),
			zap.String("provider", providerName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get provider link: %w", err)
	}

	return &link, nil
}
