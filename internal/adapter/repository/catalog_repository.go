package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clinicpay/payment-service/internal/domain/model"
	domainRepo "github.com/clinicpay/payment-service/internal/domain/repository"
)

type productRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB, logger *zap.Logger) domainRepo.ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a product by id
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product

	err := r.db.WithContext(ctx).
		Where("id = ? AND active = true", id).
		First(&product).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get product",
			zap.String("product_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// GetBySlug retrieves a product by slug
func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	var product model.Product

	err := r.db.WithContext(ctx).
		Where("slug = ? AND active = true", slug).
		First(&product).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get product by slug",
			zap.String("slug", slug),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

type clinicRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewClinicRepository creates a new clinic repository
func NewClinicRepository(db *gorm.DB, logger *zap.Logger) domainRepo.ClinicRepository {
	return &clinicRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a clinic by id
func (r *clinicRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	var clinic model.Clinic

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&clinic).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get clinic",
			zap.String("clinic_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}

	return &clinic, nil
}

// GetBySlug retrieves a clinic by slug
func (r *clinicRepository) GetBySlug(ctx context.Context, slug string) (*model.Clinic, error) {
	var clinic model.Clinic

	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&clinic).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get clinic by slug",
			zap.String("slug", slug),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}

	return &clinic, nil
}

// ActiveClinicForDoctor returns the doctor's most recently linked active
// clinic, or nil when the doctor has none.
func (r *clinicRepository) ActiveClinicForDoctor(ctx context.Context, doctorID uuid.UUID) (*model.Clinic, error) {
	var link model.DoctorClinic

	err := r.db.WithContext(ctx).
		Preload("Clinic").
		Where("doctor_id = ? AND active = true", doctorID).
		Order("created_at DESC").
		First(&link).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to resolve doctor's active clinic",
			zap.String("doctor_id", doctorID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to resolve doctor clinic: %w", err)
	}

	return link.Clinic, nil
}

type offerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOfferRepository creates a new offer repository
func NewOfferRepository(db *gorm.DB, logger *zap.Logger) domainRepo.OfferRepository {
	return &offerRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an offer by id
func (r *offerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	var offer model.Offer

	err := r.db.WithContext(ctx).
		Preload("Prices").
		Where("id = ? AND active = true", id).
		First(&offer).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get offer",
			zap.String("offer_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}

	return &offer, nil
}

// GetActiveByProduct retrieves the newest active offer for a product
func (r *offerRepository) GetActiveByProduct(ctx context.Context, productID uuid.UUID) (*model.Offer, error) {
	var offer model.Offer

	err := r.db.WithContext(ctx).
		Preload("Prices").
		Where("product_id = ? AND active = true", productID).
		Order("created_at DESC").
		First(&offer).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get active offer for product",
			zap.String("product_id", productID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}

	return &offer, nil
}

// GetPrices retrieves the localized prices of an offer
func (r *offerRepository) GetPrices(ctx context.Context, offerID uuid.UUID) ([]model.OfferPrice, error) {
	var prices []model.OfferPrice

	err := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Find(&prices).Error

	if err != nil {
		r.logger.Error("Failed to get offer prices",
			zap.String("offer_id", offerID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get offer prices: %w", err)
	}

	return prices, nil
}
