package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicpay/payment-service/internal/domain/model"
)

// ProductRepository reads the product catalog
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)
}

// ClinicRepository resolves tenants. ActiveClinicForDoctor returns the most
// recently created active clinic link for a doctor, or nil when none exists.
type ClinicRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	GetBySlug(ctx context.Context, slug string) (*model.Clinic, error)
	ActiveClinicForDoctor(ctx context.Context, doctorID uuid.UUID) (*model.Clinic, error)
}

// OfferRepository reads pricing configuration
type OfferRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	GetActiveByProduct(ctx context.Context, productID uuid.UUID) (*model.Offer, error)
	GetPrices(ctx context.Context, offerID uuid.UUID) ([]model.OfferPrice, error)
}
