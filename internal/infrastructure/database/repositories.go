package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	adapterRepo "github.com/clinicpay/payment-service/internal/adapter/repository"
	"github.com/clinicpay/payment-service/internal/domain/repository"
)

// Repositories bundles every repository behind one constructor so wiring in
// main stays a single call.
type Repositories struct {
	Product      repository.ProductRepository
	Clinic       repository.ClinicRepository
	Offer        repository.OfferRepository
	Merchant     repository.MerchantRepository
	Customer     repository.CustomerRepository
	Subscription repository.CustomerSubscriptionRepository
	Transaction  repository.TransactionRepository
	Webhook      repository.WebhookRepository
}

// NewRepositories creates all repositories over one database handle
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Product:      adapterRepo.NewProductRepository(db, logger),
		Clinic:       adapterRepo.NewClinicRepository(db, logger),
		Offer:        adapterRepo.NewOfferRepository(db, logger),
		Merchant:     adapterRepo.NewMerchantRepository(db, logger),
		Customer:     adapterRepo.NewCustomerRepository(db, logger),
		Subscription: adapterRepo.NewCustomerSubscriptionRepository(db, logger),
		Transaction:  adapterRepo.NewTransactionRepository(db, logger),
		Webhook:      adapterRepo.NewWebhookRepository(db, logger),
	}
}
