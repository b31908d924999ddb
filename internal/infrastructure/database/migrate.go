package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clinicpay/payment-service/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	logger.Info("Creating PostgreSQL extensions...")
	if err := createExtensions(db); err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	// Custom types must exist before auto-migrate references them
	logger.Info("Creating custom PostgreSQL types...")
	if err := createCustomTypes(db); err != nil {
		logger.Error("Failed to create custom types", zap.Error(err))
		return err
	}

	logger.Info("Running GORM auto-migrations...")
	err := db.AutoMigrate(
		&model.Clinic{},
		&model.Doctor{},
		&model.DoctorClinic{},
		&model.Merchant{},
		&model.Product{},
		&model.Offer{},
		&model.OfferPrice{},
		&model.Customer{},
		&model.CustomerProvider{},
		&model.CustomerSubscription{},
		&model.PaymentTransaction{},
		&model.ProviderWebhookEvent{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	logger.Info("Creating custom indexes...")
	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func createExtensions(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return err
	}
	return nil
}

// createCustomTypes creates custom PostgreSQL enum types
func createCustomTypes(db *gorm.DB) error {
	types := map[string]string{
		"product_type":                 `CREATE TYPE product_type AS ENUM ('one_off', 'subscription')`,
		"customer_subscription_status": `CREATE TYPE customer_subscription_status AS ENUM ('trial', 'pending', 'active', 'past_due', 'canceled')`,
		"payment_transaction_status":   `CREATE TYPE payment_transaction_status AS ENUM ('processing', 'pending', 'authorized', 'paid', 'failed', 'canceled', 'refunded')`,
		"webhook_status":               `CREATE TYPE webhook_status AS ENUM ('pending', 'processing', 'completed', 'failed')`,
	}

	for name, createSQL := range types {
		var exists bool
		db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = ?)`, name).Scan(&exists)
		if !exists {
			if err := db.Exec(createSQL).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// createCustomIndexes creates indexes GORM does not handle automatically
func createCustomIndexes(db *gorm.DB) error {
	// One live subscription per customer/merchant/product/provider combination
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS unique_live_customer_subscription
		ON customer_subscriptions (customer_id, merchant_id, product_id, provider)
		WHERE status IN ('trial', 'active', 'past_due')`).Error; err != nil {
		return err
	}

	// Idempotent upsert key: provider subscription id, when present
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS unique_provider_subscription_id
		ON customer_subscriptions (provider_subscription_id)
		WHERE provider_subscription_id IS NOT NULL`).Error; err != nil {
		return err
	}

	// Webhook retry scan: unprocessed events by creation time
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed
		ON provider_webhook_events (created_at)
		WHERE status IN ('pending', 'failed')`).Error; err != nil {
		return err
	}

	// Status polling: ledger lookup by provider order id
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_payment_transactions_nonterminal
		ON payment_transactions (provider_order_id)
		WHERE status_v2 IN ('processing', 'pending', 'authorized')`).Error; err != nil {
		return err
	}

	return nil
}
