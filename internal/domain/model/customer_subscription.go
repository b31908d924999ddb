package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the lifecycle state of a recurring billing
// relationship
type SubscriptionStatus string

const (
	SubscriptionStatusTrial    SubscriptionStatus = "trial"
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = SubscriptionStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// CustomerSubscription represents a recurring billing relationship between a
// customer and a merchant's product. One active row per
// (customer, merchant, product, provider); persistence is upsert-by-
// provider-subscription-id, never append.
type CustomerSubscription struct {
	ID                     uuid.UUID          `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	CustomerID             uuid.UUID          `gorm:"type:uuid;not null;index" json:"customer_id"`
	MerchantID             uuid.UUID          `gorm:"type:uuid;not null;index" json:"merchant_id"`
	ProductID              uuid.UUID          `gorm:"type:uuid;not null;index" json:"product_id"`
	OfferID                *uuid.UUID         `gorm:"type:uuid;index" json:"offer_id,omitempty"`
	Provider               string             `gorm:"not null;size:30;index" json:"provider"`
	AccountID              uuid.UUID          `gorm:"type:uuid;not null" json:"account_id"`
	ProviderSubscriptionID *string            `gorm:"unique;size:100" json:"provider_subscription_id,omitempty"`
	Status                 SubscriptionStatus `gorm:"type:customer_subscription_status;not null;default:'pending';index" json:"status"`
	StartAt                time.Time          `gorm:"not null" json:"start_at"`
	TrialEndsAt            *time.Time         `json:"trial_ends_at,omitempty"`
	CurrentPeriodStart     *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time         `json:"current_period_end,omitempty"`
	CanceledAt             *time.Time         `json:"canceled_at,omitempty"`
	PriceCents             int64              `gorm:"not null" json:"price_cents"`
	Currency               string             `gorm:"size:3;default:'BRL'" json:"currency"`
	Metadata               JSONB              `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt              time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt              time.Time          `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (CustomerSubscription) TableName() string {
	return "customer_subscriptions"
}

// IsActive reports whether the subscription currently grants access
func (s *CustomerSubscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrial
}
