package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the platform's unified, provider-agnostic buyer identity,
// keyed by (merchant_id, email). Only complete identities are persisted:
// name, email and phone must all be non-empty.
type Customer struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	MerchantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_customers_merchant_email,priority:1" json:"merchant_id"`
	Name       string    `gorm:"not null;size:255" json:"name"`
	Email      string    `gorm:"not null;size:255;uniqueIndex:ux_customers_merchant_email,priority:2" json:"email"`
	Phone      string    `gorm:"size:50" json:"phone"`
	Document   string    `gorm:"size:20" json:"document"`
	Metadata   JSONB     `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// IsComplete reports whether the buyer identity is complete enough to persist
func (c *Customer) IsComplete() bool {
	return c.Name != "" && c.Email != "" && c.Phone != ""
}

// CustomerProvider links a unified customer to a provider-side customer id.
// At most one row per (customer, provider, account).
type CustomerProvider struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	CustomerID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_customer_providers_key,priority:1" json:"customer_id"`
	Provider           string    `gorm:"not null;size:30;uniqueIndex:ux_customer_providers_key,priority:2" json:"provider"`
	AccountID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_customer_providers_key,priority:3" json:"account_id"`
	ProviderCustomerID string    `gorm:"not null;size:100;index" json:"provider_customer_id"`
	Metadata           JSONB     `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt          time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (CustomerProvider) TableName() string {
	return "customer_providers"
}
