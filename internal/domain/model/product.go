package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// ProductType distinguishes one-off purchases from recurring products
type ProductType string

const (
	ProductTypeOneOff       ProductType = "one_off"
	ProductTypeSubscription ProductType = "subscription"
)

// Scan implements sql.Scanner interface
func (p *ProductType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*p = ProductType(v)
	case []byte:
		*p = ProductType(v)
	default:
		*p = ProductTypeOneOff
	}
	return nil
}

// Value implements driver.Valuer interface
func (p ProductType) Value() (driver.Value, error) {
	return string(p), nil
}

// Product is something a clinic or doctor sells. ClinicID may be nil when the
// product hangs off a doctor; the tenant is then resolved via the doctor's
// active clinic.
type Product struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ClinicID      *uuid.UUID  `gorm:"type:uuid;index" json:"clinic_id,omitempty"`
	DoctorID      *uuid.UUID  `gorm:"type:uuid;index" json:"doctor_id,omitempty"`
	Slug          string      `gorm:"size:100;index" json:"slug"`
	Name          string      `gorm:"not null;size:255" json:"name"`
	Type          ProductType `gorm:"type:product_type;not null;default:'one_off'" json:"type"`
	PriceCents    int64       `gorm:"not null;default:0" json:"price_cents"`
	Currency      string      `gorm:"size:3;default:'BRL'" json:"currency"`
	Interval      string      `gorm:"size:20;default:'month'" json:"interval"`
	IntervalCount int         `gorm:"default:1" json:"interval_count"`
	Provider      string      `gorm:"size:30" json:"provider,omitempty"`
	// Predefined provider plan, billed against when planless mode is off
	ProviderPlanID string    `gorm:"size:100" json:"provider_plan_id,omitempty"`
	Active         bool      `gorm:"default:true" json:"active"`
	CreatedAt      time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"default:now()" json:"updated_at"`

	// Relations
	Clinic *Clinic `gorm:"foreignKey:ClinicID" json:"clinic,omitempty"`
	Doctor *Doctor `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

// TableName specifies the table name for GORM
func (Product) TableName() string {
	return "products"
}
