package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Offer is pricing configuration for a product. AllowedMethods is a
// comma-separated list ("card,pix"); empty means every method is allowed.
type Offer struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ProductID      uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Name           string    `gorm:"size:255" json:"name"`
	PriceCents     int64     `gorm:"not null;default:0" json:"price_cents"`
	Currency       string    `gorm:"size:3;default:'BRL'" json:"currency"`
	TrialDays      int       `gorm:"default:0" json:"trial_days"`
	AllowedMethods string    `gorm:"size:100" json:"allowed_methods"`
	Active         bool      `gorm:"default:true;index" json:"active"`
	CreatedAt      time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"default:now()" json:"updated_at"`

	// Relations
	Prices []OfferPrice `gorm:"foreignKey:OfferID" json:"prices,omitempty"`
}

// TableName specifies the table name for GORM
func (Offer) TableName() string {
	return "offers"
}

// AllowsMethod reports whether the offer permits the given payment method
func (o *Offer) AllowsMethod(method string) bool {
	if o.AllowedMethods == "" {
		return true
	}
	for _, m := range strings.Split(o.AllowedMethods, ",") {
		if strings.TrimSpace(m) == method {
			return true
		}
	}
	return false
}

// OfferPrice localizes an offer's price per country and optionally per
// provider. Resolution priority: country+provider match, then country match,
// then the offer's base price.
type OfferPrice struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	OfferID         uuid.UUID `gorm:"type:uuid;not null;index" json:"offer_id"`
	Country         string    `gorm:"not null;size:2" json:"country"`
	Provider        string    `gorm:"size:30" json:"provider"`
	UnitAmountCents int64     `gorm:"not null" json:"unit_amount_cents"`
	Currency        string    `gorm:"size:3;not null" json:"currency"`
	CreatedAt       time.Time `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (OfferPrice) TableName() string {
	return "offer_prices"
}
