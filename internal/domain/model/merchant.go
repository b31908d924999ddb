package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSplitPercent is the merchant share of a split charge when the
// merchant has no explicit configuration.
const DefaultSplitPercent = 70

// Merchant binds a clinic to a payment-provider payout account. Auto-provisioned
// as a minimal stub on first one-off checkout when missing; subscriptions
// require a fully configured merchant (recipient_id present).
type Merchant struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ClinicID     uuid.UUID `gorm:"type:uuid;unique;not null" json:"clinic_id"`
	RecipientID  string    `gorm:"size:100" json:"recipient_id"`
	SplitPercent int       `gorm:"not null;default:70" json:"split_percent"`
	Metadata     JSONB     `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Merchant) TableName() string {
	return "merchants"
}
