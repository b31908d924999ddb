package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the typed ledger status (status_v2 column). The legacy
// free-form status string is kept alongside it for older consumers.
type TransactionStatus string

const (
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusAuthorized TransactionStatus = "authorized"
	TransactionStatusPaid       TransactionStatus = "paid"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCanceled   TransactionStatus = "canceled"
	TransactionStatusRefunded   TransactionStatus = "refunded"
)

// Scan implements sql.Scanner interface
func (t *TransactionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*t = TransactionStatus(v)
	case []byte:
		*t = TransactionStatus(v)
	default:
		*t = TransactionStatusProcessing
	}
	return nil
}

// Value implements driver.Valuer interface
func (t TransactionStatus) Value() (driver.Value, error) {
	return string(t), nil
}

// IsTerminal reports whether polling should stop. Authorized counts as
// terminal: capture happens out of band, a poll never observes it.
func (t TransactionStatus) IsTerminal() bool {
	switch t {
	case TransactionStatusAuthorized, TransactionStatusPaid, TransactionStatusFailed,
		TransactionStatusCanceled, TransactionStatusRefunded:
		return true
	}
	return false
}

// PaymentTransaction is the ledger: one row per payment attempt, written
// right after provider order creation and updated in place as the charge
// resolves. RawPayload accumulates a step-tagged history of every provider
// interaction for forensic debugging. ClinicID is never null; checkout fails
// fast when the tenant cannot be resolved.
type PaymentTransaction struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Provider           string            `gorm:"not null;size:30" json:"provider"`
	ProviderV2         string            `gorm:"column:provider_v2;size:30" json:"provider_v2"`
	RoutedProvider     string            `gorm:"size:30" json:"routed_provider"`
	ProviderOrderID    string            `gorm:"not null;size:100;index" json:"provider_order_id"`
	ClinicID           uuid.UUID         `gorm:"type:uuid;not null;index" json:"clinic_id"`
	MerchantID         *uuid.UUID        `gorm:"type:uuid;index" json:"merchant_id,omitempty"`
	ProductID          *uuid.UUID        `gorm:"type:uuid;index" json:"product_id,omitempty"`
	DoctorID           *uuid.UUID        `gorm:"type:uuid" json:"doctor_id,omitempty"`
	PatientProfileID   *uuid.UUID        `gorm:"type:uuid" json:"patient_profile_id,omitempty"`
	CustomerID         *uuid.UUID        `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	CustomerProviderID *uuid.UUID        `gorm:"type:uuid" json:"customer_provider_id,omitempty"`
	AmountCents        int64             `gorm:"not null" json:"amount_cents"`
	Currency           string            `gorm:"size:3;default:'BRL'" json:"currency"`
	Installments       int               `gorm:"default:1" json:"installments"`
	PaymentMethodType  string            `gorm:"size:20" json:"payment_method_type"`
	Status             string            `gorm:"not null;size:50" json:"status"`
	StatusV2           TransactionStatus `gorm:"column:status_v2;type:payment_transaction_status;not null;default:'processing';index" json:"status_v2"`
	RawPayload         JSONB             `gorm:"type:jsonb" json:"raw_payload,omitempty"`
	ClientName         string            `gorm:"size:255" json:"client_name"`
	ClientEmail        string            `gorm:"size:255" json:"client_email"`
	CreatedAt          time.Time         `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
