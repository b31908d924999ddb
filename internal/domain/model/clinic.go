package model

import (
	"time"

	"github.com/google/uuid"
)

// Clinic is the tenant unit. Every payment transaction must resolve to one.
type Clinic struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Slug       string     `gorm:"unique;not null;size:100;index" json:"slug"`
	Name       string     `gorm:"not null;size:255" json:"name"`
	MerchantID *uuid.UUID `gorm:"type:uuid;index" json:"merchant_id,omitempty"`
	CreatedAt  time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Clinic) TableName() string {
	return "clinics"
}

// Doctor represents a practitioner whose products may lack a direct clinic link
type Doctor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Doctor) TableName() string {
	return "doctors"
}

// DoctorClinic links a doctor to the clinics they practice at. The most
// recently created active link is the doctor's active clinic for tenant
// resolution.
type DoctorClinic struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	ClinicID  uuid.UUID `gorm:"type:uuid;not null;index" json:"clinic_id"`
	Active    bool      `gorm:"default:true;index" json:"active"`
	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`

	// Relations
	Clinic *Clinic `gorm:"foreignKey:ClinicID" json:"clinic,omitempty"`
}

// TableName specifies the table name for GORM
func (DoctorClinic) TableName() string {
	return "doctor_clinics"
}
