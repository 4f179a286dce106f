package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	LEAD_STATUS_PENDING         = "PENDING"
	LEAD_STATUS_PROCESSING      = "PROCESSING"
	LEAD_STATUS_AUCTIONED       = "AUCTIONED"
	LEAD_STATUS_SOLD            = "SOLD"
	LEAD_STATUS_REJECTED        = "REJECTED"
	LEAD_STATUS_EXPIRED         = "EXPIRED"
	LEAD_STATUS_SCRUBBED        = "SCRUBBED"
	LEAD_STATUS_DUPLICATE       = "DUPLICATE"
	LEAD_STATUS_FAILED          = "FAILED"
	LEAD_STATUS_DELIVERY_FAILED = "DELIVERY_FAILED"

	LEAD_DISPOSITION_NEW         = "NEW"
	LEAD_DISPOSITION_DELIVERED   = "DELIVERED"
	LEAD_DISPOSITION_RETURNED    = "RETURNED"
	LEAD_DISPOSITION_DISPUTED    = "DISPUTED"
	LEAD_DISPOSITION_CREDITED    = "CREDITED"
	LEAD_DISPOSITION_WRITTEN_OFF = "WRITTEN_OFF"
)

// Lead is one consumer-submitted record moving through the auction pipeline.
// ServiceFields holds the service-specific form answers as a JSON document.
type Lead struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UUID          string      `gorm:"type:char(36);uniqueIndex;not null" json:"uuid"`
	ServiceTypeID uint        `gorm:"index;not null" json:"service_type_id" validate:"required"`
	ServiceType   ServiceType `gorm:"foreignKey:ServiceTypeID" json:"service_type,omitempty"`
	FirstName     string      `gorm:"type:varchar(100)" json:"first_name" validate:"required,max=100"`
	LastName      string      `gorm:"type:varchar(100)" json:"last_name" validate:"required,max=100"`
	Email         string      `gorm:"type:varchar(200)" json:"email" validate:"required,email,max=200"`
	Phone         string      `gorm:"type:varchar(30)" json:"phone" validate:"required,max=30"`
	ZipCode       string      `gorm:"type:varchar(10);index;not null" json:"zip_code" validate:"required,len=5,numeric"`
	ServiceFields JSON        `gorm:"type:json" json:"service_fields"`

	// Compliance artifacts
	TrustedFormCertID  string     `gorm:"type:varchar(100)" json:"trusted_form_cert_id"`
	TrustedFormCertURL string     `gorm:"type:varchar(255)" json:"trusted_form_cert_url"`
	JornayaLeadID      string     `gorm:"type:varchar(100)" json:"jornaya_lead_id"`
	TCPAConsent        bool       `gorm:"default:false" json:"tcpa_consent"`
	TCPAConsentIP      string     `gorm:"type:varchar(45)" json:"tcpa_consent_ip"`
	TCPAConsentAt      *time.Time `gorm:"type:timestamp;default:null" json:"tcpa_consent_at"`

	Status      string         `gorm:"type:varchar(30);default:'PENDING';index" json:"status"`
	Disposition string         `gorm:"type:varchar(30);default:'NEW'" json:"disposition"`
	SoldToID    *uint          `gorm:"default:null" json:"sold_to_id,omitempty"`
	SoldAmount  *float64       `gorm:"type:decimal(10,2);default:null" json:"sold_amount,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	History []LeadStatusHistory `gorm:"foreignKey:LeadID" json:"history,omitempty"`
}

// LeadStatusHistory records one status or disposition transition with the
// reason that caused it. Every transition writes exactly one row.
type LeadStatusHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LeadID     uint      `gorm:"index;not null" json:"lead_id"`
	FromStatus string    `gorm:"type:varchar(30)" json:"from_status"`
	ToStatus   string    `gorm:"type:varchar(30);not null" json:"to_status"`
	Reason     string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (l *Lead) Validate() error {
	v := validator.New()

	return v.Struct(l)
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == "" {
		l.UUID = uuid.New().String()
	}
	return nil
}

// HasTrustedForm reports whether a TrustedForm certificate is attached.
func (l *Lead) HasTrustedForm() bool {
	return l.TrustedFormCertID != "" || l.TrustedFormCertURL != ""
}

// HasJornaya reports whether a Jornaya lead id is attached.
func (l *Lead) HasJornaya() bool {
	return l.JornayaLeadID != ""
}

var leadStatusTransitions = map[string][]string{
	LEAD_STATUS_PENDING:         {LEAD_STATUS_PROCESSING, LEAD_STATUS_REJECTED, LEAD_STATUS_DUPLICATE, LEAD_STATUS_SCRUBBED, LEAD_STATUS_EXPIRED},
	LEAD_STATUS_PROCESSING:      {LEAD_STATUS_AUCTIONED, LEAD_STATUS_SOLD, LEAD_STATUS_FAILED, LEAD_STATUS_DELIVERY_FAILED, LEAD_STATUS_EXPIRED},
	LEAD_STATUS_AUCTIONED:       {LEAD_STATUS_SOLD, LEAD_STATUS_DELIVERY_FAILED, LEAD_STATUS_FAILED},
	LEAD_STATUS_DELIVERY_FAILED: {LEAD_STATUS_SOLD, LEAD_STATUS_FAILED},
}

// CanTransitionTo reports whether a status transition is allowed.
func (l *Lead) CanTransitionTo(status string) bool {
	for _, next := range leadStatusTransitions[l.Status] {
		if next == status {
			return true
		}
	}
	return false
}
