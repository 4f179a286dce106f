package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// ServiceZone is one buyer's coverage declaration for a service type in one
// ZIP code. Uniqueness is enforced on (buyer, service type, zip).
type ServiceZone struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	BuyerID        uint        `gorm:"uniqueIndex:idx_buyer_service_zip;not null" json:"buyer_id" validate:"required"`
	Buyer          Buyer       `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	ServiceTypeID  uint        `gorm:"uniqueIndex:idx_buyer_service_zip;not null" json:"service_type_id" validate:"required"`
	ServiceType    ServiceType `gorm:"foreignKey:ServiceTypeID" json:"service_type,omitempty"`
	ZipCode        string      `gorm:"type:varchar(10);uniqueIndex:idx_buyer_service_zip;index;not null" json:"zip_code" validate:"required,len=5,numeric"`
	Active         bool        `gorm:"default:true" json:"active"`
	Priority       int         `gorm:"default:10" json:"priority" validate:"min=1,max=100"`
	MaxLeadsPerDay *int        `gorm:"default:null" json:"max_leads_per_day,omitempty" validate:"omitempty,min=1"`
	MinBid         *float64    `gorm:"type:decimal(10,2);default:null" json:"min_bid,omitempty" validate:"omitempty,min=0"`
	MaxBid         *float64    `gorm:"type:decimal(10,2);default:null" json:"max_bid,omitempty" validate:"omitempty,min=0"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (z *ServiceZone) Validate() error {
	v := validator.New()

	return v.Struct(z)
}
