package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// ServiceType is a marketable lead category (windows, roofing, solar, ...).
type ServiceType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(60);uniqueIndex;not null" json:"code" validate:"required,min=2,max=60"`
	Name      string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,max=150"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *ServiceType) Validate() error {
	v := validator.New()

	return v.Struct(s)
}
