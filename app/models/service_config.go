package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/internal/pkg/mapping"
)

// ServiceConfig carries one buyer's commercial and technical settings for one
// service type: pricing bounds, compliance requirements, webhook endpoints and
// the stored field mapping configuration. A ServiceZone without an active
// ServiceConfig is a data-integrity problem and is excluded from auctions.
type ServiceConfig struct {
	ID                  uint        `gorm:"primaryKey" json:"id"`
	BuyerID             uint        `gorm:"uniqueIndex:idx_buyer_service;not null" json:"buyer_id" validate:"required"`
	Buyer               Buyer       `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	ServiceTypeID       uint        `gorm:"uniqueIndex:idx_buyer_service;not null" json:"service_type_id" validate:"required"`
	ServiceType         ServiceType `gorm:"foreignKey:ServiceTypeID" json:"service_type,omitempty"`
	Active              bool        `gorm:"default:true" json:"active"`
	Priority            int         `gorm:"default:10" json:"priority" validate:"min=1,max=100"`
	MinBid              float64     `gorm:"type:decimal(10,2);default:0" json:"min_bid" validate:"min=0"`
	MaxBid              float64     `gorm:"type:decimal(10,2);default:0" json:"max_bid" validate:"min=0"`
	RequiresTrustedForm bool        `gorm:"default:false" json:"requires_trusted_form"`
	RequiresJornaya     bool        `gorm:"default:false" json:"requires_jornaya"`
	PingURL             string      `gorm:"type:varchar(255)" json:"ping_url" validate:"omitempty,url,max=255"`
	PostURL             string      `gorm:"type:varchar(255)" json:"post_url" validate:"omitempty,url,max=255"`
	PingTimeoutMs       int         `gorm:"default:0" json:"ping_timeout_ms" validate:"min=0,max=30000"`
	PostTimeoutMs       int         `gorm:"default:0" json:"post_timeout_ms" validate:"min=0,max=60000"`
	MappingConfig       JSON        `gorm:"type:json" json:"mapping_config"`
	CreatedAt           time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *ServiceConfig) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// FieldMappingConfig decodes the stored mapping configuration. Malformed JSON
// degrades to an empty configuration with a logged warning rather than failing
// the load.
func (c *ServiceConfig) FieldMappingConfig() *mapping.Config {
	cfg, err := mapping.ParseConfig([]byte(c.MappingConfig))
	if err != nil {
		log.Warnf("[ServiceConfig] buyer=%d service=%d: malformed mapping config, using empty config: %v", c.BuyerID, c.ServiceTypeID, err)
		return mapping.EmptyConfig()
	}
	return cfg
}

// ResolvePingURL returns the ping endpoint, falling back to the buyer base URL.
func (c *ServiceConfig) ResolvePingURL(buyer *Buyer) string {
	if c.PingURL != "" {
		return c.PingURL
	}
	return buyer.BaseURL + "/ping"
}

// ResolvePostURL returns the post endpoint, falling back to the buyer base URL.
func (c *ServiceConfig) ResolvePostURL(buyer *Buyer) string {
	if c.PostURL != "" {
		return c.PostURL
	}
	return buyer.BaseURL + "/post"
}

// ResolvePingTimeout returns the effective ping timeout for this config.
func (c *ServiceConfig) ResolvePingTimeout(buyer *Buyer) time.Duration {
	ms := c.PingTimeoutMs
	if ms == 0 {
		ms = buyer.PingTimeoutMs
	}
	if ms == 0 {
		ms = 3000
	}
	return time.Duration(ms) * time.Millisecond
}

// ResolvePostTimeout returns the effective post timeout for this config.
func (c *ServiceConfig) ResolvePostTimeout(buyer *Buyer) time.Duration {
	ms := c.PostTimeoutMs
	if ms == 0 {
		ms = buyer.PostTimeoutMs
	}
	if ms == 0 {
		ms = 10000
	}
	return time.Duration(ms) * time.Millisecond
}
