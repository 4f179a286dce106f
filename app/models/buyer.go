package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	BUYER_STATUS_ACTIVE   = "active"
	BUYER_STATUS_INACTIVE = "inactive"
	BUYER_STATUS_PAUSED   = "paused"

	AUTH_TYPE_NONE    = "none"
	AUTH_TYPE_API_KEY = "api_key"
	AUTH_TYPE_BEARER  = "bearer"
	AUTH_TYPE_BASIC   = "basic"
)

// Buyer is a registered lead purchaser. AuthCredentials holds an encrypted
// JSON credential map; it is only decrypted in memory at config-load time.
type Buyer struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	Name                   string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	BaseURL                string         `gorm:"type:varchar(255);not null" json:"base_url" validate:"required,url,max=255"`
	AuthType               string         `gorm:"type:varchar(30);default:'none'" json:"auth_type" validate:"oneof=none api_key bearer basic"`
	AuthCredentials        string         `gorm:"type:text" json:"-"`
	Status                 string         `gorm:"type:varchar(30);default:'active';index" json:"status" validate:"oneof=active inactive paused"`
	PingTimeoutMs          int            `gorm:"default:3000" json:"ping_timeout_ms" validate:"min=100,max=30000"`
	PostTimeoutMs          int            `gorm:"default:10000" json:"post_timeout_ms" validate:"min=100,max=60000"`
	RateLimitPerMinute     int            `gorm:"default:0" json:"rate_limit_per_minute" validate:"min=0"`
	MaxConsecutiveFailures int            `gorm:"default:3" json:"max_consecutive_failures" validate:"min=1,max=20"`
	CooldownSeconds        int            `gorm:"default:300" json:"cooldown_seconds" validate:"min=10"`
	RequiresSignature      bool           `gorm:"default:false" json:"requires_signature"`
	SigningSecret          string         `gorm:"type:text" json:"-"`
	CreatedAt              time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *Buyer) Validate() error {
	v := validator.New()

	return v.Struct(b)
}

// IsActive reports whether the buyer may participate in auctions.
func (b *Buyer) IsActive() bool {
	return b.Status == BUYER_STATUS_ACTIVE
}
