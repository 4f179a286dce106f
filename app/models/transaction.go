package models

import (
	"time"
)

const (
	TXN_ACTION_PING = "PING"
	TXN_ACTION_POST = "POST"

	TXN_STATUS_SUCCESS = "SUCCESS"
	TXN_STATUS_FAILED  = "FAILED"
	TXN_STATUS_TIMEOUT = "TIMEOUT"
)

// Transaction is one PING or POST attempt against a buyer. Rows are
// append-only: the ledger never updates or deletes them.
type Transaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	LeadID          uint      `gorm:"index;not null" json:"lead_id"`
	BuyerID         uint      `gorm:"index;not null" json:"buyer_id"`
	ActionType      string    `gorm:"type:varchar(10);index;not null" json:"action_type"`
	Status          string    `gorm:"type:varchar(10);index;not null" json:"status"`
	RequestPayload  JSON      `gorm:"type:json" json:"request_payload"`
	ResponsePayload JSON      `gorm:"type:json" json:"response_payload,omitempty"`
	BidAmount       *float64  `gorm:"type:decimal(10,2);default:null" json:"bid_amount,omitempty"`
	ResponseTimeMs  int64     `gorm:"default:0" json:"response_time_ms"`
	ErrorMessage    string    `gorm:"type:varchar(500)" json:"error_message,omitempty"`
	TrustedFormSent bool      `gorm:"default:false" json:"trusted_form_sent"`
	JornayaSent     bool      `gorm:"default:false" json:"jornaya_sent"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// BuyerPerformance aggregates ledger rows for one buyer.
type BuyerPerformance struct {
	BuyerID           uint    `json:"buyer_id"`
	TotalPings        int64   `json:"total_pings"`
	TotalPosts        int64   `json:"total_posts"`
	SuccessRate       float64 `json:"success_rate"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	TotalRevenue      float64 `json:"total_revenue"`
}

// RevenueBucket is one aggregation row of POST/SUCCESS bid amounts.
type RevenueBucket struct {
	Key     string  `json:"key"`
	Count   int64   `json:"count"`
	Revenue float64 `json:"revenue"`
}
