package eligibility

import (
	"github.com/leadaxle/leadaxle/app/models"
)

// Exclusion reason codes. A buyer can carry several at once; all detected
// disqualifications are reported, not just the first.
const (
	ReasonBuyerInactive           = "BUYER_INACTIVE"
	ReasonDailyLimitExceeded      = "DAILY_LIMIT_EXCEEDED"
	ReasonMissingCompliance       = "MISSING_COMPLIANCE"
	ReasonBidTooLow               = "BID_TOO_LOW"
	ReasonMaxParticipantsExceeded = "MAX_PARTICIPANTS_EXCEEDED"
	ReasonConfigMissing           = "CONFIG_MISSING"
)

// ComplianceSnapshot captures the lead's consent artifacts at filter time.
type ComplianceSnapshot struct {
	HasTrustedForm bool `json:"has_trusted_form"`
	HasJornaya     bool `json:"has_jornaya"`
	HasTCPAConsent bool `json:"has_tcpa_consent"`
}

// SnapshotFromLead derives the compliance snapshot from a lead record.
func SnapshotFromLead(lead *models.Lead) ComplianceSnapshot {
	return ComplianceSnapshot{
		HasTrustedForm: lead.HasTrustedForm(),
		HasJornaya:     lead.HasJornaya(),
		HasTCPAConsent: lead.TCPAConsent,
	}
}

// Options tunes one eligibility query.
type Options struct {
	MaxParticipants int     `json:"max_participants,omitempty"`
	RequireMinBid   bool    `json:"require_min_bid,omitempty"`
	MinBidThreshold float64 `json:"min_bid_threshold,omitempty"`
}

// EligibleBuyer is one auction participant candidate. It is derived data and
// never persisted.
type EligibleBuyer struct {
	BuyerID       uint                  `json:"buyer_id"`
	Score         float64               `json:"score"`
	ZonePriority  int                   `json:"zone_priority"`
	ZoneMaxBid    *float64              `json:"zone_max_bid,omitempty"`
	ZoneCreatedAt int64                 `json:"zone_created_at"`
	Buyer         *models.Buyer         `json:"buyer,omitempty"`
	Config        *models.ServiceConfig `json:"config,omitempty"`
}

// Excluded records one filtered-out buyer with every reason that applied, in
// detection order.
type Excluded struct {
	BuyerID uint     `json:"buyer_id"`
	Reasons []string `json:"reasons"`
	Detail  string   `json:"detail,omitempty"`
}

// Result is the full outcome of one eligibility query.
type Result struct {
	Eligible      []EligibleBuyer `json:"eligible"`
	ExcludedList  []Excluded      `json:"excluded"`
	TotalFound    int             `json:"total_found"`
	EligibleCount int             `json:"eligible_count"`
}
