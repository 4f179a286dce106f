package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	// JobTypeLeadAuction runs the full auction pipeline for a queued lead.
	JobTypeLeadAuction JobType = "lead_auction"
	// JobTypeDeliveryRetry re-attempts a failed POST delivery to the winner.
	JobTypeDeliveryRetry JobType = "delivery_retry"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// MarkAsProcessing transitions the job into the processing state
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkAsCompleted transitions the job into the completed state
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsFailed records a failure message on the job
func (j *Job) MarkAsFailed(msg string) {
	j.Status = JobStatusFailed
	j.ErrorMsg = msg
	j.RetryCount++
	j.UpdatedAt = time.Now()
}

// MarkAsRetrying transitions the job into the retrying state
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

// IsRetryable reports whether the job may be re-enqueued
func (j *Job) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}

// LeadAuctionJobPayload contains the payload for lead auction jobs
type LeadAuctionJobPayload struct {
	LeadID uint `json:"lead_id"`
}

// ToMap converts the payload to a map for storage
func (p LeadAuctionJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"lead_id": p.LeadID,
	}
}

// LeadAuctionJobPayloadFromMap creates a payload from a map
func LeadAuctionJobPayloadFromMap(data map[string]interface{}) (*LeadAuctionJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload LeadAuctionJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// DeliveryRetryJobPayload contains the payload for delivery retry jobs
type DeliveryRetryJobPayload struct {
	LeadID     uint    `json:"lead_id"`
	BuyerID    uint    `json:"buyer_id"`
	WinningBid float64 `json:"winning_bid"`
}

// ToMap converts the payload to a map for storage
func (p DeliveryRetryJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"lead_id":     p.LeadID,
		"buyer_id":    p.BuyerID,
		"winning_bid": p.WinningBid,
	}
}

// DeliveryRetryJobPayloadFromMap creates a payload from a map
func DeliveryRetryJobPayloadFromMap(data map[string]interface{}) (*DeliveryRetryJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload DeliveryRetryJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}
