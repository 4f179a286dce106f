package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycleTransitions(t *testing.T) {
	job := &Job{
		ID:         "job-1",
		Type:       JobTypeLeadAuction,
		Status:     JobStatusPending,
		MaxRetries: 3,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)
	assert.WithinDuration(t, time.Now(), *job.ProcessedAt, time.Second)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
}

func TestJobIsRetryable(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		maxRetries int
		want       bool
	}{
		{"fresh job", 0, 3, true},
		{"one attempt left", 2, 3, true},
		{"exhausted", 3, 3, false},
		{"no retries configured", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{RetryCount: tt.retryCount, MaxRetries: tt.maxRetries}
			assert.Equal(t, tt.want, job.IsRetryable())
		})
	}
}

func TestMarkAsFailedCountsAttempts(t *testing.T) {
	job := &Job{MaxRetries: 2}

	job.MarkAsFailed("buyer endpoint unreachable")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "buyer endpoint unreachable", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsFailed("still unreachable")
	assert.False(t, job.IsRetryable())
}

func TestLeadAuctionJobPayloadRoundTrip(t *testing.T) {
	payload := LeadAuctionJobPayload{LeadID: 42}

	got, err := LeadAuctionJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(42), got.LeadID)
}

func TestDeliveryRetryJobPayloadRoundTrip(t *testing.T) {
	payload := DeliveryRetryJobPayload{LeadID: 42, BuyerID: 7, WinningBid: 31.25}

	got, err := DeliveryRetryJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(42), got.LeadID)
	assert.Equal(t, uint(7), got.BuyerID)
	assert.Equal(t, 31.25, got.WinningBid)
}
