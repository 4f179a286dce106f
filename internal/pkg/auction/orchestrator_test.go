package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leadaxle/leadaxle/internal/pkg/eligibility"
)

func bidAttempt(buyerID uint, amount float64, accepted bool, zonePriority int, responseTime time.Duration) pingAttempt {
	return pingAttempt{
		participant: eligibility.EligibleBuyer{BuyerID: buyerID, ZonePriority: zonePriority},
		result: &CallResult{
			StatusCode:   200,
			Bid:          &BidResponse{BidAmount: &amount, Accepted: &accepted},
			ResponseTime: responseTime,
		},
	}
}

func failedAttempt(buyerID uint, failCode string) pingAttempt {
	return pingAttempt{
		participant: eligibility.EligibleBuyer{BuyerID: buyerID},
		result:      &CallResult{FailCode: failCode},
	}
}

func TestSelectWinner(t *testing.T) {
	tests := []struct {
		name     string
		attempts []pingAttempt
		want     uint // 0 means no winner
	}{
		{
			name: "highest accepted bid wins",
			attempts: []pingAttempt{
				bidAttempt(1, 25.00, true, 1, 100*time.Millisecond),
				bidAttempt(2, 40.00, true, 1, 100*time.Millisecond),
				bidAttempt(3, 32.50, true, 1, 100*time.Millisecond),
			},
			want: 2,
		},
		{
			name: "declined bids never win regardless of amount",
			attempts: []pingAttempt{
				bidAttempt(1, 90.00, false, 1, 100*time.Millisecond),
				bidAttempt(2, 15.00, true, 1, 100*time.Millisecond),
			},
			want: 2,
		},
		{
			name: "failed calls are skipped",
			attempts: []pingAttempt{
				failedAttempt(1, FailTimeout),
				failedAttempt(2, FailHTTP),
				bidAttempt(3, 5.00, true, 9, time.Second),
			},
			want: 3,
		},
		{
			name: "equal bids break on lower zone priority",
			attempts: []pingAttempt{
				bidAttempt(1, 30.00, true, 5, 100*time.Millisecond),
				bidAttempt(2, 30.00, true, 2, 400*time.Millisecond),
			},
			want: 2,
		},
		{
			name: "equal bids and priority break on faster response",
			attempts: []pingAttempt{
				bidAttempt(1, 30.00, true, 2, 400*time.Millisecond),
				bidAttempt(2, 30.00, true, 2, 100*time.Millisecond),
			},
			want: 2,
		},
		{
			name: "stable winner on full tie",
			attempts: []pingAttempt{
				bidAttempt(1, 30.00, true, 2, 100*time.Millisecond),
				bidAttempt(2, 30.00, true, 2, 100*time.Millisecond),
			},
			want: 1,
		},
		{
			name: "no acceptable bids",
			attempts: []pingAttempt{
				failedAttempt(1, FailNetwork),
				bidAttempt(2, 10.00, false, 1, 100*time.Millisecond),
			},
			want: 0,
		},
		{
			name:     "empty field",
			attempts: nil,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner := selectWinner(tt.attempts)
			if tt.want == 0 {
				assert.Nil(t, winner)
				return
			}
			if assert.NotNil(t, winner) {
				assert.Equal(t, tt.want, winner.participant.BuyerID)
			}
		})
	}
}

func TestCountValidBids(t *testing.T) {
	attempts := []pingAttempt{
		bidAttempt(1, 25.00, true, 1, time.Millisecond),
		bidAttempt(2, 40.00, false, 1, time.Millisecond),
		failedAttempt(3, FailInvalidResponse),
		bidAttempt(4, 12.00, true, 1, time.Millisecond),
	}
	assert.Equal(t, 2, countValidBids(attempts))
	assert.Equal(t, 0, countValidBids(nil))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 25, cfg.MaxConcurrentPings)
	assert.Equal(t, 10*time.Second, cfg.AuctionDeadline)
	assert.Equal(t, 3, cfg.PostMaxAttempts)
}
