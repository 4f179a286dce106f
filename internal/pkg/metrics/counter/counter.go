package counter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/leadaxle/leadaxle/internal/pkg/cache"
)

// Daily auction funnel counters. Each day is one Redis hash; fields carry the
// stage and service type id. The transactions table stays the durable record,
// these counters exist so dashboards do not aggregate it on every request.
const (
	funnelKeyFormat = "funnel:counters:%s" // YYYY-MM-DD
	funnelTTL       = 14 * 24 * time.Hour

	StageReceived       = "received"
	StageDuplicate      = "duplicate"
	StageSold           = "sold"
	StageNoBuyers       = "no_buyers"
	StageNoWinner       = "no_winner"
	StageDeliveryFailed = "delivery_failed"
)

func dayKey(t time.Time) string {
	return fmt.Sprintf(funnelKeyFormat, t.UTC().Format("2006-01-02"))
}

func field(stage string, serviceTypeID uint) string {
	return fmt.Sprintf("%s:%d", stage, serviceTypeID)
}

// Add increments one funnel stage for a service type. Failures are returned
// but callers treat counters as best-effort.
func Add(stage string, serviceTypeID uint) error {
	ctx := context.Background()
	rdb := cache.GetClient()
	key := dayKey(time.Now())

	pipe := rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, field(stage, serviceTypeID), 1)
	pipe.Expire(ctx, key, funnelTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Snapshot returns one day's funnel counters keyed by "stage:serviceTypeID".
func Snapshot(day time.Time) (map[string]int64, error) {
	ctx := context.Background()
	data, err := cache.GetClient().HGetAll(ctx, dayKey(day)).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}
