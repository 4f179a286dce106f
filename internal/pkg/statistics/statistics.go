package statistics

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/internal/pkg/cache"
	"github.com/leadaxle/leadaxle/internal/pkg/database"
)

const (
	CacheKeyLeadsTotal   = "statistics:leads:total"
	CacheKeyLeadsDaily   = "statistics:leads:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyBuyersActive = "statistics:buyers:active"
	CacheKeySoldTotal    = "statistics:leads:sold"
	CacheExpiration      = 30 * time.Minute
)

// StatisticsData holds the aggregate numbers for the admin dashboard.
type StatisticsData struct {
	TodayLeads   int `json:"today_leads"`
	TotalLeads   int `json:"total_leads"`
	SoldLeads    int `json:"sold_leads"`
	ActiveBuyers int `json:"active_buyers"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached aggregates are stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached aggregates when they are stale.
func UpdateCacheIfNeeded(c cache.Cache) {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(c); err != nil {
			log.Warnf("[Statistics] Failed to refresh statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next read to refresh the cache.
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recomputes all aggregates and writes them to the cache.
func UpdateStatisticsCache(c cache.Cache) error {
	ctx := context.Background()
	db := database.GetDB()

	var totalLeads int64
	if err := db.Model(&models.Lead{}).Count(&totalLeads).Error; err != nil {
		return err
	}

	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	var todayLeads int64
	if err := db.Model(&models.Lead{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayLeads).Error; err != nil {
		return err
	}

	var soldLeads int64
	if err := db.Model(&models.Lead{}).Where("status = ?", models.LEAD_STATUS_SOLD).Count(&soldLeads).Error; err != nil {
		return err
	}

	var activeBuyers int64
	if err := db.Model(&models.Buyer{}).Where("status = ?", models.BUYER_STATUS_ACTIVE).Count(&activeBuyers).Error; err != nil {
		return err
	}

	if err := c.Set(ctx, CacheKeyLeadsTotal, strconv.FormatInt(totalLeads, 10), CacheExpiration); err != nil {
		return err
	}
	if err := c.Set(ctx, fmt.Sprintf(CacheKeyLeadsDaily, today), strconv.FormatInt(todayLeads, 10), CacheExpiration); err != nil {
		return err
	}
	if err := c.Set(ctx, CacheKeySoldTotal, strconv.FormatInt(soldLeads, 10), CacheExpiration); err != nil {
		return err
	}
	return c.Set(ctx, CacheKeyBuyersActive, strconv.FormatInt(activeBuyers, 10), CacheExpiration)
}

func getCachedCount(c cache.Cache, key string, recompute func() (int64, error)) int {
	ctx := context.Background()
	if val, err := c.Get(ctx, key); err == nil {
		if n, perr := strconv.ParseInt(val, 10, 64); perr == nil {
			return int(n)
		}
	}

	count, err := recompute()
	if err != nil {
		log.Warnf("[Statistics] Failed to recompute %s: %v", key, err)
		return 0
	}
	if err := c.Set(ctx, key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
		log.Warnf("[Statistics] Failed to cache %s: %v", key, err)
	}
	return int(count)
}

// GetStatisticsData returns the dashboard aggregates, refreshing the cache
// when stale.
func GetStatisticsData(c cache.Cache) StatisticsData {
	UpdateCacheIfNeeded(c)
	db := database.GetDB()

	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	return StatisticsData{
		TodayLeads: getCachedCount(c, fmt.Sprintf(CacheKeyLeadsDaily, today), func() (int64, error) {
			var n int64
			err := db.Model(&models.Lead{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&n).Error
			return n, err
		}),
		TotalLeads: getCachedCount(c, CacheKeyLeadsTotal, func() (int64, error) {
			var n int64
			err := db.Model(&models.Lead{}).Count(&n).Error
			return n, err
		}),
		SoldLeads: getCachedCount(c, CacheKeySoldTotal, func() (int64, error) {
			var n int64
			err := db.Model(&models.Lead{}).Where("status = ?", models.LEAD_STATUS_SOLD).Count(&n).Error
			return n, err
		}),
		ActiveBuyers: getCachedCount(c, CacheKeyBuyersActive, func() (int64, error) {
			var n int64
			err := db.Model(&models.Buyer{}).Where("status = ?", models.BUYER_STATUS_ACTIVE).Count(&n).Error
			return n, err
		}),
	}
}
