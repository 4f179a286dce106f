package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/leadaxle/leadaxle/internal/pkg/metrics/counter"
	"github.com/leadaxle/leadaxle/internal/pkg/statistics"
)

// HandleSystemStats returns dashboard aggregates plus today's auction funnel
// counters.
func HandleSystemStats(c *fiber.Ctx) error {
	day := time.Now()
	if v := c.Query("day"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "day must be YYYY-MM-DD"})
		}
		day = parsed
	}

	funnel, err := counter.Snapshot(day)
	if err != nil {
		funnel = map[string]int64{}
	}

	return c.JSON(fiber.Map{
		"totals":        statistics.GetStatisticsData(GetServices().Cache),
		"funnel_day":    day.UTC().Format("2006-01-02"),
		"funnel":        funnel,
		"service_level": GetServices().Level.Current(),
	})
}
