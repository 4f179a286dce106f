package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/leadaxle/leadaxle/app/repository"
	"github.com/leadaxle/leadaxle/internal/pkg/servicelevel"
)

func parseReportRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, err
		}
		// inclusive end of day
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

// HandleRevenueReport aggregates sold-lead revenue over a date range, grouped
// by buyer or by day.
func HandleRevenueReport(c *fiber.Ctx) error {
	if GetServices().Level.Current() == servicelevel.LevelMinimal {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "degraded", "message": "reporting unavailable while database is degraded"})
	}

	from, to, err := parseReportRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "dates must be YYYY-MM-DD"})
	}

	groupBy := c.Query("group_by", "day")
	if groupBy != "day" && groupBy != "buyer" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "group_by must be day or buyer"})
	}

	buckets, err := repository.GetGlobalRepositories().Transaction.Revenue(from, to, groupBy)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not build report"})
	}

	var total float64
	for _, b := range buckets {
		total += b.Revenue
	}

	return c.JSON(fiber.Map{
		"from":     from.Format("2006-01-02"),
		"to":       to.Format("2006-01-02"),
		"group_by": groupBy,
		"buckets":  buckets,
		"total":    total,
	})
}

// HandleBuyerPerformance reports one buyer's ping/post volume, success rate
// and latency over a date range.
func HandleBuyerPerformance(c *fiber.Ctx) error {
	buyerID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid buyer id"})
	}

	from, to, err := parseReportRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "dates must be YYYY-MM-DD"})
	}

	repos := repository.GetGlobalRepositories()
	if _, err := repos.Buyer.GetByID(uint(buyerID)); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "buyer not found"})
	}

	perf, err := repos.Transaction.BuyerPerformance(uint(buyerID), from, to)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not build report"})
	}

	return c.JSON(fiber.Map{
		"from":        from.Format("2006-01-02"),
		"to":          to.Format("2006-01-02"),
		"performance": perf,
	})
}
