package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/leadaxle/leadaxle/internal/pkg/jobqueue"
)

// HandleQueueStats reports queue depth, processing count, per-status counters
// and the dead-letter backlog.
func HandleQueueStats(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()
	ctx := c.Context()

	stats, err := queue.GetJobStats(ctx)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "degraded", "message": "queue unavailable"})
	}
	pending, _ := queue.GetQueueSize(ctx)
	processing, _ := queue.GetProcessingSize(ctx)
	deadLetter, _ := queue.GetDeadLetterSize(ctx)

	return c.JSON(fiber.Map{
		"queued":      pending,
		"processing":  processing,
		"dead_letter": deadLetter,
		"by_status":   stats,
	})
}

// HandleReplayDeadLetter re-enqueues dead-lettered jobs for another run.
func HandleReplayDeadLetter(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	replayed, err := jobqueue.GetManager().GetQueue().ReplayDeadLetter(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "degraded", "message": "queue unavailable"})
	}
	return c.JSON(fiber.Map{"replayed": replayed})
}
