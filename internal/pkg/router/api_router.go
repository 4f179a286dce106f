package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/leadaxle/leadaxle/app/controllers"
	"github.com/leadaxle/leadaxle/internal/pkg/cache"
	"github.com/leadaxle/leadaxle/internal/pkg/env"
	"github.com/leadaxle/leadaxle/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiterConfig()))

	v1 := api.Group("/v1")

	// Public intake surface
	intake := v1.Group("/leads", middleware.IntakeAPIKeyMiddleware())
	intake.Post("/", controllers.HandleLeadIntake)
	intake.Get("/:uuid", controllers.HandleGetLead)
	intake.Get("/:uuid/transactions", controllers.HandleGetLeadTransactions)

	// Admin surface
	admin := v1.Group("/admin", middleware.AdminAPIKeyMiddleware())

	admin.Post("/buyers", controllers.HandleCreateBuyer)
	admin.Get("/buyers", controllers.HandleListBuyers)
	admin.Get("/buyers/:id", controllers.HandleGetBuyer)
	admin.Put("/buyers/:id", controllers.HandleUpdateBuyer)
	admin.Delete("/buyers/:id", controllers.HandleDeleteBuyer)

	admin.Get("/buyers/:id/coverage", controllers.HandleListCoverage)
	admin.Put("/buyers/:id/coverage", controllers.HandleUpsertCoverage)
	admin.Delete("/buyers/:id/coverage", controllers.HandleDeleteCoverage)

	admin.Get("/buyers/:id/mappings/:service", controllers.HandleGetMapping)
	admin.Put("/buyers/:id/mappings/:service", controllers.HandleSaveMapping)
	admin.Post("/buyers/:id/mappings/:service/preview", controllers.HandlePreviewMapping)
	admin.Get("/transforms", controllers.HandleListTransforms)

	admin.Get("/reports/revenue", controllers.HandleRevenueReport)
	admin.Get("/buyers/:id/performance", controllers.HandleBuyerPerformance)

	admin.Get("/stats", controllers.HandleSystemStats)
	admin.Get("/queue/stats", controllers.HandleQueueStats)
	admin.Post("/queue/dead-letter/replay", controllers.HandleReplayDeadLetter)
}

// limiterConfig backs the rate limiter with Redis so limits hold across
// instances; without Redis the limiter falls back to its in-memory store.
func limiterConfig() limiter.Config {
	cfg := limiter.Config{
		Max:        limiterMax(),
		Expiration: time.Minute,
	}

	client := cache.GetClient()
	if client == nil {
		return cfg
	}

	host := "localhost"
	port := 6379
	if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	cfg.Storage = redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: client.Options().Password,
		Database: 1,
		Reset:    false,
	})
	return cfg
}

func limiterMax() int {
	if v, err := strconv.Atoi(env.GetEnv("API_RATE_LIMIT_PER_MINUTE", "300")); err == nil && v > 0 {
		return v
	}
	return 300
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
