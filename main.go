package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/leadaxle/leadaxle/app/controllers"
	"github.com/leadaxle/leadaxle/app/repository"
	"github.com/leadaxle/leadaxle/internal/pkg/auction"
	"github.com/leadaxle/leadaxle/internal/pkg/cache"
	"github.com/leadaxle/leadaxle/internal/pkg/database"
	"github.com/leadaxle/leadaxle/internal/pkg/eligibility"
	"github.com/leadaxle/leadaxle/internal/pkg/env"
	"github.com/leadaxle/leadaxle/internal/pkg/jobqueue"
	"github.com/leadaxle/leadaxle/internal/pkg/ledger"
	"github.com/leadaxle/leadaxle/internal/pkg/mapping"
	"github.com/leadaxle/leadaxle/internal/pkg/router"
	"github.com/leadaxle/leadaxle/internal/pkg/servicelevel"
	"github.com/leadaxle/leadaxle/internal/pkg/transform"
)

func main() {
	app, shutdown := NewApplication()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		_ = app.ShutdownWithTimeout(15 * time.Second)
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	shutdown()
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	appCache := cache.NewDefault()
	registry := transform.NewRegistry()
	engine := mapping.NewEngine(registry)
	filter := eligibility.NewFilter(repos, appCache)

	led := ledger.New(repos.Transaction)
	led.Start()

	breaker := auction.NewBreaker(appCache)
	orchestrator := auction.NewOrchestrator(auction.DefaultConfig(), repos, filter, engine, auction.NewBidClient(), breaker, led)

	queueManager := jobqueue.GetManager()
	jobqueue.RegisterProcessors(queueManager.GetQueue(), orchestrator, repos)
	queueManager.Start()

	level := servicelevel.NewTracker(appCache)
	level.Evaluate(context.Background())
	stopLevel := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				level.Evaluate(context.Background())
			case <-stopLevel:
				return
			}
		}
	}()

	controllers.InitServices(&controllers.Services{
		Cache:        appCache,
		Filter:       filter,
		Engine:       engine,
		Orchestrator: orchestrator,
		Ledger:       led,
		Level:        level,
	})

	app := fiber.New(fiber.Config{
		BodyLimit:    1048576, // 1 MiB, lead payloads are small
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())
	app.Get("/health", healthHandler(level))

	router.InstallRouter(app)

	shutdown := func() {
		close(stopLevel)
		queueManager.Stop()
		led.Stop()
	}
	return app, shutdown
}

func healthHandler(level *servicelevel.Tracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current := level.Evaluate(c.Context())
		status := fiber.StatusOK
		if current == servicelevel.LevelEmergency {
			status = fiber.StatusServiceUnavailable
		}
		ok := "ok"
		if status != fiber.StatusOK {
			ok = "unavailable"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":        ok,
			"service_level": current,
		})
	}
}
