package servicelevel

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/internal/pkg/cache"
	"github.com/leadaxle/leadaxle/internal/pkg/database"
)

// Level is the system-wide degradation state. Intake keeps accepting leads at
// every level; what changes is how much of the pipeline runs and where.
type Level string

const (
	// FULL: database, cache and queue all healthy.
	LevelFull Level = "FULL"
	// DEGRADED: cache unavailable, every cache read treated as a miss and
	// leads processed synchronously.
	LevelDegraded Level = "DEGRADED"
	// MINIMAL: database reachable but flaky; auctions still run, reporting
	// endpoints may refuse.
	LevelMinimal Level = "MINIMAL"
	// EMERGENCY: persistence down; leads are queued in memory for later.
	LevelEmergency Level = "EMERGENCY"
)

// Tracker probes collaborator health and exposes the current service level.
type Tracker struct {
	mu    sync.RWMutex
	cache cache.Cache
	level Level
}

func NewTracker(c cache.Cache) *Tracker {
	return &Tracker{cache: c, level: LevelFull}
}

// Current returns the last evaluated level.
func (t *Tracker) Current() Level {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.level
}

// Evaluate re-probes collaborators and updates the level.
func (t *Tracker) Evaluate(ctx context.Context) Level {
	level := LevelFull

	cacheHealthy := t.cache.Healthy(ctx)
	dbHealthy := t.databaseHealthy()

	switch {
	case !dbHealthy && !cacheHealthy:
		level = LevelEmergency
	case !dbHealthy:
		level = LevelMinimal
	case !cacheHealthy:
		level = LevelDegraded
	}

	t.mu.Lock()
	previous := t.level
	t.level = level
	t.mu.Unlock()

	if previous != level {
		log.Warnf("[ServiceLevel] Level changed %s -> %s", previous, level)
	}
	return level
}

func (t *Tracker) databaseHealthy() bool {
	db := database.GetDB()
	if db == nil {
		return false
	}
	sqlDB, err := db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}
