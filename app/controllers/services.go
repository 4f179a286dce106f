package controllers

import (
	"sync"

	"github.com/leadaxle/leadaxle/internal/pkg/auction"
	"github.com/leadaxle/leadaxle/internal/pkg/cache"
	"github.com/leadaxle/leadaxle/internal/pkg/eligibility"
	"github.com/leadaxle/leadaxle/internal/pkg/ledger"
	"github.com/leadaxle/leadaxle/internal/pkg/mapping"
	"github.com/leadaxle/leadaxle/internal/pkg/servicelevel"
)

// Services bundles the shared core components the controllers use. main
// assembles it once at startup.
type Services struct {
	Cache        cache.Cache
	Filter       *eligibility.Filter
	Engine       *mapping.Engine
	Orchestrator *auction.Orchestrator
	Ledger       *ledger.Ledger
	Level        *servicelevel.Tracker
}

var (
	services   *Services
	servicesMu sync.RWMutex
)

// InitServices installs the shared service bundle.
func InitServices(s *Services) {
	servicesMu.Lock()
	services = s
	servicesMu.Unlock()
}

// GetServices returns the shared service bundle.
func GetServices() *Services {
	servicesMu.RLock()
	defer servicesMu.RUnlock()
	if services == nil {
		panic("controllers not initialized. Call InitServices first.")
	}
	return services
}
