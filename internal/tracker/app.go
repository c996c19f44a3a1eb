// Package tracker wires the item lifecycle and timeline reconstruction to
// storage and the event bus.
package tracker

import (
	"github.com/colonyops/wherewasi/internal/core/config"
	"github.com/colonyops/wherewasi/internal/core/eventbus"
	"github.com/colonyops/wherewasi/internal/data/db"
)

// App is the central entry point for all wherewasi operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Lifecycle *LifecycleService
	Timeline  *TimelineService

	Bus    *eventbus.EventBus
	Config *config.Config
	DB     *db.DB
}

// NewApp constructs an App from explicit dependencies.
func NewApp(
	lifecycle *LifecycleService,
	timelineSvc *TimelineService,
	bus *eventbus.EventBus,
	cfg *config.Config,
	database *db.DB,
) *App {
	return &App{
		Lifecycle: lifecycle,
		Timeline:  timelineSvc,
		Bus:       bus,
		Config:    cfg,
		DB:        database,
	}
}
