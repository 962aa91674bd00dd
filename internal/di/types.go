// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/stockcart/internal/database"
	"github.com/aristath/stockcart/internal/modules/automation"
	"github.com/aristath/stockcart/internal/modules/cart"
	carthandlers "github.com/aristath/stockcart/internal/modules/cart/handlers"
	"github.com/aristath/stockcart/internal/modules/market"
	"github.com/aristath/stockcart/internal/modules/rules"
	rulehandlers "github.com/aristath/stockcart/internal/modules/rules/handlers"
	"github.com/aristath/stockcart/internal/notify"
	"github.com/aristath/stockcart/internal/reliability"
	"github.com/aristath/stockcart/internal/scheduler"
	"github.com/aristath/stockcart/internal/utils"
)

// Container holds all application dependencies.
// It is created by Wire and handed to the server and main.
type Container struct {
	DB *database.DB

	// Repositories
	RuleRepo *rules.Repository
	CartRepo *cart.Repository

	// Services
	Simulator    *market.Simulator
	RulesService *rules.Service
	CartService  *cart.Service
	Engine       *automation.Engine
	Hub          *notify.Hub

	// Locks is shared by the engine and manual cart operations
	Locks *utils.KeyedMutex

	// Handlers
	CartHandler  *carthandlers.Handler
	RulesHandler *rulehandlers.Handler

	Scheduler     *scheduler.Scheduler
	BackupService *reliability.R2BackupService // nil when backups are disabled
}

// JobInstances holds every scheduled job, for manual triggering via the API
type JobInstances struct {
	AutomationTick      scheduler.Job
	MarketRefresh       scheduler.Job
	DatabaseMaintenance scheduler.Job
	DatabaseVacuum      scheduler.Job
	Backup              scheduler.Job // nil when backups are disabled
}

// All returns the non-nil jobs
func (j *JobInstances) All() []scheduler.Job {
	var out []scheduler.Job
	for _, job := range []scheduler.Job{j.AutomationTick, j.MarketRefresh, j.DatabaseMaintenance, j.DatabaseVacuum, j.Backup} {
		if job != nil {
			out = append(out, job)
		}
	}
	return out
}

// Close releases resources held by the container
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
