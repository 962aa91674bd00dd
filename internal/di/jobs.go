package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockcart/internal/config"
	"github.com/aristath/stockcart/internal/modules/market"
	"github.com/aristath/stockcart/internal/reliability"
)

const (
	maintenanceSchedule = "@hourly"
	// Sundays at 04:00
	vacuumSchedule = "0 0 4 * * 0"
)

// RegisterJobs creates every background job and registers it with the scheduler.
// The scheduler is not started here.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.Scheduler == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	jobs := &JobInstances{
		AutomationTick:      container.Engine,
		MarketRefresh:       market.NewRefreshJob(container.Simulator),
		DatabaseMaintenance: reliability.NewDatabaseMaintenanceJob(container.DB, log),
		DatabaseVacuum:      reliability.NewVacuumJob(container.DB, log),
	}

	s := container.Scheduler
	if err := s.Every(cfg.AutomationInterval, jobs.AutomationTick); err != nil {
		return nil, err
	}
	if err := s.Every(cfg.MarketInterval, jobs.MarketRefresh); err != nil {
		return nil, err
	}
	if err := s.AddJob(maintenanceSchedule, jobs.DatabaseMaintenance); err != nil {
		return nil, err
	}
	if err := s.AddJob(vacuumSchedule, jobs.DatabaseVacuum); err != nil {
		return nil, err
	}

	if container.BackupService != nil {
		jobs.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
		if err := s.AddJob(cfg.Backup.Schedule, jobs.Backup); err != nil {
			return nil, err
		}
	}

	log.Info().Int("jobs", len(jobs.All())).Msg("Jobs registered")
	return jobs, nil
}
