package reliability

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aristath/stockcart/internal/database"
)

const (
	// walFrameThreshold is the WAL size, in frames, above which a TRUNCATE checkpoint is forced
	walFrameThreshold = 1000

	diskWarnPercent     = 90.0
	diskCriticalPercent = 95.0
)

// DatabaseMaintenanceJob verifies integrity, keeps the WAL bounded and watches disk space
type DatabaseMaintenanceJob struct {
	db  *database.DB
	log zerolog.Logger

	// diskUsage is replaceable in tests
	diskUsage func(ctx context.Context, path string) (*disk.UsageStat, error)
}

// NewDatabaseMaintenanceJob creates a new DatabaseMaintenanceJob
func NewDatabaseMaintenanceJob(db *database.DB, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		db:        db,
		log:       log.With().Str("job", "database_maintenance").Logger(),
		diskUsage: disk.UsageWithContext,
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance pass
func (j *DatabaseMaintenanceJob) Run(ctx context.Context) error {
	if j.db == nil {
		j.log.Warn().Msg("Database not initialized, skipping")
		return nil
	}

	if err := j.db.HealthCheck(ctx); err != nil {
		// Corruption cannot be auto-recovered; surface it
		return fmt.Errorf("database %s is unhealthy: %w", j.db.Name(), err)
	}

	if err := j.checkpoint(ctx); err != nil {
		return err
	}

	return j.checkDiskSpace(ctx)
}

func (j *DatabaseMaintenanceJob) checkpoint(ctx context.Context) error {
	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	err := j.db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("Failed to check WAL checkpoint")
		return nil
	}

	if frames > walFrameThreshold {
		j.log.Warn().
			Str("database", j.db.Name()).
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, forcing checkpoint")
		if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
			return err
		}
	}

	j.log.Debug().
		Str("database", j.db.Name()).
		Int("wal_frames", frames).
		Msg("WAL checkpoint completed")
	return nil
}

// checkDiskSpace fails only when the volume holding the database is critically full
func (j *DatabaseMaintenanceJob) checkDiskSpace(ctx context.Context) error {
	dir := filepath.Dir(j.db.Path())
	usage, err := j.diskUsage(ctx, dir)
	if err != nil {
		// In-memory databases have no meaningful volume
		j.log.Debug().Err(err).Str("path", dir).Msg("Disk usage unavailable")
		return nil
	}

	switch {
	case usage.UsedPercent >= diskCriticalPercent:
		j.log.Error().
			Float64("used_percent", usage.UsedPercent).
			Uint64("free_bytes", usage.Free).
			Msg("CRITICAL: disk almost full")
		return fmt.Errorf("disk usage critical: %.1f%% used", usage.UsedPercent)
	case usage.UsedPercent >= diskWarnPercent:
		j.log.Warn().
			Float64("used_percent", usage.UsedPercent).
			Uint64("free_bytes", usage.Free).
			Msg("Disk space running low")
	}
	return nil
}

// VacuumJob rebuilds the database file to reclaim space freed by deleted cart rows
type VacuumJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewVacuumJob creates a new VacuumJob
func NewVacuumJob(db *database.DB, log zerolog.Logger) *VacuumJob {
	return &VacuumJob{
		db:  db,
		log: log.With().Str("job", "database_vacuum").Logger(),
	}
}

// Name returns the job name
func (j *VacuumJob) Name() string {
	return "database_vacuum"
}

// Run executes VACUUM followed by a TRUNCATE checkpoint
func (j *VacuumJob) Run(ctx context.Context) error {
	if j.db == nil {
		return nil
	}

	var before, after int64
	_ = j.db.Conn().QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&before)

	if _, err := j.db.Conn().ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum failed for %s: %w", j.db.Name(), err)
	}
	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("Checkpoint after vacuum failed")
	}

	_ = j.db.Conn().QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&after)

	j.log.Info().
		Int64("size_before", before).
		Int64("size_after", after).
		Int64("reclaimed", before-after).
		Msg("Database vacuumed")
	return nil
}
