package reliability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// BackupJob uploads a fresh backup, then rotates out expired ones
type BackupJob struct {
	service       *R2BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates a new BackupJob
func NewBackupJob(service *R2BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "r2_backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "r2_backup"
}

// Run executes the backup. A failed rotation is logged but does not fail the run.
func (j *BackupJob) Run(ctx context.Context) error {
	filename, err := j.service.CreateAndUploadBackup(ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	deleted, err := j.service.RotateOldBackups(ctx, j.retentionDays)
	if err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	j.log.Info().Str("filename", filename).Int("rotated", deleted).Msg("Backup job completed")
	return nil
}
