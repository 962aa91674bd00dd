// Package reliability keeps the database healthy and backed up off-site.
package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockcart/internal/database"
)

const (
	backupFilePrefix = "stockcart-backup-"
	backupFileSuffix = ".tar.gz"
	backupTimeLayout = "2006-01-02-150405"

	// minBackupsKept survives any retention window
	minBackupsKept = 3
)

// BackupMetadata is written alongside the snapshot inside every archive
type BackupMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Database  string    `json:"database"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}

// BackupInfo describes one stored backup
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  float64   `json:"age_hours"`
}

// R2BackupService snapshots the database and ships it to object storage
type R2BackupService struct {
	store      ObjectStore
	db         *database.DB
	stagingDir string
	version    string
	now        func() time.Time
	log        zerolog.Logger
}

// NewR2BackupService creates a new backup service.
// Snapshots are staged under stagingDir before upload and cleaned up afterwards.
func NewR2BackupService(store ObjectStore, db *database.DB, stagingDir, version string, log zerolog.Logger) *R2BackupService {
	return &R2BackupService{
		store:      store,
		db:         db,
		stagingDir: stagingDir,
		version:    version,
		now:        time.Now,
		log:        log.With().Str("service", "r2_backup").Logger(),
	}
}

// CreateAndUploadBackup snapshots the database, archives it and uploads the archive.
// Returns the uploaded filename.
func (s *R2BackupService) CreateAndUploadBackup(ctx context.Context) (string, error) {
	startTime := s.now()
	s.log.Info().Msg("Starting backup")

	stagingDir, err := os.MkdirTemp(s.stagingDir, "backup-staging-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			s.log.Warn().Err(err).Str("dir", stagingDir).Msg("Failed to clean up staging directory")
		}
	}()

	snapshotName := s.db.Name() + ".db"
	snapshotPath := filepath.Join(stagingDir, snapshotName)
	if err := s.db.SnapshotTo(ctx, snapshotPath); err != nil {
		return "", err
	}

	stat, err := os.Stat(snapshotPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat snapshot: %w", err)
	}
	checksum, err := fileChecksum(snapshotPath)
	if err != nil {
		return "", err
	}

	metadata := BackupMetadata{
		Timestamp: startTime.UTC(),
		Version:   s.version,
		Database:  s.db.Name(),
		SizeBytes: stat.Size(),
		Checksum:  checksum,
	}
	metadataJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var archive bytes.Buffer
	if err := writeArchive(&archive, map[string]string{snapshotName: snapshotPath}, metadataJSON); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	filename := backupFilePrefix + startTime.UTC().Format(backupTimeLayout) + backupFileSuffix
	size := int64(archive.Len())
	if err := s.store.Upload(ctx, filename, &archive, size); err != nil {
		return "", err
	}

	s.log.Info().
		Str("filename", filename).
		Int64("size_bytes", size).
		Dur("duration", s.now().Sub(startTime)).
		Msg("Backup uploaded")

	return filename, nil
}

// ListBackups returns stored backups, newest first.
// Objects that do not follow the backup naming scheme are ignored.
func (s *R2BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, backupFilePrefix)
	if err != nil {
		return nil, err
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		ts, ok := parseBackupTimestamp(obj.Key)
		if !ok {
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  obj.Key,
			Timestamp: ts,
			SizeBytes: obj.Size,
			AgeHours:  now.Sub(ts).Hours(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays.
// The newest few are always kept. A retention of zero disables rotation.
func (s *R2BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsKept {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, b := range backups[minBackupsKept:] {
		if !b.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, b.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", b.Filename).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Int("retention_days", retentionDays).Msg("Rotated old backups")
	}
	return deleted, nil
}

func parseBackupTimestamp(key string) (time.Time, bool) {
	name := filepath.Base(key)
	if !strings.HasPrefix(name, backupFilePrefix) || !strings.HasSuffix(name, backupFileSuffix) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, backupFilePrefix), backupFileSuffix)
	ts, err := time.Parse(backupTimeLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to checksum %s: %w", path, err)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

// writeArchive writes a tar.gz holding files (archive name -> disk path) plus backup-metadata.json
func writeArchive(w io.Writer, files map[string]string, metadata []byte) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := addFileToArchive(tw, name, files[name]); err != nil {
			return err
		}
	}

	if err := tw.WriteHeader(&tar.Header{
		Name:    "backup-metadata.json",
		Mode:    0644,
		Size:    int64(len(metadata)),
		ModTime: time.Now(),
	}); err != nil {
		return err
	}
	if _, err := tw.Write(metadata); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func addFileToArchive(tw *tar.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(stat, "")
	if err != nil {
		return err
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
