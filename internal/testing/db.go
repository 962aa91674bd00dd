// Package testing provides testing utilities and helpers for the stockcart project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aristath/stockcart/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a file-backed SQLite database for testing with the schema applied.
// A temporary file is used instead of :memory: so every pooled connection sees the same data.
// Returns the database instance and a cleanup function that closes the connection.
// The cleanup function is idempotent and can be called multiple times safely.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileCache,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			// Log error but don't fail test - cleanup should be idempotent
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(tmpPath + suffix)
		}
	}
}
