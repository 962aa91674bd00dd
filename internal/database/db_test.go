package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{
		Path: filepath.Join(t.TempDir(), "stockcart.db"),
		Name: "stockcart",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func TestNew_MigrateIsIdempotent(t *testing.T) {
	db := newTempDB(t)

	// Second migration must not fail on existing tables
	require.NoError(t, db.Migrate())

	var count int
	err := db.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('rules', 'cart_items')",
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTempDB(t)
	boom := errors.New("boom")

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO cart_items (user_id, symbol, name, price, quantity, auto_added, updated_at)
			VALUES ('u1', 'TCS', 'TCS', 1, 1, 0, 0)`)
		require.NoError(t, err)
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM cart_items").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newTempDB(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("unexpected")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestWithTransaction_NilDB(t *testing.T) {
	err := WithTransaction(nil, func(tx *sql.Tx) error { return nil })
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	db := newTempDB(t)
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestSnapshotTo(t *testing.T) {
	db := newTempDB(t)

	_, err := db.Conn().Exec(`INSERT INTO rules (id, user_id, symbol, min_price, max_price, quantity, active, created_at)
		VALUES ('r1', 'u1', 'TCS', 10, 20, 1, 1, 0)`)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snap", "copy.db")
	require.NoError(t, db.SnapshotTo(context.Background(), dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	copyDB, err := New(Config{Path: dest, Name: "copy"})
	require.NoError(t, err)
	defer copyDB.Close()

	var count int
	require.NoError(t, copyDB.Conn().QueryRow("SELECT COUNT(*) FROM rules").Scan(&count))
	assert.Equal(t, 1, count)
}
