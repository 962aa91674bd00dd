package cart

import (
	"context"
	"database/sql"
	"testing"

	"github.com/aristath/stockcart/internal/database"
	"github.com/aristath/stockcart/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory database with the stockcart schema
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.ApplySchema(db))
	return db
}

func autoEntry(userID, symbol string, price float64, qty int) domain.CartEntry {
	return domain.CartEntry{UserID: userID, Symbol: symbol, Name: symbol + " Ltd", Price: price, Quantity: qty}
}

func TestRepository_InsertAutoIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	inserted, err := repo.InsertAutoIfAbsent(ctx, autoEntry("u1", "TCS", 100, 3))
	require.NoError(t, err)
	assert.True(t, inserted)

	// Second insert is a no-op and does not overwrite
	inserted, err = repo.InsertAutoIfAbsent(ctx, autoEntry("u1", "TCS", 200, 9))
	require.NoError(t, err)
	assert.False(t, inserted)

	entry, err := repo.Find(ctx, "u1", "TCS")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 100.0, entry.Price)
	assert.Equal(t, 3, entry.Quantity)
	assert.True(t, entry.AutoAdded)
	assert.Equal(t, "TCS Ltd", entry.Name)
}

func TestRepository_Find_Missing(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	entry, err := repo.Find(context.Background(), "u1", "NOPE")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRepository_UpdatePrice(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	updated, err := repo.UpdatePrice(ctx, "u1", "TCS", 123)
	require.NoError(t, err)
	assert.False(t, updated, "no entry to update")

	_, err = repo.InsertAutoIfAbsent(ctx, autoEntry("u1", "TCS", 100, 3))
	require.NoError(t, err)

	updated, err = repo.UpdatePrice(ctx, "u1", "TCS", 123)
	require.NoError(t, err)
	assert.True(t, updated)

	entry, err := repo.Find(ctx, "u1", "TCS")
	require.NoError(t, err)
	assert.Equal(t, 123.0, entry.Price)
	assert.Equal(t, 3, entry.Quantity)
	assert.True(t, entry.AutoAdded)
}

func TestRepository_UpsertManual(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	require.NoError(t, repo.UpsertManual(ctx, autoEntry("u1", "INFY", 1450, 0), 2))

	entry, err := repo.Find(ctx, "u1", "INFY")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Quantity)
	assert.False(t, entry.AutoAdded)

	// Quantity is incremented, not replaced
	require.NoError(t, repo.UpsertManual(ctx, autoEntry("u1", "INFY", 1460, 0), 5))
	entry, err = repo.Find(ctx, "u1", "INFY")
	require.NoError(t, err)
	assert.Equal(t, 7, entry.Quantity)
	assert.Equal(t, 1460.0, entry.Price)
}

func TestRepository_UpsertManual_TakesOverAutoEntry(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	_, err := repo.InsertAutoIfAbsent(ctx, autoEntry("u1", "TCS", 100, 3))
	require.NoError(t, err)

	require.NoError(t, repo.UpsertManual(ctx, autoEntry("u1", "TCS", 101, 0), 1))

	entry, err := repo.Find(ctx, "u1", "TCS")
	require.NoError(t, err)
	assert.False(t, entry.AutoAdded)
	assert.Equal(t, 4, entry.Quantity)

	removed, err := repo.DeleteIfAuto(ctx, "u1", "TCS")
	require.NoError(t, err)
	assert.Nil(t, removed, "manual entry must survive DeleteIfAuto")
}

func TestRepository_DeleteIfAuto(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	_, err := repo.InsertAutoIfAbsent(ctx, autoEntry("u1", "TCS", 100, 3))
	require.NoError(t, err)

	removed, err := repo.DeleteIfAuto(ctx, "u1", "TCS")
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, "TCS", removed.Symbol)
	assert.Equal(t, 3, removed.Quantity)
	assert.True(t, removed.AutoAdded)

	removed, err = repo.DeleteIfAuto(ctx, "u1", "TCS")
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func TestRepository_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	require.NoError(t, repo.UpsertManual(ctx, autoEntry("u1", "TCS", 1, 0), 1))
	require.NoError(t, repo.UpsertManual(ctx, autoEntry("u1", "INFY", 1, 0), 1))
	_, err := repo.InsertAutoIfAbsent(ctx, autoEntry("u1", "ITC", 1, 1))
	require.NoError(t, err)
	require.NoError(t, repo.UpsertManual(ctx, autoEntry("u2", "TCS", 1, 0), 1))

	entries, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"INFY", "ITC", "TCS"}, []string{entries[0].Symbol, entries[1].Symbol, entries[2].Symbol})

	removed, err := repo.Delete(ctx, "u1", "TCS")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, "u1", "TCS")
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := repo.DeleteAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err = repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	other, err := repo.ListByOwner(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, other, 1, "other users are untouched")
}
