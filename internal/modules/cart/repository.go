// Package cart manages per-user shopping carts of stock symbols.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/stockcart/internal/domain"
	"github.com/rs/zerolog"
)

// cartColumns is the column list for every cart_items SELECT/RETURNING.
// Order must match scanEntry().
const cartColumns = `user_id, symbol, name, price, quantity, auto_added, updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Repository handles cart database operations.
// Every mutation is one conditional statement, so it is race-free even
// across processes sharing the database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewRepository creates a new cart repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "cart").Logger(),
		now: time.Now,
	}
}

var _ domain.CartStore = (*Repository)(nil)

// Find returns the entry for (userID, symbol), or nil when absent
func (r *Repository) Find(ctx context.Context, userID, symbol string) (*domain.CartEntry, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+cartColumns+" FROM cart_items WHERE user_id = ? AND symbol = ?",
		userID, symbol,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cart entry %s: %w", symbol, err)
	}
	return &entry, nil
}

// InsertAutoIfAbsent inserts an auto-added entry unless one already exists
func (r *Repository) InsertAutoIfAbsent(ctx context.Context, entry domain.CartEntry) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, symbol, name, price, quantity, auto_added, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(user_id, symbol) DO NOTHING
	`,
		entry.UserID,
		entry.Symbol,
		entry.Name,
		entry.Price,
		entry.Quantity,
		r.now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert cart entry %s: %w", entry.Symbol, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read inserted cart entry count: %w", err)
	}
	return n == 1, nil
}

// UpdatePrice refreshes the price of an existing entry, keeping everything else
func (r *Repository) UpdatePrice(ctx context.Context, userID, symbol string, price float64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE cart_items SET price = ?, updated_at = ? WHERE user_id = ? AND symbol = ?",
		price, r.now().Unix(), userID, symbol,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update price for %s: %w", symbol, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read updated cart entry count: %w", err)
	}
	return n == 1, nil
}

// UpsertManual creates a manual entry or increments an existing one by qtyDelta.
// A manual write always wins: auto_added is cleared even on an engine-owned entry.
func (r *Repository) UpsertManual(ctx context.Context, entry domain.CartEntry, qtyDelta int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, symbol, name, price, quantity, auto_added, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(user_id, symbol) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			quantity = cart_items.quantity + excluded.quantity,
			auto_added = 0,
			updated_at = excluded.updated_at
	`,
		entry.UserID,
		entry.Symbol,
		entry.Name,
		entry.Price,
		qtyDelta,
		r.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cart entry %s: %w", entry.Symbol, err)
	}
	return nil
}

// DeleteIfAuto removes the entry only if the engine owns it
func (r *Repository) DeleteIfAuto(ctx context.Context, userID, symbol string) (*domain.CartEntry, error) {
	row := r.db.QueryRowContext(ctx,
		"DELETE FROM cart_items WHERE user_id = ? AND symbol = ? AND auto_added = 1 RETURNING "+cartColumns,
		userID, symbol,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete auto-added entry %s: %w", symbol, err)
	}
	return &entry, nil
}

// Delete removes the entry regardless of who added it
func (r *Repository) Delete(ctx context.Context, userID, symbol string) (bool, error) {
	return deleteEntry(ctx, r.db, userID, symbol)
}

// DeleteTx is Delete inside a caller-owned transaction
func (r *Repository) DeleteTx(ctx context.Context, tx *sql.Tx, userID, symbol string) (bool, error) {
	return deleteEntry(ctx, tx, userID, symbol)
}

func deleteEntry(ctx context.Context, ex execer, userID, symbol string) (bool, error) {
	result, err := ex.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ? AND symbol = ?", userID, symbol)
	if err != nil {
		return false, fmt.Errorf("failed to delete cart entry %s: %w", symbol, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read deleted cart entry count: %w", err)
	}
	return n > 0, nil
}

// ListByOwner returns the user's cart ordered by symbol
func (r *Repository) ListByOwner(ctx context.Context, userID string) ([]domain.CartEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+cartColumns+" FROM cart_items WHERE user_id = ? ORDER BY symbol",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.CartEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart: %w", err)
	}

	return entries, nil
}

// DeleteAll empties the user's cart
func (r *Repository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read cleared cart entry count: %w", err)
	}
	return n, nil
}

func scanEntry(row rowScanner) (domain.CartEntry, error) {
	var (
		entry     domain.CartEntry
		autoAdded int
		updatedAt int64
	)
	err := row.Scan(
		&entry.UserID,
		&entry.Symbol,
		&entry.Name,
		&entry.Price,
		&entry.Quantity,
		&autoAdded,
		&updatedAt,
	)
	if err != nil {
		return domain.CartEntry{}, err
	}
	entry.AutoAdded = autoAdded == 1
	entry.UpdatedAt = time.Unix(updatedAt, 0)
	return entry, nil
}
