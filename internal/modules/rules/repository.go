// Package rules manages user-defined price-range automation rules.
package rules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/stockcart/internal/domain"
	"github.com/rs/zerolog"
)

// rulesColumns is the column list for every rules SELECT.
// Order must match scanRule().
const rulesColumns = `id, user_id, symbol, min_price, max_price, quantity, active, created_at`

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository handles rule database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new rule repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "rules").Logger(),
	}
}

var _ domain.RuleStore = (*Repository)(nil)

// Create inserts a new rule
func (r *Repository) Create(ctx context.Context, rule domain.Rule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rules (id, user_id, symbol, min_price, max_price, quantity, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rule.ID,
		rule.UserID,
		rule.Symbol,
		rule.MinPrice,
		rule.MaxPrice,
		rule.Quantity,
		boolToInt(rule.Active),
		rule.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	r.log.Info().
		Str("rule_id", rule.ID).
		Str("user_id", rule.UserID).
		Str("symbol", rule.Symbol).
		Float64("min_price", rule.MinPrice).
		Float64("max_price", rule.MaxPrice).
		Msg("Rule created")

	return nil
}

// ListByOwner returns all of a user's rules, oldest first
func (r *Repository) ListByOwner(ctx context.Context, userID string) ([]domain.Rule, error) {
	return r.query(ctx, "SELECT "+rulesColumns+" FROM rules WHERE user_id = ? ORDER BY created_at, id", userID)
}

// ListActive returns every active rule across all users
func (r *Repository) ListActive(ctx context.Context) ([]domain.Rule, error) {
	return r.query(ctx, "SELECT "+rulesColumns+" FROM rules WHERE active = 1 ORDER BY created_at, id")
}

// IsActive reports whether the rule exists and is still active
func (r *Repository) IsActive(ctx context.Context, id string) (bool, error) {
	var active int
	err := r.db.QueryRowContext(ctx, "SELECT active FROM rules WHERE id = ?", id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check rule %s: %w", id, err)
	}
	return active == 1, nil
}

// DeactivateAll deactivates every active rule for (userID, symbol)
func (r *Repository) DeactivateAll(ctx context.Context, userID, symbol string) (int64, error) {
	return deactivateAll(ctx, r.db, userID, symbol)
}

// DeactivateAllTx is DeactivateAll inside a caller-owned transaction
func (r *Repository) DeactivateAllTx(ctx context.Context, tx *sql.Tx, userID, symbol string) (int64, error) {
	return deactivateAll(ctx, tx, userID, symbol)
}

func deactivateAll(ctx context.Context, ex execer, userID, symbol string) (int64, error) {
	result, err := ex.ExecContext(ctx,
		"UPDATE rules SET active = 0 WHERE user_id = ? AND symbol = ? AND active = 1",
		userID, symbol,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate rules for %s: %w", symbol, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deactivated rule count: %w", err)
	}
	return n, nil
}

// Delete removes a rule owned by userID
func (r *Repository) Delete(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete rule: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read deleted rule count: %w", err)
	}

	if n > 0 {
		r.log.Info().Str("rule_id", id).Str("user_id", userID).Msg("Rule deleted")
	}
	return n > 0, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

func scanRule(rows *sql.Rows) (domain.Rule, error) {
	var (
		rule      domain.Rule
		active    int
		createdAt int64
	)
	err := rows.Scan(
		&rule.ID,
		&rule.UserID,
		&rule.Symbol,
		&rule.MinPrice,
		&rule.MaxPrice,
		&rule.Quantity,
		&active,
		&createdAt,
	)
	if err != nil {
		return domain.Rule{}, err
	}
	rule.Active = active == 1
	rule.CreatedAt = time.Unix(createdAt, 0)
	return rule, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
