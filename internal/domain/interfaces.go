package domain

import "context"

// PriceSource supplies live quotes.
// ok is false when the symbol has no current data; that is a transient miss, not an error.
type PriceSource interface {
	Quote(ctx context.Context, symbol string) (quote Quote, ok bool)
}

// CartStore persists cart entries keyed by (user, symbol).
// Every mutating method is a single atomic statement so callers never
// read-then-write with an externally visible gap.
type CartStore interface {
	// Find returns nil, nil when the entry does not exist
	Find(ctx context.Context, userID, symbol string) (*CartEntry, error)

	// InsertAutoIfAbsent inserts entry with AutoAdded forced true.
	// inserted is false when an entry already existed; nothing is changed then.
	InsertAutoIfAbsent(ctx context.Context, entry CartEntry) (inserted bool, err error)

	// UpdatePrice refreshes the price of an existing entry.
	// updated is false when the entry vanished.
	UpdatePrice(ctx context.Context, userID, symbol string, price float64) (updated bool, err error)

	// UpsertManual creates the entry or adds qtyDelta to its quantity, forcing AutoAdded false
	UpsertManual(ctx context.Context, entry CartEntry, qtyDelta int) error

	// DeleteIfAuto removes the entry only when AutoAdded is true and returns the removed row
	DeleteIfAuto(ctx context.Context, userID, symbol string) (removed *CartEntry, err error)

	// Delete removes the entry unconditionally. removed is false if it did not exist.
	Delete(ctx context.Context, userID, symbol string) (removed bool, err error)

	// ListByOwner returns every entry for the user ordered by symbol
	ListByOwner(ctx context.Context, userID string) ([]CartEntry, error)

	// DeleteAll clears the user's cart and returns the number of removed entries
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// RuleStore persists automation rules
type RuleStore interface {
	// ListActive returns a snapshot of every active rule across all users
	ListActive(ctx context.Context) ([]Rule, error)

	// IsActive reports whether the rule still exists and is active
	IsActive(ctx context.Context, id string) (bool, error)

	// DeactivateAll deactivates every active rule for (userID, symbol)
	DeactivateAll(ctx context.Context, userID, symbol string) (int64, error)

	Create(ctx context.Context, rule Rule) error
	ListByOwner(ctx context.Context, userID string) ([]Rule, error)

	// Delete removes the rule; found is false when no rule with that id belongs to userID
	Delete(ctx context.Context, id, userID string) (found bool, err error)
}
