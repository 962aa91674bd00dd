// Package domain holds the core cart automation types shared across modules.
package domain

import (
	"errors"
	"time"
)

var (
	// ErrRuleNotFound is returned when a rule does not exist for the requesting user
	ErrRuleNotFound = errors.New("rule not found")
	// ErrInvalidSymbol is returned for an empty or malformed symbol
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// Rule is a user-defined price band that governs automatic cart membership for a symbol.
// MinPrice <= MaxPrice is not enforced; a rule with MinPrice > MaxPrice never matches.
type Rule struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Symbol    string    `json:"symbol"`
	MinPrice  float64   `json:"min_price"`
	MaxPrice  float64   `json:"max_price"`
	Quantity  int       `json:"quantity"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// InRange reports whether price falls inside the rule's inclusive band.
func (r Rule) InRange(price float64) bool {
	return r.MinPrice <= price && price <= r.MaxPrice
}

// CartEntry is one cart line. There is at most one entry per (UserID, Symbol).
//
// AutoAdded is the sole authority on whether the automation engine may delete
// the entry: manual adds always clear it.
type CartEntry struct {
	UserID    string    `json:"-"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	AutoAdded bool      `json:"auto_added"`
	UpdatedAt time.Time `json:"-"`
}

// Quote is a point-in-time price observation for a symbol
type Quote struct {
	Symbol string
	Name   string
	Price  float64
}
