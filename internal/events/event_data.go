// Package events defines the notifications pushed to live client connections.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/aristath/stockcart/internal/domain"
)

// EventType represents different event types
type EventType string

const (
	// CartAdd is sent when the automation engine adds a symbol to a cart
	CartAdd EventType = "cart_add"
	// CartRemove is sent when the automation engine removes an auto-added symbol
	CartRemove EventType = "cart_remove"
)

// Valid reports whether t is a known event type
func (t EventType) Valid() bool {
	return t == CartAdd || t == CartRemove
}

// CartItem is the entry snapshot carried by cart events
type CartItem struct {
	Symbol    string  `json:"symbol" msgpack:"symbol"`
	Name      string  `json:"name" msgpack:"name"`
	Price     float64 `json:"price" msgpack:"price"`
	Quantity  int     `json:"quantity" msgpack:"quantity"`
	AutoAdded bool    `json:"auto_added" msgpack:"auto_added"`
}

// CartEvent is the wire payload: {"type": "cart_add", "item": {...}}
type CartEvent struct {
	Type EventType `json:"type" msgpack:"type"`
	Item CartItem  `json:"item" msgpack:"item"`
}

// NewCartAdd builds a cart_add event from the inserted entry
func NewCartAdd(entry domain.CartEntry) CartEvent {
	return CartEvent{Type: CartAdd, Item: itemFromEntry(entry)}
}

// NewCartRemove builds a cart_remove event from the removed entry
func NewCartRemove(entry domain.CartEntry) CartEvent {
	return CartEvent{Type: CartRemove, Item: itemFromEntry(entry)}
}

func itemFromEntry(entry domain.CartEntry) CartItem {
	return CartItem{
		Symbol:    entry.Symbol,
		Name:      entry.Name,
		Price:     entry.Price,
		Quantity:  entry.Quantity,
		AutoAdded: entry.AutoAdded,
	}
}

// UnmarshalJSON rejects unknown event types
func (e *CartEvent) UnmarshalJSON(data []byte) error {
	type Alias CartEvent
	aux := (*Alias)(e)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if !e.Type.Valid() {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}
