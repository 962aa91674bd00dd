package testing

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aristath/stockcart/internal/domain"
)

var ruleSeq atomic.Int64

// NewRuleFixture returns an active rule with a unique id
func NewRuleFixture(userID, symbol string, minPrice, maxPrice float64, quantity int) domain.Rule {
	seq := ruleSeq.Add(1)
	return domain.Rule{
		ID:        fmt.Sprintf("rule-%s-%s-%d", userID, symbol, seq),
		UserID:    userID,
		Symbol:    symbol,
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		Quantity:  quantity,
		Active:    true,
		CreatedAt: time.Unix(1700000000+seq, 0).UTC(),
	}
}

// NewManualEntryFixture returns a manually added cart entry
func NewManualEntryFixture(userID, symbol string, price float64, quantity int) domain.CartEntry {
	return domain.CartEntry{
		UserID:   userID,
		Symbol:   symbol,
		Name:     symbol + " Ltd",
		Price:    price,
		Quantity: quantity,
	}
}
