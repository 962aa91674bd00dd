package cart

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/stockcart/internal/database"
	"github.com/aristath/stockcart/internal/domain"
	"github.com/aristath/stockcart/internal/utils"
	"github.com/rs/zerolog"
)

// RuleDeactivator deactivates rules as part of a cart transaction.
// Implemented by rules.Repository.
type RuleDeactivator interface {
	DeactivateAllTx(ctx context.Context, tx *sql.Tx, userID, symbol string) (int64, error)
}

// AddRequest is a manual cart addition
type AddRequest struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// RemoveResult describes what a manual removal changed
type RemoveResult struct {
	Removed          bool  `json:"removed"`
	RulesDeactivated int64 `json:"rules_deactivated"`
}

// Service implements the user-facing cart operations.
// It shares the per-(user, symbol) lock with the automation engine.
type Service struct {
	db     *sql.DB
	repo   *Repository
	rules  RuleDeactivator
	prices domain.PriceSource
	locks  *utils.KeyedMutex
	log    zerolog.Logger

	quoteTimeout time.Duration
}

// DefaultQuoteTimeout bounds the price lookup in ManualAdd
const DefaultQuoteTimeout = 2 * time.Second

// NewService creates a new cart service.
// prices may be nil; it is only used to fill in a missing name or price.
func NewService(
	db *sql.DB,
	repo *Repository,
	rules RuleDeactivator,
	prices domain.PriceSource,
	locks *utils.KeyedMutex,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		rules:  rules,
		prices: prices,
		locks:  locks,
		log:    log.With().Str("service", "cart").Logger(),

		quoteTimeout: DefaultQuoteTimeout,
	}
}

// WithQuoteTimeout overrides the price lookup bound. Non-positive values are ignored.
func (s *Service) WithQuoteTimeout(d time.Duration) *Service {
	if d > 0 {
		s.quoteTimeout = d
	}
	return s
}

// List returns the user's cart
func (s *Service) List(ctx context.Context, userID string) ([]domain.CartEntry, error) {
	return s.repo.ListByOwner(ctx, userID)
}

// ManualAdd adds req.Quantity (default 1) of a symbol to the user's cart.
// The resulting entry is always manual, so the engine will never remove it.
func (s *Service) ManualAdd(ctx context.Context, userID string, req AddRequest) (domain.CartEntry, error) {
	if !utils.ValidSymbol(req.Symbol) {
		return domain.CartEntry{}, fmt.Errorf("%w: %q", domain.ErrInvalidSymbol, req.Symbol)
	}
	symbol := utils.NormalizeSymbol(req.Symbol)

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	entry := domain.CartEntry{
		UserID: userID,
		Symbol: symbol,
		Name:   req.Name,
		Price:  req.Price,
	}
	if (entry.Name == "" || entry.Price <= 0) && s.prices != nil {
		if quote, ok := s.lookupQuote(ctx, symbol); ok {
			if entry.Name == "" {
				entry.Name = quote.Name
			}
			if entry.Price <= 0 {
				entry.Price = quote.Price
			}
		}
	}
	if entry.Name == "" {
		entry.Name = symbol
	}

	unlock := s.locks.Lock(utils.CartKey(userID, symbol))
	defer unlock()

	if err := s.repo.UpsertManual(ctx, entry, quantity); err != nil {
		return domain.CartEntry{}, err
	}

	stored, err := s.repo.Find(ctx, userID, symbol)
	if err != nil {
		return domain.CartEntry{}, err
	}
	if stored == nil {
		return domain.CartEntry{}, fmt.Errorf("cart entry %s vanished after upsert", symbol)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("symbol", symbol).
		Int("quantity", stored.Quantity).
		Msg("Manually added to cart")

	return *stored, nil
}

// ManualRemove deletes the entry and deactivates every active rule for the
// symbol in one transaction, so the engine cannot re-add it on the next tick.
func (s *Service) ManualRemove(ctx context.Context, userID, symbol string) (RemoveResult, error) {
	symbol = utils.NormalizeSymbol(symbol)
	if symbol == "" {
		return RemoveResult{}, domain.ErrInvalidSymbol
	}

	unlock := s.locks.Lock(utils.CartKey(userID, symbol))
	defer unlock()

	var result RemoveResult
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		removed, err := s.repo.DeleteTx(ctx, tx, userID, symbol)
		if err != nil {
			return err
		}
		deactivated, err := s.rules.DeactivateAllTx(ctx, tx, userID, symbol)
		if err != nil {
			return err
		}
		result = RemoveResult{Removed: removed, RulesDeactivated: deactivated}
		return nil
	})
	if err != nil {
		return RemoveResult{}, fmt.Errorf("failed to remove %s from cart: %w", symbol, err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("symbol", symbol).
		Bool("removed", result.Removed).
		Int64("rules_deactivated", result.RulesDeactivated).
		Msg("Manually removed from cart")

	return result, nil
}

// Checkout empties the user's cart. Order execution is not implemented;
// this only clears the cart, matching the buy stub.
func (s *Service) Checkout(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.log.Info().Str("user_id", userID).Int64("items", n).Msg("Cart checked out")
	return n, nil
}

// lookupQuote bounds the price source call by quoteTimeout even when the
// source ignores its context. A timeout or panic counts as no quote.
func (s *Service) lookupQuote(ctx context.Context, symbol string) (domain.Quote, bool) {
	qctx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
	defer cancel()

	type result struct {
		quote domain.Quote
		ok    bool
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Str("symbol", symbol).Interface("panic", r).Msg("Price source panicked")
				ch <- result{}
			}
		}()
		q, ok := s.prices.Quote(qctx, symbol)
		ch <- result{quote: q, ok: ok}
	}()

	select {
	case r := <-ch:
		return r.quote, r.ok
	case <-qctx.Done():
		s.log.Warn().Str("symbol", symbol).Dur("timeout", s.quoteTimeout).Msg("Quote timed out")
		return domain.Quote{}, false
	}
}
