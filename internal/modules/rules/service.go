package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/stockcart/internal/domain"
	"github.com/aristath/stockcart/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CreateRequest is the user input for a new rule
type CreateRequest struct {
	Symbol   string  `json:"symbol"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
	Quantity int     `json:"quantity"`
}

// Service implements the user-facing rule operations
type Service struct {
	store domain.RuleStore
	log   zerolog.Logger
}

// NewService creates a new rule service
func NewService(store domain.RuleStore, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("service", "rules").Logger(),
	}
}

// Create stores a new active rule for userID.
// The symbol is normalized and a missing quantity defaults to 1.
// Bounds are stored as given; inverted bounds simply never match.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (domain.Rule, error) {
	if !utils.ValidSymbol(req.Symbol) {
		return domain.Rule{}, fmt.Errorf("%w: %q", domain.ErrInvalidSymbol, req.Symbol)
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	rule := domain.Rule{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    utils.NormalizeSymbol(req.Symbol),
		MinPrice:  req.MinPrice,
		MaxPrice:  req.MaxPrice,
		Quantity:  quantity,
		Active:    true,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	if rule.MinPrice > rule.MaxPrice {
		s.log.Warn().
			Str("user_id", userID).
			Str("symbol", rule.Symbol).
			Float64("min_price", rule.MinPrice).
			Float64("max_price", rule.MaxPrice).
			Msg("Rule has inverted bounds and will never match")
	}

	if err := s.store.Create(ctx, rule); err != nil {
		return domain.Rule{}, err
	}
	return rule, nil
}

// List returns the user's rules
func (s *Service) List(ctx context.Context, userID string) ([]domain.Rule, error) {
	return s.store.ListByOwner(ctx, userID)
}

// Delete removes one of the user's rules, returning domain.ErrRuleNotFound
// when it does not exist or belongs to someone else
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	found, err := s.store.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrRuleNotFound
	}
	return nil
}
