// Package automation evaluates price-range rules against live quotes and
// keeps each user's cart in step with them.
package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/stockcart/internal/domain"
	"github.com/aristath/stockcart/internal/events"
	"github.com/aristath/stockcart/internal/utils"
	"github.com/rs/zerolog"
)

// DefaultQuoteTimeout bounds a single price fetch
const DefaultQuoteTimeout = 2 * time.Second

// Notifier delivers cart events to a user's live connections
type Notifier interface {
	Broadcast(userID string, event events.CartEvent) int
}

// Action is what one (user, symbol) evaluation did to the cart
type Action string

const (
	ActionNone         Action = "none"
	ActionAdded        Action = "added"
	ActionPriceUpdated Action = "price_updated"
	ActionRemoved      Action = "removed"
	ActionUnavailable  Action = "unavailable"
	ActionInactive     Action = "inactive"
	ActionFailed       Action = "failed"
)

// TickSummary counts the outcomes of one tick
type TickSummary struct {
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	Rules       int           `json:"rules"`
	Added       int           `json:"added"`
	Removed     int           `json:"removed"`
	Updated     int           `json:"updated"`
	Unavailable int           `json:"unavailable"`
	Failed      int           `json:"failed"`
}

func (s *TickSummary) record(action Action) {
	switch action {
	case ActionAdded:
		s.Added++
	case ActionRemoved:
		s.Removed++
	case ActionPriceUpdated:
		s.Updated++
	case ActionUnavailable:
		s.Unavailable++
	case ActionFailed:
		s.Failed++
	}
}

// Config holds engine tuning
type Config struct {
	// QuoteTimeout bounds each price fetch; a timeout counts as "no quote"
	QuoteTimeout time.Duration
	// SlowTick logs a warning when a tick takes longer. Zero disables it.
	SlowTick time.Duration
}

// Engine runs the automation tick.
// It shares locks with the cart service so that every check-then-mutate
// sequence for one (user, symbol) is serialized against manual operations.
type Engine struct {
	rules    domain.RuleStore
	cart     domain.CartStore
	prices   domain.PriceSource
	notifier Notifier
	locks    *utils.KeyedMutex
	cfg      Config
	log      zerolog.Logger

	mu   sync.RWMutex
	last TickSummary
}

// NewEngine creates a new automation engine
func NewEngine(
	rules domain.RuleStore,
	cart domain.CartStore,
	prices domain.PriceSource,
	notifier Notifier,
	locks *utils.KeyedMutex,
	cfg Config,
	log zerolog.Logger,
) *Engine {
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = DefaultQuoteTimeout
	}
	return &Engine{
		rules:    rules,
		cart:     cart,
		prices:   prices,
		notifier: notifier,
		locks:    locks,
		cfg:      cfg,
		log:      log.With().Str("component", "automation_engine").Logger(),
	}
}

// Name returns the scheduler job name
func (e *Engine) Name() string {
	return "automation_tick"
}

// Run executes one tick as a scheduler job
func (e *Engine) Run(ctx context.Context) error {
	_, err := e.Tick(ctx)
	return err
}

// LastTick returns the summary of the most recent completed tick
func (e *Engine) LastTick() TickSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Tick evaluates every rule that is active when the tick starts.
// Rules are grouped by (user, symbol) and each group is decided once, so
// overlapping or disjoint bands for one symbol never fight over the entry.
// Failures are isolated to the group that caused them; only a failure to
// load the rule snapshot is returned.
func (e *Engine) Tick(ctx context.Context) (TickSummary, error) {
	defer utils.OperationTimer("automation_tick", e.cfg.SlowTick, e.log)()

	summary := TickSummary{StartedAt: time.Now()}

	rules, err := e.rules.ListActive(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to load active rules: %w", err)
	}
	summary.Rules = len(rules)

	for _, group := range groupRules(rules) {
		if ctx.Err() != nil {
			// Shutdown: stop scheduling work, keep what is done
			break
		}
		summary.record(e.evaluateSafely(ctx, group))
	}

	summary.Duration = time.Since(summary.StartedAt)

	e.mu.Lock()
	e.last = summary
	e.mu.Unlock()

	if summary.Added > 0 || summary.Removed > 0 || summary.Failed > 0 {
		e.log.Info().
			Int("rules", summary.Rules).
			Int("added", summary.Added).
			Int("removed", summary.Removed).
			Int("failed", summary.Failed).
			Msg("Automation tick completed")
	}

	return summary, nil
}

// groupRules buckets rules by (user, symbol), keeping first-seen group order
// and created_at order inside each group
func groupRules(rules []domain.Rule) [][]domain.Rule {
	index := make(map[string]int)
	var groups [][]domain.Rule
	for _, rule := range rules {
		key := utils.CartKey(rule.UserID, rule.Symbol)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], rule)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(a, b int) bool { return g[a].CreatedAt.Before(g[b].CreatedAt) })
	}
	return groups
}

func (e *Engine) evaluateSafely(ctx context.Context, group []domain.Rule) (action Action) {
	lead := group[0]
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("rule_id", lead.ID).
				Str("symbol", lead.Symbol).
				Interface("panic", r).
				Msg("Rule evaluation panicked")
			action = ActionFailed
		}
	}()

	action, err := e.Evaluate(ctx, group)
	if err != nil {
		e.log.Error().
			Err(err).
			Str("rule_id", lead.ID).
			Str("user_id", lead.UserID).
			Str("symbol", lead.Symbol).
			Int("rules", len(group)).
			Msg("Rule evaluation failed")
		return ActionFailed
	}
	return action
}

// Evaluate applies the rules for one (user, symbol) against the current quote.
// Every rule in group must share the first rule's user and symbol.
func (e *Engine) Evaluate(ctx context.Context, group []domain.Rule) (Action, error) {
	if len(group) == 0 {
		return ActionNone, nil
	}
	lead := group[0]
	for _, rule := range group[1:] {
		if rule.UserID != lead.UserID || rule.Symbol != lead.Symbol {
			return ActionFailed, fmt.Errorf("rule %s is not for %s/%s", rule.ID, lead.UserID, lead.Symbol)
		}
	}

	quote, ok := e.fetchQuote(ctx, lead.Symbol)
	if !ok {
		return ActionUnavailable, nil
	}

	action, event, err := e.apply(ctx, group, quote)
	if err != nil {
		return ActionFailed, err
	}

	// Sent after the key lock is released so a slow hub never holds up the cart
	if event != nil && e.notifier != nil {
		e.notifier.Broadcast(lead.UserID, *event)
	}
	return action, nil
}

// apply runs the decision table under the (user, symbol) lock.
// The symbol is in range when any still-active rule matches; the earliest
// matching rule supplies the insert quantity.
func (e *Engine) apply(ctx context.Context, group []domain.Rule, quote domain.Quote) (Action, *events.CartEvent, error) {
	lead := group[0]
	unlock := e.locks.Lock(utils.CartKey(lead.UserID, lead.Symbol))
	defer unlock()

	var match *domain.Rule
	anyActive := false
	for i := range group {
		// A manual remove may have deactivated rules since the snapshot
		active, err := e.rules.IsActive(ctx, group[i].ID)
		if err != nil {
			return ActionFailed, nil, err
		}
		if !active {
			continue
		}
		anyActive = true
		if match == nil && group[i].InRange(quote.Price) {
			match = &group[i]
		}
	}
	if !anyActive {
		return ActionInactive, nil, nil
	}

	entry, err := e.cart.Find(ctx, lead.UserID, lead.Symbol)
	if err != nil {
		return ActionFailed, nil, err
	}

	switch {
	case match != nil && entry == nil:
		return e.insert(ctx, *match, quote)

	case match != nil:
		if entry.Price == quote.Price {
			return ActionNone, nil, nil
		}
		if _, err := e.cart.UpdatePrice(ctx, lead.UserID, lead.Symbol, quote.Price); err != nil {
			return ActionFailed, nil, err
		}
		return ActionPriceUpdated, nil, nil

	case entry != nil && entry.AutoAdded:
		removed, err := e.cart.DeleteIfAuto(ctx, lead.UserID, lead.Symbol)
		if err != nil {
			return ActionFailed, nil, err
		}
		if removed == nil {
			// Taken over by a manual write from another process
			return ActionNone, nil, nil
		}
		removed.Price = quote.Price

		e.log.Info().
			Str("user_id", lead.UserID).
			Str("symbol", lead.Symbol).
			Float64("price", quote.Price).
			Msg("Auto-removed from cart, price out of range")

		event := events.NewCartRemove(*removed)
		return ActionRemoved, &event, nil
	}

	// Out of range with no entry, or a manual entry the engine never touches
	return ActionNone, nil, nil
}

func (e *Engine) insert(ctx context.Context, rule domain.Rule, quote domain.Quote) (Action, *events.CartEvent, error) {
	quantity := rule.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	name := quote.Name
	if name == "" {
		name = rule.Symbol
	}

	entry := domain.CartEntry{
		UserID:    rule.UserID,
		Symbol:    rule.Symbol,
		Name:      name,
		Price:     quote.Price,
		Quantity:  quantity,
		AutoAdded: true,
	}

	inserted, err := e.cart.InsertAutoIfAbsent(ctx, entry)
	if err != nil {
		return ActionFailed, nil, err
	}
	if !inserted {
		// Another writer got there first; the entry exists, so refresh its price
		if _, err := e.cart.UpdatePrice(ctx, rule.UserID, rule.Symbol, quote.Price); err != nil {
			return ActionFailed, nil, err
		}
		return ActionPriceUpdated, nil, nil
	}

	e.log.Info().
		Str("user_id", rule.UserID).
		Str("symbol", rule.Symbol).
		Float64("price", quote.Price).
		Int("quantity", quantity).
		Msg("Auto-added to cart, price in range")

	event := events.NewCartAdd(entry)
	return ActionAdded, &event, nil
}

// fetchQuote bounds the price source call by the quote timeout even when the
// source ignores its context
func (e *Engine) fetchQuote(ctx context.Context, symbol string) (domain.Quote, bool) {
	qctx, cancel := context.WithTimeout(ctx, e.cfg.QuoteTimeout)
	defer cancel()

	type result struct {
		quote domain.Quote
		ok    bool
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error().Str("symbol", symbol).Interface("panic", r).Msg("Price source panicked")
				ch <- result{}
			}
		}()
		q, ok := e.prices.Quote(qctx, symbol)
		ch <- result{quote: q, ok: ok}
	}()

	select {
	case r := <-ch:
		return r.quote, r.ok
	case <-qctx.Done():
		e.log.Warn().Str("symbol", symbol).Dur("timeout", e.cfg.QuoteTimeout).Msg("Quote timed out")
		return domain.Quote{}, false
	}
}
