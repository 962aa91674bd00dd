// Package market simulates live stock prices and serves quotes to the rest of the system.
package market

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/aristath/stockcart/internal/domain"
	"github.com/aristath/stockcart/internal/utils"
	"github.com/rs/zerolog"
)

const (
	// historySize bounds the per-symbol price history kept for indicators
	historySize = 120
	// maxMovePct is the largest single-refresh move in either direction
	maxMovePct = 0.015
	// minPrice floors every simulated price
	minPrice = 1.0
)

// Stock is the public view of one simulated security
type Stock struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"` // percent move on the last refresh that touched this symbol
}

type seed struct {
	symbol string
	name   string
	price  float64
}

// defaultUniverse is the NSE large-cap set the simulator starts from
var defaultUniverse = []seed{
	{"RELIANCE", "Reliance Industries", 2800},
	{"TCS", "Tata Consultancy Services", 3900},
	{"HDFCBANK", "HDFC Bank", 1550},
	{"INFY", "Infosys", 1450},
	{"ICICIBANK", "ICICI Bank", 950},
	{"HINDUNILVR", "Hindustan Unilever", 2400},
	{"ITC", "ITC Limited", 420},
	{"SBIN", "State Bank of India", 580},
	{"BHARTIARTL", "Bharti Airtel", 850},
	{"KOTAKBANK", "Kotak Mahindra Bank", 1750},
	{"LT", "Larsen & Toubro", 2950},
	{"AXISBANK", "Axis Bank", 980},
	{"ASIANPAINT", "Asian Paints", 3200},
	{"MARUTI", "Maruti Suzuki", 9500},
	{"TITAN", "Titan Company", 3100},
	{"BAJFINANCE", "Bajaj Finance", 6800},
	{"WIPRO", "Wipro", 420},
	{"ULTRACEMCO", "UltraTech Cement", 8200},
	{"NESTLEIND", "Nestle India", 22000},
	{"HCLTECH", "HCL Technologies", 1250},
	{"SUNPHARMA", "Sun Pharma", 1150},
	{"POWERGRID", "Power Grid Corp", 245},
	{"NTPC", "NTPC", 185},
	{"TATASTEEL", "Tata Steel", 125},
	{"BAJAJFINSV", "Bajaj Finserv", 1580},
	{"TECHM", "Tech Mahindra", 1180},
	{"ONGC", "ONGC", 165},
	{"ADANIPORTS", "Adani Ports", 780},
	{"ZOMATO", "Zomato", 130},
	{"JSWSTEEL", "JSW Steel", 820},
}

type security struct {
	Stock
	history []float64
}

// Simulator is an in-memory random-walk price source
type Simulator struct {
	mu          sync.RWMutex
	stocks      map[string]*security
	rng         *rand.Rand
	lastRefresh time.Time
	log         zerolog.Logger
}

var _ domain.PriceSource = (*Simulator)(nil)

// NewSimulator creates a simulator seeded with the default universe
func NewSimulator(log zerolog.Logger) *Simulator {
	return NewSimulatorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())), log)
}

// NewSimulatorWithRand creates a simulator with a caller-controlled random source.
// Tests use it for deterministic walks.
func NewSimulatorWithRand(rng *rand.Rand, log zerolog.Logger) *Simulator {
	s := &Simulator{
		stocks: make(map[string]*security, len(defaultUniverse)),
		rng:    rng,
		log:    log.With().Str("service", "market_simulator").Logger(),
	}
	for _, sd := range defaultUniverse {
		s.stocks[sd.symbol] = &security{
			Stock:   Stock{Symbol: sd.symbol, Name: sd.name, Price: sd.price},
			history: []float64{sd.price},
		}
	}
	return s
}

// Quote implements domain.PriceSource
func (s *Simulator) Quote(ctx context.Context, symbol string) (domain.Quote, bool) {
	if ctx.Err() != nil {
		return domain.Quote{}, false
	}
	stock, ok := s.Get(symbol)
	if !ok {
		return domain.Quote{}, false
	}
	return domain.Quote{Symbol: stock.Symbol, Name: stock.Name, Price: stock.Price}, true
}

// Get returns one stock by symbol (case-insensitive)
func (s *Simulator) Get(symbol string) (Stock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.stocks[utils.NormalizeSymbol(symbol)]
	if !ok {
		return Stock{}, false
	}
	return sec.Stock, true
}

// All returns every stock sorted by symbol
func (s *Simulator) All() []Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Stock, 0, len(s.stocks))
	for _, sec := range s.stocks {
		out = append(out, sec.Stock)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// History returns a copy of the recorded prices for symbol, oldest first
func (s *Simulator) History(symbol string) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.stocks[utils.NormalizeSymbol(symbol)]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(sec.history))
	copy(out, sec.history)
	return out, true
}

// SetPrice pins a symbol's price, adding the symbol if it is unknown.
// Used for seeding demos and tests.
func (s *Simulator) SetPrice(symbol, name string, price float64) {
	symbol = utils.NormalizeSymbol(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.stocks[symbol]
	if !ok {
		sec = &security{Stock: Stock{Symbol: symbol, Name: name}}
		s.stocks[symbol] = sec
	}
	if name != "" {
		sec.Name = name
	}
	if sec.Price > 0 {
		sec.Change = round2((price - sec.Price) / sec.Price * 100)
	}
	sec.Price = price
	sec.appendHistory(price)
}

// Remove drops a symbol so it stops quoting
func (s *Simulator) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stocks, utils.NormalizeSymbol(symbol))
}

// Refresh moves a random subset of 5-15 stocks by up to ±1.5% each.
// Returns the number of stocks updated.
func (s *Simulator) Refresh() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols := make([]string, 0, len(s.stocks))
	for sym := range s.stocks {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	count := 5 + s.rng.Intn(11)
	if count > len(symbols) {
		count = len(symbols)
	}
	s.rng.Shuffle(len(symbols), func(i, j int) { symbols[i], symbols[j] = symbols[j], symbols[i] })

	for _, sym := range symbols[:count] {
		sec := s.stocks[sym]
		changePct := (s.rng.Float64()*2 - 1) * maxMovePct
		oldPrice := sec.Price
		newPrice := math.Max(minPrice, round2(oldPrice*(1+changePct)))

		sec.Change = round2((newPrice - oldPrice) / oldPrice * 100)
		sec.Price = newPrice
		sec.appendHistory(newPrice)
	}
	s.lastRefresh = time.Now()

	s.log.Info().Int("updated", count).Msg("Market tick")
	return count
}

// LastRefresh returns when prices last moved
func (s *Simulator) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

func (sec *security) appendHistory(price float64) {
	sec.history = append(sec.history, price)
	if len(sec.history) > historySize {
		sec.history = append(sec.history[:0], sec.history[len(sec.history)-historySize:]...)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
