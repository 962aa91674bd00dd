package testing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aristath/stockcart/internal/domain"
	"github.com/aristath/stockcart/internal/events"
)

// ErrInjected is returned by mocks configured to fail
var ErrInjected = errors.New("injected failure")

// MockPriceSource is a mock implementation of domain.PriceSource for testing
type MockPriceSource struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
	delay  map[string]time.Duration
	panics map[string]bool
	calls  int
}

// NewMockPriceSource creates a new mock price source with no quotes
func NewMockPriceSource() *MockPriceSource {
	return &MockPriceSource{
		quotes: make(map[string]domain.Quote),
		delay:  make(map[string]time.Duration),
		panics: make(map[string]bool),
	}
}

// SetPrice sets the quote for symbol, using the symbol as its name
func (m *MockPriceSource) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[symbol] = domain.Quote{Symbol: symbol, Name: symbol + " Ltd", Price: price}
}

// Unavailable removes the quote for symbol
func (m *MockPriceSource) Unavailable(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quotes, symbol)
}

// SetDelay makes quotes for symbol block for d
func (m *MockPriceSource) SetDelay(symbol string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay[symbol] = d
}

// SetPanic makes quotes for symbol panic
func (m *MockPriceSource) SetPanic(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics[symbol] = true
}

// Calls returns how many quotes were requested
func (m *MockPriceSource) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Quote implements domain.PriceSource. Delays ignore the context on purpose,
// to model a source that never honors cancellation.
func (m *MockPriceSource) Quote(_ context.Context, symbol string) (domain.Quote, bool) {
	m.mu.Lock()
	m.calls++
	q, ok := m.quotes[symbol]
	d := m.delay[symbol]
	p := m.panics[symbol]
	m.mu.Unlock()

	if p {
		panic("price source exploded for " + symbol)
	}
	if d > 0 {
		time.Sleep(d)
	}
	return q, ok
}

// SentEvent is one event captured by RecordingNotifier
type SentEvent struct {
	UserID string
	Event  events.CartEvent
}

// RecordingNotifier captures broadcasts in order
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []SentEvent
}

// NewRecordingNotifier creates a new recording notifier
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// Broadcast records the event and reports one delivery
func (n *RecordingNotifier) Broadcast(userID string, event events.CartEvent) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, SentEvent{UserID: userID, Event: event})
	return 1
}

// Events returns a copy of everything broadcast so far
func (n *RecordingNotifier) Events() []SentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentEvent(nil), n.sent...)
}

// Reset forgets recorded events
func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

// FailingCartStore wraps a CartStore and fails every call for the given symbols
type FailingCartStore struct {
	domain.CartStore
	mu      sync.RWMutex
	symbols map[string]bool
}

// NewFailingCartStore wraps store
func NewFailingCartStore(store domain.CartStore) *FailingCartStore {
	return &FailingCartStore{CartStore: store, symbols: make(map[string]bool)}
}

// FailFor makes every call touching symbol return ErrInjected
func (s *FailingCartStore) FailFor(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols[symbol] = true
}

func (s *FailingCartStore) fails(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.symbols[symbol]
}

// Find implements domain.CartStore
func (s *FailingCartStore) Find(ctx context.Context, userID, symbol string) (*domain.CartEntry, error) {
	if s.fails(symbol) {
		return nil, ErrInjected
	}
	return s.CartStore.Find(ctx, userID, symbol)
}

// InsertAutoIfAbsent implements domain.CartStore
func (s *FailingCartStore) InsertAutoIfAbsent(ctx context.Context, entry domain.CartEntry) (bool, error) {
	if s.fails(entry.Symbol) {
		return false, ErrInjected
	}
	return s.CartStore.InsertAutoIfAbsent(ctx, entry)
}

// DeleteIfAuto implements domain.CartStore
func (s *FailingCartStore) DeleteIfAuto(ctx context.Context, userID, symbol string) (*domain.CartEntry, error) {
	if s.fails(symbol) {
		return nil, ErrInjected
	}
	return s.CartStore.DeleteIfAuto(ctx, userID, symbol)
}
