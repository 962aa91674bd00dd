package notify

import (
	"fmt"
	"sync"
	"testing"

	"github.com/aristath/stockcart/internal/domain"
	"github.com/aristath/stockcart/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu       sync.Mutex
	received []events.CartEvent
	err      error
}

func (s *recordingSender) Send(event events.CartEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.received = append(s.received, event)
	return nil
}

func (s *recordingSender) events() []events.CartEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.CartEvent(nil), s.received...)
}

func testEvent(symbol string) events.CartEvent {
	return events.NewCartAdd(domain.CartEntry{Symbol: symbol, Name: symbol, Price: 100, Quantity: 1, AutoAdded: true})
}

func TestHub_BroadcastToAllOwnerConnections(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a, b, other := &recordingSender{}, &recordingSender{}, &recordingSender{}
	hub.Register("u1", a)
	hub.Register("u1", b)
	hub.Register("u2", other)

	delivered := hub.Broadcast("u1", testEvent("TCS"))

	assert.Equal(t, 2, delivered)
	assert.Len(t, a.events(), 1)
	assert.Len(t, b.events(), 1)
	assert.Empty(t, other.events(), "other users receive nothing")
}

func TestHub_BroadcastWithoutConnectionsIsNoop(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	assert.Equal(t, 0, hub.Broadcast("nobody", testEvent("TCS")))

	// Events are not queued for connections that arrive later
	late := &recordingSender{}
	hub.Register("nobody", late)
	assert.Empty(t, late.events())
}

func TestHub_FailingConnectionDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	broken := &recordingSender{err: ErrConnClosed}
	full := &recordingSender{err: ErrSendBufferFull}
	healthy := &recordingSender{}
	hub.Register("u1", broken)
	hub.Register("u1", full)
	hub.Register("u1", healthy)

	delivered := hub.Broadcast("u1", testEvent("INFY"))

	assert.Equal(t, 1, delivered)
	require.Len(t, healthy.events(), 1)
	assert.Equal(t, "INFY", healthy.events()[0].Item.Symbol)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	s := &recordingSender{}

	hub.Unregister("u1", s)
	hub.Register("u1", s)
	assert.Equal(t, 1, hub.ConnectionsFor("u1"))

	hub.Unregister("u1", s)
	hub.Unregister("u1", s)
	assert.Equal(t, 0, hub.ConnectionsFor("u1"))
	assert.Equal(t, 0, hub.Connections())
	assert.Equal(t, 0, hub.Broadcast("u1", testEvent("TCS")))
}

func TestHub_PreservesOrderPerConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	s := &recordingSender{}
	hub.Register("u1", s)

	for i := 0; i < 10; i++ {
		hub.Broadcast("u1", testEvent(fmt.Sprintf("S%d", i)))
	}

	got := s.events()
	require.Len(t, got, 10)
	for i, ev := range got {
		assert.Equal(t, fmt.Sprintf("S%d", i), ev.Item.Symbol)
	}
}

func TestHub_ConcurrentRegisterAndBroadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s := &recordingSender{}
			hub.Register("u1", s)
			hub.Unregister("u1", s)
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast("u1", testEvent("TCS"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.Connections())
}
