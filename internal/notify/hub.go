// Package notify fans cart events out to each user's live connections.
package notify

import (
	"errors"
	"sync"

	"github.com/aristath/stockcart/internal/events"
	"github.com/rs/zerolog"
)

var (
	// ErrSendBufferFull is returned when a connection is not draining its queue
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrConnClosed is returned when sending to a connection that has gone away
	ErrConnClosed = errors.New("connection closed")
)

// Sender is one live connection. Send must not block.
type Sender interface {
	Send(event events.CartEvent) error
}

// Hub tracks live connections per user.
// All methods are safe for concurrent use.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[Sender]struct{}
	log   zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		conns: make(map[string]map[Sender]struct{}),
		log:   log.With().Str("component", "notify_hub").Logger(),
	}
}

// Register adds a live connection for userID
func (h *Hub) Register(userID string, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[userID]
	if !ok {
		set = make(map[Sender]struct{})
		h.conns[userID] = set
	}
	set[s] = struct{}{}

	h.log.Debug().Str("user_id", userID).Int("connections", len(set)).Msg("Connection registered")
}

// Unregister removes a connection. Removing an unknown connection is a no-op.
func (h *Hub) Unregister(userID string, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[userID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.conns, userID)
	}

	h.log.Debug().Str("user_id", userID).Int("connections", len(set)).Msg("Connection unregistered")
}

// Broadcast delivers event to every connection registered for userID and
// returns how many accepted it. Events for users with no connections are dropped.
func (h *Hub) Broadcast(userID string, event events.CartEvent) int {
	h.mu.RLock()
	set := h.conns[userID]
	targets := make([]Sender, 0, len(set))
	for s := range set {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if err := s.Send(event); err != nil {
			h.log.Debug().
				Err(err).
				Str("user_id", userID).
				Str("event_type", string(event.Type)).
				Msg("Dropped event for connection")
			continue
		}
		delivered++
	}
	return delivered
}

// Connections returns the number of live connections across all users
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.conns {
		n += len(set)
	}
	return n
}

// ConnectionsFor returns the number of live connections for userID
func (h *Hub) ConnectionsFor(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}
