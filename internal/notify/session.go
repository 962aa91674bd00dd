package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/aristath/stockcart/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	// DefaultSendBuffer is the per-connection outbound queue length
	DefaultSendBuffer = 64
	// DefaultWriteTimeout bounds a single frame write
	DefaultWriteTimeout = 5 * time.Second
)

// SessionOptions configures a websocket session
type SessionOptions struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	OriginPatterns []string
}

// Session is one upgraded websocket connection.
// Outbound events are queued and written by a single goroutine, so a slow
// peer never blocks the broadcaster.
type Session struct {
	conn         *websocket.Conn
	codec        Codec
	out          chan events.CartEvent
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	log          zerolog.Logger
}

var _ Sender = (*Session)(nil)

// Accept upgrades the request and negotiates the event encoding
func Accept(w http.ResponseWriter, r *http.Request, opts SessionOptions, log zerolog.Logger) (*Session, error) {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{SubprotocolJSON, SubprotocolMsgpack},
		OriginPatterns: opts.OriginPatterns,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		conn:         conn,
		codec:        CodecFor(conn.Subprotocol()),
		out:          make(chan events.CartEvent, opts.SendBuffer),
		done:         make(chan struct{}),
		writeTimeout: opts.WriteTimeout,
		log:          log.With().Str("component", "ws_session").Str("remote", r.RemoteAddr).Logger(),
	}, nil
}

// Send queues event for delivery without blocking
func (s *Session) Send(event events.CartEvent) error {
	select {
	case <-s.done:
		return ErrConnClosed
	default:
	}

	select {
	case s.out <- event:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Run writes queued events and drains inbound frames until the peer
// disconnects or ctx is cancelled
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writeLoop(ctx)

	for {
		// Inbound messages carry nothing; reading keeps control frames flowing
		if _, _, err := s.conn.Read(ctx); err != nil {
			s.Close(websocket.StatusNormalClosure, "")
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// Close shuts the connection down once
func (s *Session) Close(code websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close(code, reason)
	})
}

func (s *Session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case event := <-s.out:
			if err := s.write(ctx, event); err != nil {
				s.log.Debug().Err(err).Msg("Write failed, closing session")
				s.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (s *Session) write(ctx context.Context, event events.CartEvent) error {
	data, err := s.codec.Encode(event)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	return s.conn.Write(writeCtx, s.codec.MessageType(), data)
}
