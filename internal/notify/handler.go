package notify

import (
	"net/http"

	"github.com/aristath/stockcart/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler upgrades websocket requests and registers them with the hub
type Handler struct {
	hub  *Hub
	opts SessionOptions
	log  zerolog.Logger
}

// NewHandler creates a new websocket handler
func NewHandler(hub *Hub, opts SessionOptions, log zerolog.Logger) *Handler {
	return &Handler{
		hub:  hub,
		opts: opts,
		log:  log.With().Str("handler", "websocket").Logger(),
	}
}

// RegisterRoutes registers the websocket routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.ServeHTTP)
	r.Get("/ws/{user_id}", h.ServeHTTP)
}

// ServeHTTP handles GET /ws and GET /ws/{user_id}.
// The identity always comes from the auth layer; a path id must match it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := auth.FromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if pathID := chi.URLParam(r, "user_id"); pathID != "" && pathID != userID {
		h.log.Warn().Str("user_id", userID).Str("path_user_id", pathID).Msg("Websocket subscription for another user rejected")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	session, err := Accept(w, r, h.opts, h.log)
	if err != nil {
		// Accept has already written the HTTP error
		h.log.Warn().Err(err).Str("user_id", userID).Msg("Websocket upgrade failed")
		return
	}

	h.hub.Register(userID, session)
	defer h.hub.Unregister(userID, session)

	h.log.Info().Str("user_id", userID).Msg("Client connected")

	if err := session.Run(r.Context()); err != nil {
		h.log.Debug().Err(err).Str("user_id", userID).Msg("Session ended with error")
	}

	h.log.Info().Str("user_id", userID).Msg("Client disconnected")
}
