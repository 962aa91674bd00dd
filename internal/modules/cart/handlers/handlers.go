// Package handlers provides HTTP handlers for cart operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/stockcart/internal/auth"
	"github.com/aristath/stockcart/internal/domain"
	"github.com/aristath/stockcart/internal/modules/cart"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles cart HTTP requests
type Handler struct {
	service *cart.Service
	log     zerolog.Logger
}

// NewHandler creates a new cart handler
func NewHandler(service *cart.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "cart").Logger(),
	}
}

// HandleGetCart handles GET /api/cart
func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	entries, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list cart")
		http.Error(w, "Failed to load cart", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}

// HandleAdd handles POST /api/cart/add
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req cart.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity < 0 {
		http.Error(w, "quantity must not be negative", http.StatusBadRequest)
		return
	}

	entry, err := h.service.ManualAdd(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSymbol) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to add to cart")
		http.Error(w, "Failed to add to cart", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "ok",
		"item":   entry,
	})
}

// HandleRemove handles DELETE /api/cart/remove/{symbol}
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	symbol := chi.URLParam(r, "symbol")

	result, err := h.service.ManualRemove(r.Context(), userID, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSymbol) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Str("symbol", symbol).Msg("Failed to remove from cart")
		http.Error(w, "Failed to remove from cart", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "removed and bot deactivated for this stock",
		"removed":           result.Removed,
		"rules_deactivated": result.RulesDeactivated,
	})
}

// HandleBuy handles POST /api/cart/buy
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	n, err := h.service.Checkout(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to check out cart")
		http.Error(w, "Failed to check out", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "bought",
		"items":  n,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
