// Package handlers provides HTTP handlers for market data.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aristath/stockcart/internal/modules/market"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles market HTTP requests
type Handler struct {
	sim *market.Simulator
	log zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(sim *market.Simulator, log zerolog.Logger) *Handler {
	return &Handler{
		sim: sim,
		log: log.With().Str("handler", "market").Logger(),
	}
}

// HandleListStocks handles GET /api/stocks
func (h *Handler) HandleListStocks(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.sim.All())
}

// HandleGetStock handles GET /api/stocks/{symbol}
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	stock, ok := h.sim.Get(symbol)
	if !ok {
		http.Error(w, "Stock not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, stock)
}

// HandleGetIndicators handles GET /api/stocks/{symbol}/indicators?period=N
func (h *Handler) HandleGetIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	period := market.DefaultIndicatorPeriod
	if raw := r.URL.Query().Get("period"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 2 || p > 100 {
			http.Error(w, "period must be an integer between 2 and 100", http.StatusBadRequest)
			return
		}
		period = p
	}

	history, ok := h.sim.History(symbol)
	if !ok {
		http.Error(w, "Stock not found", http.StatusNotFound)
		return
	}

	stock, _ := h.sim.Get(symbol)
	h.writeJSON(w, http.StatusOK, market.ComputeIndicators(stock.Symbol, history, period))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
