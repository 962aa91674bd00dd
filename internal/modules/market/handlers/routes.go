package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all market routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", h.HandleListStocks)
		r.Get("/{symbol}", h.HandleGetStock)
		r.Get("/{symbol}/indicators", h.HandleGetIndicators)
	})
}
