package handlers

import (
	"github.com/aristath/stockcart/internal/auth"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all cart routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(auth.RequireUser)

		r.Get("/", h.HandleGetCart)
		r.Post("/add", h.HandleAdd)
		r.Delete("/remove/{symbol}", h.HandleRemove)
		r.Post("/buy", h.HandleBuy)
	})
}
