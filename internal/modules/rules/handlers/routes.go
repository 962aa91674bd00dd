package handlers

import (
	"github.com/aristath/stockcart/internal/auth"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rule routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rules", func(r chi.Router) {
		r.Use(auth.RequireUser)

		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Delete("/{id}", h.HandleDelete)
	})
}
