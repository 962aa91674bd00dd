// Package handlers provides HTTP handlers for automation rules.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/stockcart/internal/auth"
	"github.com/aristath/stockcart/internal/domain"
	"github.com/aristath/stockcart/internal/modules/rules"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles rule HTTP requests
type Handler struct {
	service *rules.Service
	log     zerolog.Logger
}

// NewHandler creates a new rules handler
func NewHandler(service *rules.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rules").Logger(),
	}
}

// HandleCreate handles POST /api/rules
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req rules.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rule, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSymbol) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to create rule")
		http.Error(w, "Failed to create rule", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, rule)
}

// HandleList handles GET /api/rules
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list rules")
		http.Error(w, "Failed to list rules", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, list)
}

// HandleDelete handles DELETE /api/rules/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			http.Error(w, "Rule not found or unauthorized", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("rule_id", id).Msg("Failed to delete rule")
		http.Error(w, "Failed to delete rule", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Rule deleted successfully"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
