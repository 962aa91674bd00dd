package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aristath/stockcart/internal/auth"
)

// ContactRequest is a support message from the contact form
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "stockcart",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleContact logs a support message. Delivery is not wired to any mail provider.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "email and message are required", http.StatusBadRequest)
		return
	}

	s.log.Info().
		Str("name", req.Name).
		Str("email", req.Email).
		Str("subject", req.Subject).
		Int("message_length", len(req.Message)).
		Msg("Support message received")

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Email sent to support.",
	})
}

// handleListOrders handles GET /api/orders. Orders are not persisted yet.
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	s.log.Debug().Str("user_id", auth.UserID(r.Context())).Msg("Listing orders")
	s.writeJSON(w, http.StatusOK, []interface{}{})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
