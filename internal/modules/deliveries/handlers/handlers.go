// Package handlers provides HTTP handlers for the delivery log.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/modules/deliveries"
)

// Handler provides HTTP handlers for delivery endpoints
type Handler struct {
	repo *deliveries.Repository
	log  zerolog.Logger
}

// NewHandler creates a new deliveries handler
func NewHandler(repo *deliveries.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "deliveries").Logger(),
	}
}

// RegisterRoutes registers delivery routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/deliveries", h.HandleList)
}

// HandleList handles GET /api/deliveries?recipient=&limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := deliveries.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			http.Error(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	list, err := h.repo.List(r.Context(), r.URL.Query().Get("recipient"), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list deliveries")
		http.Error(w, "Failed to list deliveries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}
