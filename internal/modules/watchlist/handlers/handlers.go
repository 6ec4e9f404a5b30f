// Package handlers provides HTTP handlers for watchlist management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/events"
	"github.com/aristath/signalist/internal/modules/watchlist"
)

// AddRequest is the body of POST /api/watchlist/{email}
type AddRequest struct {
	Symbol  string `json:"symbol"`
	Company string `json:"company"`
}

// Handler provides HTTP handlers for watchlist endpoints
type Handler struct {
	repo     *watchlist.Repository
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewHandler creates a new watchlist handler
func NewHandler(repo *watchlist.Repository, eventBus *events.Bus, log zerolog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		eventBus: eventBus,
		log:      log.With().Str("handler", "watchlist").Logger(),
	}
}

// RegisterRoutes registers watchlist routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/watchlist/{email}", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleAdd)
		r.Delete("/{symbol}", h.HandleRemove)
	})
}

// HandleList handles GET /api/watchlist/{email}
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	items, err := h.repo.ListByEmail(r.Context(), email)
	if errors.Is(err, domain.ErrUserNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("email", email).Msg("Failed to list watchlist")
		http.Error(w, "Failed to list watchlist", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// HandleAdd handles POST /api/watchlist/{email}
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if watchlist.CleanSymbol(req.Symbol) == "" {
		http.Error(w, "Symbol is required", http.StatusBadRequest)
		return
	}

	item, err := h.repo.Add(r.Context(), email, req.Symbol, req.Company)
	if errors.Is(err, domain.ErrUserNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("email", email).Str("symbol", req.Symbol).Msg("Failed to add to watchlist")
		http.Error(w, "Failed to add to watchlist", http.StatusInternalServerError)
		return
	}

	h.emit(email, item.Symbol, "added")
	writeJSON(w, http.StatusCreated, item)
}

// HandleRemove handles DELETE /api/watchlist/{email}/{symbol}
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	symbol := watchlist.CleanSymbol(chi.URLParam(r, "symbol"))

	removed, err := h.repo.Remove(r.Context(), email, symbol)
	if errors.Is(err, domain.ErrUserNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("email", email).Str("symbol", symbol).Msg("Failed to remove from watchlist")
		http.Error(w, "Failed to remove from watchlist", http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "Symbol not on watchlist", http.StatusNotFound)
		return
	}

	h.emit(email, symbol, "removed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) emit(email, symbol, action string) {
	if h.eventBus == nil {
		return
	}
	h.eventBus.Emit(events.WatchlistChanged, "watchlist", &events.WatchlistChangedData{
		Email:  email,
		Symbol: symbol,
		Action: action,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
