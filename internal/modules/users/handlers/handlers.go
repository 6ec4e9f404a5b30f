// Package handlers provides HTTP handlers for user signup and listing.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/modules/users"
)

// Publisher publishes the signup event that triggers the welcome email
type Publisher interface {
	PublishUserCreated(ctx context.Context, data domain.UserCreatedData) error
}

// Handler provides HTTP handlers for user endpoints
type Handler struct {
	repo      *users.Repository
	publisher Publisher
	log       zerolog.Logger
}

// NewHandler creates a new users handler
func NewHandler(repo *users.Repository, publisher Publisher, log zerolog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		publisher: publisher,
		log:       log.With().Str("handler", "users").Logger(),
	}
}

// RegisterRoutes registers user routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleSignUp)
	})
}

// HandleSignUp handles POST /api/users.
// The user is stored first; a publish failure is reported but the account stays.
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreatedData
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.repo.Create(r.Context(), domain.User{
		Email:             req.Email,
		Name:              req.Name,
		Country:           req.Country,
		InvestmentGoals:   req.InvestmentGoals,
		RiskTolerance:     req.RiskTolerance,
		PreferredIndustry: req.PreferredIndustry,
	})
	switch {
	case errors.Is(err, domain.ErrInvalidEmail):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, domain.ErrUserExists):
		http.Error(w, "User already exists", http.StatusConflict)
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to create user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"user":          user,
		"welcomeQueued": true,
	}

	if err := h.publisher.PublishUserCreated(r.Context(), domain.UserCreatedDataFrom(user)); err != nil {
		h.log.Error().Err(err).Str("email", user.Email).Msg("Failed to publish user created event")
		response["welcomeQueued"] = false
	}

	writeJSON(w, http.StatusCreated, response)
}

// HandleList handles GET /api/users
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list users")
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
