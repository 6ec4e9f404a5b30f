// Package handlers provides HTTP handlers for settings management.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/events"
	"github.com/aristath/signalist/internal/modules/settings"
)

// Handler provides HTTP handlers for settings endpoints
type Handler struct {
	repo     *settings.Repository
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(repo *settings.Repository, eventBus *events.Bus, log zerolog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		eventBus: eventBus,
		log:      log.With().Str("handler", "settings").Logger(),
	}
}

// RegisterRoutes registers settings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.HandleGetAll)
		r.Put("/{key}", h.HandleUpdate)
		r.Delete("/{key}", h.HandleReset)
	})
}

// HandleGetAll handles GET /api/settings.
// Every known key is returned; secrets are masked.
func (h *Handler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	stored, err := h.repo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get all settings")
		http.Error(w, "Failed to get settings", http.StatusInternalServerError)
		return
	}

	result := make(map[string]string, len(settings.SettingDefaults))
	for key, def := range settings.SettingDefaults {
		value := def
		if v, ok := stored[key]; ok {
			value = v
		}
		result[key] = settings.Mask(key, value)
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleUpdate handles PUT /api/settings/{key}.
// Credential changes take effect on the next restart.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !settings.IsKnown(key) {
		http.Error(w, "Unknown setting", http.StatusNotFound)
		return
	}

	var update settings.SettingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var description *string
	if d, ok := settings.SettingDescriptions[key]; ok {
		description = &d
	}

	if err := h.repo.Set(key, update.Value, description); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to update setting")
		http.Error(w, "Failed to update setting", http.StatusInternalServerError)
		return
	}

	h.log.Info().Str("key", key).Msg("Setting updated")

	if h.eventBus != nil {
		h.eventBus.Emit(events.SettingsChanged, "settings", &events.SettingsChangedData{Key: key})
	}

	writeJSON(w, http.StatusOK, map[string]string{key: settings.Mask(key, update.Value)})
}

// HandleReset handles DELETE /api/settings/{key}.
// The stored value is removed so the environment value applies again.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !settings.IsKnown(key) {
		http.Error(w, "Unknown setting", http.StatusNotFound)
		return
	}

	if err := h.repo.Delete(key); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to reset setting")
		http.Error(w, "Failed to reset setting", http.StatusInternalServerError)
		return
	}

	h.log.Info().Str("key", key).Msg("Setting reset")

	if h.eventBus != nil {
		h.eventBus.Emit(events.SettingsChanged, "settings", &events.SettingsChangedData{Key: key})
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
