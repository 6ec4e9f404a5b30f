package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth reports healthy when every database answers its integrity check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string)
	for name, db := range s.container.Databases() {
		if err := db.HealthCheck(ctx); err != nil {
			s.log.Error().Err(err).Str("database", name).Msg("Health check failed")
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "signalist",
		"databases": checks,
	}
	if status != http.StatusOK {
		response["status"] = "unhealthy"
	}

	s.writeJSON(w, status, response)
}

// handleRunDigest handles POST /api/digest/run.
// The digest runs asynchronously; the response only confirms it was requested.
func (s *Server) handleRunDigest(w http.ResponseWriter, r *http.Request) {
	if err := s.container.Publisher.PublishDailyNews(r.Context(), "manual"); err != nil {
		s.log.Error().Err(err).Msg("Failed to request daily digest")
		http.Error(w, "Failed to request daily digest", http.StatusBadGateway)
		return
	}

	s.log.Info().Msg("Daily digest requested manually")
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": "Daily digest requested",
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
