package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/aristath/signalist/internal/database"
	"github.com/aristath/signalist/internal/di"
	"github.com/aristath/signalist/internal/scheduler"
)

// SystemHandlers serves status and maintenance endpoints
type SystemHandlers struct {
	container *di.Container
	jobs      map[string]scheduler.Job
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers. jobs may be nil.
func NewSystemHandlers(container *di.Container, jobs *di.JobInstances, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		container: container,
		jobs:      make(map[string]scheduler.Job),
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}

	if jobs != nil {
		for _, j := range []scheduler.Job{jobs.NewsCacheCleanup, jobs.DeliveriesCleanup, jobs.WALCheckpoints, jobs.Maintenance} {
			h.jobs[j.Name()] = j
		}
	}
	return h
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	Mode          string  `json:"mode"` // "engine" or "local"
	Users         int     `json:"users"`
	NextDigest    string  `json:"next_digest,omitempty"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	ProcessRSSMB  float64 `json:"process_rss_mb"`
}

// HandleSystemStatus returns service status and host resource usage
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := SystemStatusResponse{
		Status:        "healthy",
		Mode:          "engine",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	if h.container.LocalMode() {
		response.Mode = "local"
		if h.container.Scheduler != nil {
			if next := h.container.Scheduler.Next(scheduler.JobDailyDigest); !next.IsZero() {
				response.NextDigest = next.UTC().Format(time.RFC3339)
			}
		}
	}

	count, err := h.container.UserRepo.Count(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to count users")
		response.Status = "degraded"
	}
	response.Users = count

	response.CPUPercent, response.MemoryPercent, response.ProcessRSSMB = h.getSystemStats(r.Context())

	h.writeJSON(w, http.StatusOK, response)
}

// getSystemStats samples CPU over a short window so the call stays fast
func (h *SystemHandlers) getSystemStats(ctx context.Context) (cpuPercent, memPercent, rssMB float64) {
	if samples, err := cpu.PercentWithContext(ctx, 100*time.Millisecond, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(samples) > 0 {
		cpuPercent = samples[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		memPercent = vm.UsedPercent
	}

	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfoWithContext(ctx); err == nil {
			rssMB = float64(info.RSS) / 1024 / 1024
		}
	}

	return cpuPercent, memPercent, rssMB
}

// DBInfo describes one database file
type DBInfo struct {
	Name  string          `json:"name"`
	Path  string          `json:"path"`
	Stats *database.Stats `json:"stats,omitempty"`
	Error string          `json:"error,omitempty"`
}

// HandleDatabaseStats returns size and page statistics for every database
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	dbs := h.container.Databases()
	infos := make([]DBInfo, 0, len(dbs))

	for _, name := range []string{database.NameSignalist, database.NameClientData} {
		db, ok := dbs[name]
		if !ok {
			continue
		}

		info := DBInfo{Name: name, Path: db.Path()}
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			info.Error = err.Error()
		} else {
			info.Stats = stats
		}
		infos = append(infos, info)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"databases":    infos,
		"last_checked": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleJobsStatus lists the jobs that can be triggered manually
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	type jobInfo struct {
		Name    string `json:"name"`
		NextRun string `json:"next_run,omitempty"`
	}

	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]jobInfo, 0, len(names))
	for _, name := range names {
		info := jobInfo{Name: name}
		if h.container.Scheduler != nil {
			if next := h.container.Scheduler.Next(name); !next.IsZero() {
				info.NextRun = next.UTC().Format(time.RFC3339)
			}
		}
		list = append(list, info)
	}

	h.writeJSON(w, http.StatusOK, list)
}

// HandleTriggerJob handles POST /api/system/jobs/{job}. The job runs synchronously.
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "job")
	job, ok := h.jobs[name]
	if !ok {
		http.Error(w, "Unknown job", http.StatusNotFound)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")

	if err := job.Run(); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": name + " completed",
	})
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
