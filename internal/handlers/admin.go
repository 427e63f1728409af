package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"order-analysis/internal/database"
	"order-analysis/internal/services"
	"order-analysis/internal/workers"
)

// AdminHandler handles administrative operations
type AdminHandler struct {
	reporter    *services.Reporter
	snapshotJob *workers.SnapshotJob
	logger      *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(reporter *services.Reporter, snapshotJob *workers.SnapshotJob, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		reporter:    reporter,
		snapshotJob: snapshotJob,
		logger:      logger,
	}
}

// SnapshotStatusResponse represents the state of the snapshot scheduler
type SnapshotStatusResponse struct {
	Running bool                     `json:"running"`
	Paused  bool                     `json:"paused"`
	NextRun *time.Time               `json:"next_run,omitempty"`
	LastRun *workers.SnapshotSummary `json:"last_run,omitempty"`
}

// RunSnapshot handles POST /api/snapshots
func (h *AdminHandler) RunSnapshot(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Starting snapshot run via API")

	summary, err := h.snapshotJob.Run(r.Context(), database.TriggerRequest)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetSnapshotStatus handles GET /api/snapshots/status
func (h *AdminHandler) GetSnapshotStatus(w http.ResponseWriter, r *http.Request) {
	status := SnapshotStatusResponse{
		Running: h.snapshotJob.IsRunning(),
		Paused:  h.snapshotJob.IsPaused(),
		LastRun: h.snapshotJob.LastRun(),
	}
	if next := h.snapshotJob.NextRun(); !next.IsZero() {
		status.NextRun = &next
	}
	writeJSON(w, http.StatusOK, status)
}

// PauseSnapshots handles POST /api/snapshots/pause
func (h *AdminHandler) PauseSnapshots(w http.ResponseWriter, r *http.Request) {
	h.snapshotJob.Pause()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "paused",
		"message": "Scheduled snapshots have been paused",
	})
}

// ResumeSnapshots handles POST /api/snapshots/resume
func (h *AdminHandler) ResumeSnapshots(w http.ResponseWriter, r *http.Request) {
	h.snapshotJob.Resume()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "resumed",
		"message": "Scheduled snapshots have been resumed",
	})
}

// ListRuns handles GET /api/runs?limit=
func (h *AdminHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, h.logger, r, invalidParam("limit", s, strconv.ErrSyntax))
			return
		}
		limit = n
	}

	runs, err := h.reporter.Runs(limit)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/runs/{id}
func (h *AdminHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.reporter.Run(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// InvalidateResponse reports what a cache invalidation dropped.
type InvalidateResponse struct {
	Source      string `json:"source"`
	Invalidated bool   `json:"invalidated"`
	Age         string `json:"age,omitempty"`
}

// InvalidateCache handles POST /api/cache/invalidate
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	age, err := h.reporter.Invalidate()
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	resp := InvalidateResponse{Source: h.reporter.SourceName()}
	if age != nil {
		resp.Invalidated = true
		resp.Age = age.Round(time.Second).String()
	}
	h.logger.Info("Snapshot cache invalidated via API", "source", resp.Source, "invalidated", resp.Invalidated)
	writeJSON(w, http.StatusOK, resp)
}
