package handlers

import (
	"net/http"

	"order-analysis/internal/cache"
	"order-analysis/internal/database"
	"order-analysis/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db       *database.DB
	reporter *services.Reporter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, reporter *services.Reporter) *HealthHandler {
	return &HealthHandler{db: db, reporter: reporter}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Database string            `json:"database"`
	Source   string            `json:"source"`
	Cache    *cache.CacheStats `json:"cache,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:   "healthy",
		Database: "ok",
		Source:   h.reporter.SourceName(),
	}

	if err := h.db.IsHealthy(); err != nil {
		response.Status = "unhealthy"
		response.Database = "error"
		response.Message = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	if stats, err := h.reporter.CacheStats(); err == nil {
		response.Cache = stats
	}

	writeJSON(w, http.StatusOK, response)
}
