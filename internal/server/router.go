package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"order-analysis/internal/database"
	"order-analysis/internal/export"
	"order-analysis/internal/handlers"
	"order-analysis/internal/services"
	"order-analysis/internal/workers"
)

// Dependencies are the services the HTTP API is built on.
type Dependencies struct {
	DB            *database.DB
	Reporter      *services.Reporter
	SnapshotJob   *workers.SnapshotJob
	ExportOptions export.Options

	// AdminAPIKey protects mutating routes when set.
	AdminAPIKey string
	Logger      *slog.Logger
}

// NewRouter registers every API route with a chi router wrapped in the
// standard middleware stack.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	health := handlers.NewHealthHandler(deps.DB, deps.Reporter)
	config := handlers.NewConfigHandler(deps.Reporter)
	reports := handlers.NewReportHandler(deps.Reporter, deps.ExportOptions, logger)
	admin := handlers.NewAdminHandler(deps.Reporter, deps.SnapshotJob, logger)

	r := chi.NewRouter()
	r.Use(
		LoggingMiddleware(logger),
		RecoveryMiddleware(logger),
		CORSMiddleware,
		ContentTypeMiddleware,
		SecurityMiddleware,
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.HealthCheck)
		r.Get("/config", config.GetConfig)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", reports.GetReport)
			r.Get("/drivers", reports.GetDrivers)
			r.Get("/hubs", reports.GetHubs)
			r.Get("/vehicles", reports.GetVehicles)
			r.Get("/time-buckets/hubs", reports.GetHubTimes)
			r.Get("/time-buckets/customers", reports.GetCustomerTimes)
			r.Get("/{table}/export", reports.ExportTable)
		})

		r.Get("/runs", admin.ListRuns)
		r.Get("/runs/{id}", admin.GetRun)
		r.Get("/snapshots/status", admin.GetSnapshotStatus)

		r.Group(func(r chi.Router) {
			if deps.AdminAPIKey != "" {
				r.Use(AuthMiddleware(deps.AdminAPIKey, logger))
			}
			r.Post("/snapshots", admin.RunSnapshot)
			r.Post("/snapshots/pause", admin.PauseSnapshots)
			r.Post("/snapshots/resume", admin.ResumeSnapshots)
			r.Post("/cache/invalidate", admin.InvalidateCache)
		})
	})

	return r
}
