package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"order-analysis/internal/cache"
	"order-analysis/internal/config"
	"order-analysis/internal/database"
	"order-analysis/internal/export"
	"order-analysis/internal/server"
	"order-analysis/internal/services"
	"order-analysis/internal/source"
	"order-analysis/internal/workers"
)

func main() {
	// Load configuration
	cfg, err := config.LoadServerConfigWithEnvFile(os.Getenv("ORDER_REPORT_ENV_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Initialize database
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	logger.Info("Database initialized", "path", cfg.DBPath)

	cacheManager := cache.NewManager(db.Snapshots, cfg.DisableCache, cfg.CacheTTL, logger)

	src, err := source.New(ctx, cfg.SourceConfig(), logger)
	if err != nil {
		cacheManager.Close()
		db.Close()
		return err
	}
	logger.Info("Order source configured", "source", src.Name(), "cache_ttl", cfg.CacheTTL, "cache_disabled", cfg.DisableCache)

	reporter := services.NewReporter(src, cacheManager, db.Runs, cfg.ReportConfig(), logger)

	var sink export.Sink = export.LocalSink{Dir: cfg.ExportDir}
	if s3cfg := cfg.S3Config(); s3cfg != nil {
		s3Sink, err := export.NewS3Sink(ctx, *s3cfg)
		if err != nil {
			cacheManager.Close()
			db.Close()
			return err
		}
		sink = s3Sink
		logger.Info("Exports go to S3", "bucket", s3cfg.Bucket, "prefix", s3cfg.Prefix)
	} else {
		logger.Info("Exports go to local directory", "dir", cfg.ExportDir)
	}

	exportOptions := export.Options{ChromePath: cfg.ChromePath}
	exporter := export.NewExporter(sink, exportOptions, logger)

	snapshotJob := workers.NewSnapshotJob(workers.SnapshotConfig{
		Enabled:   cfg.SnapshotEnabled,
		Schedule:  cfg.SnapshotSchedule,
		Formats:   cfg.SnapshotFormats,
		Tables:    cfg.ExportTables,
		Retention: cfg.RunRetention,
	}, reporter, exporter, logger)
	if err := snapshotJob.Start(); err != nil {
		cacheManager.Close()
		db.Close()
		return err
	}

	router := server.NewRouter(server.Dependencies{
		DB:            db,
		Reporter:      reporter,
		SnapshotJob:   snapshotJob,
		ExportOptions: exportOptions,
		AdminAPIKey:   cfg.AdminAPIKey,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: router,

		// Timeouts. Report computation and PNG rendering can take a while.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Server configured", "address", cfg.Address(), "admin_auth", cfg.AdminAPIKey != "")

	// Shutdown hooks run in order once the listener has drained.
	return server.HandleSignals(srv, cfg.ShutdownTimeout, logger,
		snapshotJob.Stop,
		func() {
			if closer, ok := src.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					logger.Warn("Failed to close order source", "error", err)
				}
			}
		},
		cacheManager.Close,
		func() {
			if err := db.Close(); err != nil {
				logger.Warn("Failed to close database", "error", err)
			}
		},
	)
}
