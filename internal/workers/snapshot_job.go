package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"order-analysis/internal/database"
	"order-analysis/internal/export"
	"order-analysis/internal/orders"
	"order-analysis/internal/report"
	"order-analysis/internal/services"
)

// ErrSnapshotInProgress is returned when a snapshot run is requested while
// another one is still going.
var ErrSnapshotInProgress = errors.New("snapshot run already in progress")

// SnapshotConfig controls the scheduled snapshot job.
type SnapshotConfig struct {
	Enabled   bool
	Schedule  string
	Formats   []string
	Tables    []string
	Retention time.Duration
}

// SnapshotSummary describes one completed snapshot run.
type SnapshotSummary struct {
	Trigger   string            `json:"trigger"`
	Date      orders.Date       `json:"date"`
	StartedAt time.Time         `json:"started_at"`
	Duration  string            `json:"duration"`
	Records   int               `json:"records"`
	Reports   int               `json:"reports"`
	Failures  int               `json:"failures"`
	Errors    []string          `json:"errors,omitempty"`
	Artifacts []export.Artifact `json:"artifacts"`
	Pruned    int64             `json:"pruned_runs"`
}

// SnapshotJob periodically refreshes the order snapshot, computes the day's
// report for every hub and exports the configured tables.
type SnapshotJob struct {
	ctx      context.Context
	cancel   context.CancelFunc
	config   SnapshotConfig
	reporter *services.Reporter
	exporter *export.Exporter
	logger   *slog.Logger

	scheduler *cron.Cron
	entryID   cron.EntryID

	running atomic.Bool
	paused  atomic.Bool

	mu      sync.Mutex
	lastRun *SnapshotSummary
}

// NewSnapshotJob creates the job. exporter may be nil to skip exports.
func NewSnapshotJob(cfg SnapshotConfig, reporter *services.Reporter, exporter *export.Exporter, logger *slog.Logger) *SnapshotJob {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SnapshotJob{
		ctx:      ctx,
		cancel:   cancel,
		config:   cfg,
		reporter: reporter,
		exporter: exporter,
		logger:   logger,
	}
}

// Start schedules the job. It is a no-op when the job is disabled.
func (j *SnapshotJob) Start() error {
	if !j.config.Enabled {
		j.logger.Info("Scheduled snapshots are disabled")
		return nil
	}

	j.scheduler = cron.New(cron.WithLocation(j.reporter.Config().Location))
	entryID, err := j.scheduler.AddFunc(j.config.Schedule, func() {
		if _, err := j.Run(j.ctx, database.TriggerSchedule); err != nil && !errors.Is(err, ErrSnapshotInProgress) {
			j.logger.Error("Scheduled snapshot failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", j.config.Schedule, err)
	}
	j.entryID = entryID
	j.scheduler.Start()

	j.logger.Info("Snapshot scheduler started",
		"schedule", j.config.Schedule,
		"formats", j.config.Formats,
		"next_run", j.scheduler.Entry(entryID).Next)
	return nil
}

// Stop cancels any in-flight run and waits for the scheduler to drain.
func (j *SnapshotJob) Stop() {
	j.logger.Info("Stopping snapshot scheduler")
	j.cancel()
	if j.scheduler != nil {
		<-j.scheduler.Stop().Done()
	}
}

// Pause skips scheduled runs until Resume. Manual runs still execute.
func (j *SnapshotJob) Pause() {
	j.paused.Store(true)
	j.logger.Info("Snapshot scheduler paused")
}

// Resume re-enables scheduled runs.
func (j *SnapshotJob) Resume() {
	j.paused.Store(false)
	j.logger.Info("Snapshot scheduler resumed")
}

// IsPaused returns true if scheduled runs are paused.
func (j *SnapshotJob) IsPaused() bool {
	return j.paused.Load()
}

// IsRunning returns true while a run is executing.
func (j *SnapshotJob) IsRunning() bool {
	return j.running.Load()
}

// NextRun returns the next scheduled run time, or zero when not scheduled.
func (j *SnapshotJob) NextRun() time.Time {
	if j.scheduler == nil {
		return time.Time{}
	}
	return j.scheduler.Entry(j.entryID).Next
}

// LastRun returns the summary of the most recent run, if any.
func (j *SnapshotJob) LastRun() *SnapshotSummary {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}

// Run refreshes the snapshot and reports on today for every hub. A failing
// hub is recorded and skipped; a failing fetch aborts the run.
func (j *SnapshotJob) Run(ctx context.Context, trigger string) (*SnapshotSummary, error) {
	if trigger == database.TriggerSchedule && j.paused.Load() {
		j.logger.Debug("Snapshots paused, skipping scheduled run")
		return nil, nil
	}
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrSnapshotInProgress
	}
	defer j.running.Store(false)

	cfg := j.reporter.Config()
	summary := &SnapshotSummary{
		Trigger:   trigger,
		Date:      orders.Today(cfg.Location),
		StartedAt: time.Now(),
		Artifacts: []export.Artifact{},
	}
	j.logger.Info("Starting snapshot run", "trigger", trigger, "date", summary.Date)

	table, info, err := j.reporter.Snapshot(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("refresh snapshot: %w", err)
	}
	summary.Records = info.Records

	for _, hub := range cfg.Hubs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		params := report.Params{Date: summary.Date, Hub: hub}
		result, err := j.reporter.BuildFrom(table, info, params, trigger)
		if err != nil {
			summary.Failures++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", hub, err))
			continue
		}
		summary.Reports++

		if j.exporter == nil || len(j.config.Formats) == 0 {
			continue
		}
		artifacts, err := j.exporter.Export(ctx, result.Report, j.config.Tables, j.config.Formats)
		summary.Artifacts = append(summary.Artifacts, artifacts...)
		if err != nil {
			summary.Failures++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: export: %v", hub, err))
		}
	}

	if pruned, err := j.reporter.PruneRuns(j.config.Retention); err != nil {
		j.logger.Warn("Failed to prune report runs", "error", err)
	} else {
		summary.Pruned = pruned
	}

	summary.Duration = time.Since(summary.StartedAt).String()
	j.mu.Lock()
	j.lastRun = summary
	j.mu.Unlock()

	j.logger.Info("Completed snapshot run",
		"date", summary.Date,
		"reports", summary.Reports,
		"failures", summary.Failures,
		"files", len(summary.Artifacts),
		"duration", summary.Duration)
	return summary, nil
}
