package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"order-analysis/internal/cache"
	"order-analysis/internal/database"
	"order-analysis/internal/orders"
	"order-analysis/internal/report"
	"order-analysis/internal/source"
)

// SnapshotInfo describes the snapshot a report was computed from.
type SnapshotInfo struct {
	Source    string    `json:"source"`
	Records   int       `json:"records"`
	Unparsed  int       `json:"unparsed_timestamps"`
	TakenAt   time.Time `json:"taken_at"`
	FromCache bool      `json:"from_cache"`
}

// Result is a computed report together with its provenance.
type Result struct {
	RunID    string         `json:"run_id,omitempty"`
	Snapshot SnapshotInfo   `json:"snapshot"`
	Report   *report.Report `json:"report"`
}

// Reporter fetches order snapshots through the cache and computes reports
// from them. Every report is recomputed from the raw snapshot; only the
// snapshot itself is cached.
type Reporter struct {
	source source.Source
	cache  *cache.Manager
	runs   *database.RunStore
	config *report.Config
	logger *slog.Logger

	fetches      singleflight.Group
	fetchTimeout time.Duration
}

// DefaultFetchTimeout bounds one upstream fetch of the order snapshot.
const DefaultFetchTimeout = 2 * time.Minute

// NewReporter wires a reporter. cache and runs may be nil.
func NewReporter(src source.Source, cacheManager *cache.Manager, runs *database.RunStore, cfg *report.Config, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		source: src,
		cache:  cacheManager,
		runs:   runs,
		config: cfg,
		logger: logger,

		fetchTimeout: DefaultFetchTimeout,
	}
}

// Config returns the report configuration. Callers must not modify it.
func (r *Reporter) Config() *report.Config {
	return r.config
}

// SourceName names the configured order source.
func (r *Reporter) SourceName() string {
	return r.source.Name()
}

// Snapshot returns the current order snapshot, fetching it when the cache
// misses or refresh is set. Concurrent misses share a single fetch.
func (r *Reporter) Snapshot(ctx context.Context, refresh bool) (*orders.Table, SnapshotInfo, error) {
	name := r.source.Name()

	// Check the cache first unless the caller wants fresh data
	if !refresh && r.cache != nil {
		cached, err := r.cache.Get(name)
		if err != nil {
			r.logger.Warn("Snapshot cache lookup failed", "source", name, "error", err)
		} else if cached != nil {
			r.logger.Debug("Snapshot cache hit", "source", name, "age", cached.Age())
			return cached.Table, SnapshotInfo{
				Source:    name,
				Records:   cached.Table.Len(),
				Unparsed:  cached.Table.Unparsed,
				TakenAt:   cached.CachedAt,
				FromCache: true,
			}, nil
		}
	}

	// The fetch is shared by every waiting caller, so it runs detached from
	// the context of whichever caller started it.
	results := r.fetches.DoChan(name, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()

		table, err := r.source.Fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if err := r.cache.Set(name, table); err != nil {
				r.logger.Warn("Failed to cache snapshot", "source", name, "error", err)
			}
		}
		return table, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, SnapshotInfo{}, ctx.Err()
	case res = <-results:
	}
	if res.Err != nil {
		return nil, SnapshotInfo{}, res.Err
	}

	table := res.Val.(*orders.Table)
	return table, SnapshotInfo{
		Source:   name,
		Records:  table.Len(),
		Unparsed: table.Unparsed,
		TakenAt:  time.Now(),
	}, nil
}

// Build computes the full report for params and records the run. With
// refresh the snapshot is re-fetched first and the report is computed from
// that same snapshot.
func (r *Reporter) Build(ctx context.Context, params report.Params, trigger string, refresh bool) (*Result, error) {
	start := time.Now()

	table, info, err := r.Snapshot(ctx, refresh)
	if err != nil {
		r.recordRun(params, trigger, info, start, err)
		r.logger.Error("Report run failed", "date", params.Date, "hub", params.Hub, "error", err)
		return nil, err
	}
	return r.build(table, info, params, trigger, start)
}

// BuildFrom computes the report for params from a snapshot the caller
// already holds and records the run.
func (r *Reporter) BuildFrom(table *orders.Table, info SnapshotInfo, params report.Params, trigger string) (*Result, error) {
	return r.build(table, info, params, trigger, time.Now())
}

func (r *Reporter) build(table *orders.Table, info SnapshotInfo, params report.Params, trigger string, start time.Time) (*Result, error) {
	rep, err := report.Build(table, params, r.config)

	runID := r.recordRun(params, trigger, info, start, err)
	if err != nil {
		r.logger.Error("Report run failed", "date", params.Date, "hub", params.Hub, "error", err)
		return nil, err
	}

	r.logger.Info("Report computed",
		"date", params.Date,
		"hub", params.Hub,
		"records", info.Records,
		"from_cache", info.FromCache,
		"duration", time.Since(start))
	return &Result{RunID: runID, Snapshot: info, Report: rep}, nil
}

// Invalidate drops the cached snapshot of the configured source.
func (r *Reporter) Invalidate() (*time.Duration, error) {
	if r.cache == nil {
		return nil, nil
	}
	return r.cache.Invalidate(r.source.Name())
}

// Runs lists recent report runs.
func (r *Reporter) Runs(limit int) ([]database.Run, error) {
	if r.runs == nil {
		return []database.Run{}, nil
	}
	return r.runs.List(limit)
}

// Run looks up a recorded run by id.
func (r *Reporter) Run(id string) (*database.Run, error) {
	if r.runs == nil {
		return nil, database.ErrRunNotFound
	}
	return r.runs.GetByID(id)
}

func (r *Reporter) recordRun(params report.Params, trigger string, info SnapshotInfo, start time.Time, runErr error) string {
	if r.runs == nil {
		return ""
	}

	run := &database.Run{
		Source:      r.source.Name(),
		TriggeredBy: trigger,
		ReportDate:  params.Date.String(),
		Hub:         params.Hub,
		Records:     info.Records,
		Status:      database.RunSucceeded,
		DurationMS:  time.Since(start).Milliseconds(),
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Status = database.RunFailed
		run.Error = &msg
	}

	if err := r.runs.Create(run); err != nil {
		r.logger.Warn("Failed to record report run", "error", err)
		return ""
	}
	return run.ID
}

// CacheStats reports the snapshot cache state, or nil when caching is not
// wired.
func (r *Reporter) CacheStats() (*cache.CacheStats, error) {
	if r.cache == nil {
		return nil, nil
	}
	stats, err := r.cache.GetStats()
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// PruneRuns deletes run records older than retention.
func (r *Reporter) PruneRuns(retention time.Duration) (int64, error) {
	if r.runs == nil || retention <= 0 {
		return 0, nil
	}
	return r.runs.DeleteOlderThan(time.Now().Add(-retention))
}
