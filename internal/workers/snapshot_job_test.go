package workers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-analysis/internal/database"
	"order-analysis/internal/export"
	"order-analysis/internal/orders"
	"order-analysis/internal/report"
	"order-analysis/internal/services"
	"order-analysis/internal/source"
)

type failingSource struct{}

func (failingSource) Name() string { return "failing" }

func (failingSource) Fetch(context.Context) (*orders.Table, error) {
	return nil, &source.FetchError{Source: "failing", Err: errors.New("connection refused")}
}

func newTestJob(t *testing.T, src source.Source, cfg SnapshotConfig) (*SnapshotJob, *database.DB, string) {
	t.Helper()

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rc := report.DefaultConfig()
	rc.Hubs = rc.Hubs[:2]
	reporter := services.NewReporter(src, nil, db.Runs, rc, nil)

	dir := t.TempDir()
	exporter := export.NewExporter(export.LocalSink{Dir: dir}, export.Options{}, nil)
	return NewSnapshotJob(cfg, reporter, exporter, nil), db, dir
}

func sampleSource() source.Source {
	return source.NewSampleSource(source.SampleConfig{Seed: 11, Orders: 200}, report.DefaultConfig().Location)
}

func TestSnapshotJobRun(t *testing.T) {
	job, db, dir := newTestJob(t, sampleSource(), SnapshotConfig{
		Formats: []string{export.FormatCSV, export.FormatJSON},
		Tables:  []string{export.TableDrivers, export.TableHubs},
	})

	summary, err := job.Run(context.Background(), database.TriggerRequest)
	require.NoError(t, err)

	assert.Equal(t, 200, summary.Records)
	assert.Equal(t, 2, summary.Reports)
	assert.Zero(t, summary.Failures)
	assert.Len(t, summary.Artifacts, 2*2*2)
	assert.Equal(t, summary, job.LastRun())

	hubDir := filepath.Join(dir, summary.Date.String(), export.Slug(report.DefaultHubs[0]))
	_, err = os.Stat(filepath.Join(hubDir, "drivers.csv"))
	assert.NoError(t, err)

	runs, err := db.Runs.List(10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, database.TriggerRequest, run.TriggeredBy)
		assert.Equal(t, database.RunSucceeded, run.Status)
	}
}

func TestSnapshotJobWithoutFormats(t *testing.T) {
	job, _, dir := newTestJob(t, sampleSource(), SnapshotConfig{})

	summary, err := job.Run(context.Background(), database.TriggerRequest)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Reports)
	assert.Empty(t, summary.Artifacts)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSnapshotJobFetchFailure(t *testing.T) {
	job, _, _ := newTestJob(t, failingSource{}, SnapshotConfig{Formats: []string{export.FormatCSV}})

	_, err := job.Run(context.Background(), database.TriggerRequest)
	require.Error(t, err)

	var fetchErr *source.FetchError
	assert.True(t, errors.As(err, &fetchErr))
	assert.Nil(t, job.LastRun())
	assert.False(t, job.IsRunning())
}

func TestSnapshotJobRejectsOverlap(t *testing.T) {
	job, _, _ := newTestJob(t, sampleSource(), SnapshotConfig{})

	job.running.Store(true)
	_, err := job.Run(context.Background(), database.TriggerRequest)
	assert.True(t, errors.Is(err, ErrSnapshotInProgress))
}

func TestSnapshotJobPause(t *testing.T) {
	job, db, _ := newTestJob(t, sampleSource(), SnapshotConfig{})

	job.Pause()
	assert.True(t, job.IsPaused())

	summary, err := job.Run(context.Background(), database.TriggerSchedule)
	require.NoError(t, err)
	assert.Nil(t, summary)

	// Manual runs ignore the pause
	summary, err = job.Run(context.Background(), database.TriggerRequest)
	require.NoError(t, err)
	require.NotNil(t, summary)

	job.Resume()
	assert.False(t, job.IsPaused())

	runs, err := db.Runs.List(10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSnapshotJobSchedule(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		job, _, _ := newTestJob(t, sampleSource(), SnapshotConfig{Enabled: false, Schedule: "not a schedule"})
		require.NoError(t, job.Start())
		assert.True(t, job.NextRun().IsZero())
		job.Stop()
	})

	t.Run("invalid schedule", func(t *testing.T) {
		job, _, _ := newTestJob(t, sampleSource(), SnapshotConfig{Enabled: true, Schedule: "every evening"})
		assert.Error(t, job.Start())
	})

	t.Run("scheduled", func(t *testing.T) {
		job, _, _ := newTestJob(t, sampleSource(), SnapshotConfig{Enabled: true, Schedule: "0 20 * * *"})
		require.NoError(t, job.Start())
		defer job.Stop()

		next := job.NextRun()
		require.False(t, next.IsZero())
		assert.Equal(t, 20, next.Hour())
		assert.True(t, next.After(time.Now()))
	})
}
