package database

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStore(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Add(-time.Hour)
	msg := "fetch from metabase:card/1 failed: boom"
	runs := []*Run{
		{Source: "sample:seed-1", ReportDate: "2025-03-01", Hub: "Kudlu", Records: 500, Status: RunSucceeded, DurationMS: 12, CreatedAt: base},
		{Source: "metabase:card/1", ReportDate: "2025-03-01", Hub: "Kudlu", Status: RunFailed, Error: &msg, CreatedAt: base.Add(time.Minute)},
		{Source: "sample:seed-1", TriggeredBy: TriggerSchedule, ReportDate: "2025-03-02", Hub: "Hebbal", Records: 480, Status: RunSucceeded, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range runs {
		require.NoError(t, db.Runs.Create(r))
		assert.NotEmpty(t, r.ID)
	}
	assert.Equal(t, TriggerRequest, runs[0].TriggeredBy)

	t.Run("list newest first", func(t *testing.T) {
		list, err := db.Runs.List(10)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, runs[2].ID, list[0].ID)
		assert.Equal(t, TriggerSchedule, list[0].TriggeredBy)
		assert.Equal(t, runs[0].ID, list[2].ID)

		limited, err := db.Runs.List(1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("get by id", func(t *testing.T) {
		run, err := db.Runs.GetByID(runs[1].ID)
		require.NoError(t, err)
		assert.Equal(t, RunFailed, run.Status)
		require.NotNil(t, run.Error)
		assert.Equal(t, msg, *run.Error)

		_, err = db.Runs.GetByID("missing")
		assert.True(t, errors.Is(err, ErrRunNotFound))
	})

	t.Run("prune", func(t *testing.T) {
		n, err := db.Runs.DeleteOlderThan(base.Add(90 * time.Second))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}
