package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-analysis/internal/database"
	"order-analysis/internal/orders"
)

func snapshot(n int) *orders.Table {
	records := make([]orders.Record, n)
	for i := range records {
		records[i] = orders.Record{DriverVehicle: "KA01", DeliveryHub: "Kudlu [ BH Micro warehouse ]", Status: orders.StatusPicked}
	}
	return orders.NewTable(records)
}

func TestCacheManager(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	t.Run("EnabledCache", func(t *testing.T) {
		manager := NewManager(db.Snapshots, false, 5*time.Minute, nil)
		defer manager.Close()

		cached, err := manager.Get("sample:seed-1")
		require.NoError(t, err)
		assert.Nil(t, cached)

		table := snapshot(3)
		require.NoError(t, manager.Set("sample:seed-1", table))

		cached, err = manager.Get("sample:seed-1")
		require.NoError(t, err)
		require.NotNil(t, cached)
		assert.Same(t, table, cached.Table)
		assert.Less(t, cached.Age(), time.Minute)

		stats, err := manager.GetStats()
		require.NoError(t, err)
		assert.Equal(t, 1, stats.MemoryTotal)
		assert.Equal(t, 1, stats.DatabaseTotal)
		assert.Equal(t, "5m0s", stats.TTL)
	})

	t.Run("PersistsAcrossManagers", func(t *testing.T) {
		manager := NewManager(db.Snapshots, false, 5*time.Minute, nil)
		defer manager.Close()

		cached, err := manager.Get("sample:seed-1")
		require.NoError(t, err)
		require.NotNil(t, cached)
		assert.Equal(t, 3, cached.Table.Len())
	})

	t.Run("Invalidate", func(t *testing.T) {
		manager := NewManager(db.Snapshots, false, 5*time.Minute, nil)
		defer manager.Close()

		age, err := manager.Invalidate("sample:seed-1")
		require.NoError(t, err)
		assert.NotNil(t, age)

		cached, err := manager.Get("sample:seed-1")
		require.NoError(t, err)
		assert.Nil(t, cached)

		age, err = manager.Invalidate("sample:seed-1")
		require.NoError(t, err)
		assert.Nil(t, age)
	})

	t.Run("InvalidateAll", func(t *testing.T) {
		manager := NewManager(db.Snapshots, false, 5*time.Minute, nil)
		defer manager.Close()

		require.NoError(t, manager.Set("a", snapshot(1)))
		require.NoError(t, manager.Set("b", snapshot(2)))

		n, err := manager.InvalidateAll()
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		stats, err := manager.GetStats()
		require.NoError(t, err)
		assert.Equal(t, 0, stats.MemoryTotal)
		assert.Equal(t, 0, stats.DatabaseTotal)
	})

	t.Run("DisabledCache", func(t *testing.T) {
		manager := NewManager(db.Snapshots, true, 5*time.Minute, nil)
		defer manager.Close()

		require.NoError(t, manager.Set("sample:seed-2", snapshot(1)))
		cached, err := manager.Get("sample:seed-2")
		require.NoError(t, err)
		assert.Nil(t, cached)
		assert.False(t, manager.IsEnabled())
	})

	t.Run("ExpiredEntriesAreDropped", func(t *testing.T) {
		manager := NewManager(db.Snapshots, false, -time.Second, nil)
		defer manager.Close()

		require.NoError(t, manager.Set("stale", snapshot(1)))
		cached, err := manager.Get("stale")
		require.NoError(t, err)
		assert.Nil(t, cached)

		manager.cleanup()
		stats, err := manager.GetStats()
		require.NoError(t, err)
		assert.Equal(t, 0, stats.DatabaseTotal)
	})
}
