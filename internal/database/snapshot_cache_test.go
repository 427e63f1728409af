package database

import (
	"testing"
	"time"

	"order-analysis/internal/orders"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSnapshot() *orders.Table {
	delivered := time.Date(2025, 3, 1, 10, 15, 0, 0, time.FixedZone("IST", 5*3600+1800))
	return orders.NewTable([]orders.Record{
		{
			OrderID:       "1",
			DriverVehicle: "KA01",
			VehicleModel:  orders.ModelBike,
			DeliveryHub:   "Kudlu [ BH Micro warehouse ]",
			Status:        orders.StatusDelivered,
			Customer:      "Amazon",
			DeliveredOn:   &delivered,
		},
	})
}

func TestSnapshotCacheStore(t *testing.T) {
	db := openTestDB(t)

	t.Run("SetAndGet", func(t *testing.T) {
		cached, err := db.Snapshots.Get("metabase:card/1")
		if err != nil {
			t.Errorf("Expected no error on cache miss, got %v", err)
		}
		if cached != nil {
			t.Error("Expected cache miss, got snapshot")
		}

		if _, err := db.Snapshots.Set("metabase:card/1", testSnapshot(), 5*time.Minute); err != nil {
			t.Fatalf("Failed to store snapshot: %v", err)
		}

		cached, err = db.Snapshots.Get("metabase:card/1")
		if err != nil {
			t.Fatalf("Failed to get snapshot: %v", err)
		}
		if cached == nil {
			t.Fatal("Expected cache hit, got nil")
		}
		if cached.Records != 1 || cached.Table.Len() != 1 {
			t.Errorf("Expected 1 record, got %d/%d", cached.Records, cached.Table.Len())
		}
		rec := cached.Table.Records[0]
		if rec.DeliveredOn == nil || rec.DeliveredOn.Hour() != 10 {
			t.Errorf("Delivered timestamp did not survive the round trip: %v", rec.DeliveredOn)
		}
		if err := cached.Table.Require(orders.RequiredColumns...); err != nil {
			t.Errorf("Declared columns lost: %v", err)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		if _, err := db.Snapshots.Set("csv:old.csv", testSnapshot(), -time.Minute); err != nil {
			t.Fatalf("Failed to store snapshot: %v", err)
		}

		total, expired, err := db.Snapshots.GetStats()
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}
		if total != 2 || expired != 1 {
			t.Errorf("Expected 2 total / 1 expired, got %d / %d", total, expired)
		}

		cached, err := db.Snapshots.Get("csv:old.csv")
		if err != nil || cached != nil {
			t.Errorf("Expected expired miss, got %v, %v", cached, err)
		}
	})

	t.Run("LoadAllAndDelete", func(t *testing.T) {
		entries, err := db.Snapshots.LoadAll()
		if err != nil {
			t.Fatalf("Failed to load snapshots: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("Expected 1 live entry, got %d", len(entries))
		}

		if err := db.Snapshots.Delete("metabase:card/1"); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		cached, _ := db.Snapshots.Get("metabase:card/1")
		if cached != nil {
			t.Error("Expected miss after delete")
		}
	})

	t.Run("DeleteExpiredAndAll", func(t *testing.T) {
		db.Snapshots.Set("a", testSnapshot(), -time.Second)
		db.Snapshots.Set("b", testSnapshot(), time.Hour)

		n, err := db.Snapshots.DeleteExpired()
		if err != nil || n != 1 {
			t.Errorf("Expected 1 expired entry removed, got %d (%v)", n, err)
		}
		n, err = db.Snapshots.DeleteAll()
		if err != nil || n != 1 {
			t.Errorf("Expected 1 entry removed, got %d (%v)", n, err)
		}
	})
}
