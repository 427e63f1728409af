package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-analysis/internal/orders"
)

func TestBuildDriverSummary(t *testing.T) {
	cfg := testConfig()
	params := Params{Date: reportDate, Hub: hebbal}

	t.Run("delivered and returned orders for one driver", func(t *testing.T) {
		table := orders.NewTable([]orders.Record{
			delivered("D", orders.ModelBike, hebbal, at(0, 10, 0)),
			delivered("D", orders.ModelBike, hebbal, at(0, 11, 0)),
			returned("D", orders.ModelBike, hebbal, at(0, 12, 0)),
		})

		summary, err := BuildDriverSummary(table, params, cfg)
		require.NoError(t, err)
		require.Len(t, summary.Rows, 1)

		row := summary.Rows[0]
		assert.Equal(t, "D", row.Driver)
		assert.Equal(t, 2, row.Delivered)
		assert.Equal(t, 1, row.Returned)
		assert.Equal(t, 0, row.UnableToDeliver)
		assert.Equal(t, 0, row.OutOnRoad)
		assert.Equal(t, 3, row.Total)
		assert.Equal(t, "66%", row.DeliveredPercent)
	})

	t.Run("other hubs are excluded", func(t *testing.T) {
		table := orders.NewTable([]orders.Record{
			delivered("D", orders.ModelBike, hebbal, at(0, 10, 0)),
			delivered("E", orders.ModelBike, kudlu, at(0, 10, 0)),
		})

		summary, err := BuildDriverSummary(table, params, cfg)
		require.NoError(t, err)
		require.Len(t, summary.Rows, 1)
		assert.Equal(t, "D", summary.Rows[0].Driver)
	})

	t.Run("deliveries on other days are not counted", func(t *testing.T) {
		table := orders.NewTable([]orders.Record{
			delivered("D", orders.ModelBike, hebbal, at(-1, 10, 0)),
		})

		summary, err := BuildDriverSummary(table, params, cfg)
		require.NoError(t, err)
		require.Len(t, summary.Rows, 1)
		assert.Equal(t, 0, summary.Rows[0].Total)
		assert.Equal(t, ZeroPercent, summary.Rows[0].DeliveredPercent)
	})

	t.Run("exceptions are counted regardless of date by default", func(t *testing.T) {
		table := orders.NewTable([]orders.Record{
			returned("D", orders.ModelBike, hebbal, at(-3, 12, 0)),
		})

		summary, err := BuildDriverSummary(table, params, cfg)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Rows[0].Returned)

		filtered := testConfig()
		filtered.DateFilterDriverExceptions = true
		summary, err = BuildDriverSummary(table, params, filtered)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Rows[0].Returned)
	})

	t.Run("out on road joins onto every model row of the driver", func(t *testing.T) {
		table := orders.NewTable([]orders.Record{
			delivered("D", orders.ModelAutoRickshaw, hebbal, at(0, 9, 0)),
			delivered("D", orders.ModelBike, hebbal, at(0, 10, 0)),
			outForDelivery("D", orders.ModelBike, hebbal, at(0, 14, 0)),
		})

		summary, err := BuildDriverSummary(table, params, cfg)
		require.NoError(t, err)
		require.Len(t, summary.Rows, 2)
		assert.Equal(t, orders.ModelAutoRickshaw, summary.Rows[0].VehicleModel)
		assert.Equal(t, orders.ModelBike, summary.Rows[1].VehicleModel)
		for _, row := range summary.Rows {
			assert.Equal(t, 1, row.OutOnRoad)
			assert.Equal(t, row.Delivered+row.UnableToDeliver+row.Returned+row.OutOnRoad, row.Total)
		}
	})

	t.Run("grand total sums the rows", func(t *testing.T) {
		table := orders.NewTable([]orders.Record{
			delivered("A", orders.ModelBike, hebbal, at(0, 10, 0)),
			returned("A", orders.ModelBike, hebbal, at(0, 11, 0)),
			delivered("B", orders.ModelAutoRickshaw, hebbal, at(0, 12, 0)),
			delivered("B", orders.ModelAutoRickshaw, hebbal, at(0, 13, 0)),
			outForDelivery("C", orders.ModelBike, hebbal, at(0, 16, 0)),
		})

		summary, err := BuildDriverSummary(table, params, cfg)
		require.NoError(t, err)

		total := summary.GrandTotal
		assert.Equal(t, GrandTotalLabel, total.Driver)
		assert.Equal(t, 3, total.Delivered)
		assert.Equal(t, 1, total.Returned)
		assert.Equal(t, 1, total.OutOnRoad)
		assert.Equal(t, 5, total.Total)
		assert.Equal(t, "60%", total.DeliveredPercent)

		all := summary.AllRows()
		assert.Len(t, all, len(summary.Rows)+1)
		assert.Equal(t, GrandTotalLabel, all[len(all)-1].Driver)
	})

	t.Run("empty input yields only a zero grand total", func(t *testing.T) {
		summary, err := BuildDriverSummary(orders.NewTable(nil), params, cfg)
		require.NoError(t, err)
		assert.Empty(t, summary.Rows)
		assert.Equal(t, 0, summary.GrandTotal.Total)
		assert.Equal(t, ZeroPercent, summary.GrandTotal.DeliveredPercent)
	})

	t.Run("unknown hub", func(t *testing.T) {
		_, err := BuildDriverSummary(orders.NewTable(nil), Params{Date: reportDate, Hub: "Nowhere"}, cfg)
		assert.True(t, errors.Is(err, ErrUnknownHub))
	})

	t.Run("missing column", func(t *testing.T) {
		table := &orders.Table{Columns: []string{orders.ColDriverVehicle}}
		_, err := BuildDriverSummary(table, params, cfg)

		var missing *orders.MissingColumnError
		require.True(t, errors.As(err, &missing))
		assert.Contains(t, missing.Missing, orders.ColVehicleModel)
		assert.Contains(t, err.Error(), `"Delivered on"`)
	})
}

func TestFloorPercent(t *testing.T) {
	assert.Equal(t, "29%", floorPercent(29, 100))
	assert.Equal(t, "66%", floorPercent(2, 3))
	assert.Equal(t, "100%", floorPercent(4, 4))
	assert.Equal(t, ZeroPercent, floorPercent(0, 0))
	assert.Equal(t, "33.33%", decimalPercent(1, 3))
	assert.Equal(t, ZeroPercent, decimalPercent(5, 0))
}
