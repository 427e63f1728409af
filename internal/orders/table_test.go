package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func fullRow() map[string]any {
	return map[string]any{
		ColOrderID:                1234.0,
		ColDriverVehicle:          "KA01-D1",
		ColVehicleModel:           ModelBike,
		ColDeliveryHub:            "Kudlu [ BH Micro warehouse ]",
		ColStatus:                 StatusDelivered,
		ColCustomer:               "Acme",
		ColDeliveredOn:            "2025-03-01T10:15:00+05:30",
		ColFirstOutForDeliveryOn:  "2025-03-01 08:00:00",
		ColLatestOutForDeliveryOn: "2025-03-01T09:00:00",
		ColLastDeliveryUnableTo:   nil,
		ColReturnedOn:             "",
		ColPickedOn:               "2025-02-28",
		ColLastAttemptedOn:        "not a date",
	}
}

func TestFromMaps(t *testing.T) {
	t.Run("decodes every column", func(t *testing.T) {
		table, err := FromMaps([]map[string]any{fullRow()}, ist)
		require.NoError(t, err)
		require.Len(t, table.Records, 1)

		rec := table.Records[0]
		assert.Equal(t, "1234", rec.OrderID)
		assert.Equal(t, "KA01-D1", rec.DriverVehicle)
		assert.Equal(t, ModelBike, rec.VehicleModel)
		assert.Equal(t, StatusDelivered, rec.Status)
		require.NotNil(t, rec.DeliveredOn)
		assert.Equal(t, 10, rec.DeliveredOn.In(ist).Hour())
		require.NotNil(t, rec.FirstOutForDeliveryOn)
		assert.Equal(t, 8, rec.FirstOutForDeliveryOn.In(ist).Hour())
		assert.Nil(t, rec.LastDeliveryUnableTo)
		assert.Nil(t, rec.ReturnedOn)
		require.NotNil(t, rec.PickedOn)
		assert.Equal(t, Date{2025, time.February, 28}, DateOf(*rec.PickedOn, ist))
	})

	t.Run("unparseable timestamps become no value", func(t *testing.T) {
		table, err := FromMaps([]map[string]any{fullRow()}, ist)
		require.NoError(t, err)
		assert.Nil(t, table.Records[0].LastAttemptedOn)
		assert.Equal(t, 1, table.Unparsed)
	})

	t.Run("missing columns fail fast", func(t *testing.T) {
		row := fullRow()
		delete(row, ColStatus)
		delete(row, ColPickedOn)

		table, err := FromMaps([]map[string]any{row}, ist)
		assert.Nil(t, table)

		var missing *MissingColumnError
		require.True(t, errors.As(err, &missing))
		assert.ElementsMatch(t, []string{ColStatus, ColPickedOn}, missing.Missing)
		assert.Contains(t, err.Error(), `"Status"`)
	})

	t.Run("empty input yields an empty table with the full contract", func(t *testing.T) {
		table, err := FromMaps(nil, ist)
		require.NoError(t, err)
		assert.Equal(t, 0, table.Len())
		assert.NoError(t, table.Require(RequiredColumns...))
	})
}

func TestFromRows(t *testing.T) {
	header := Header()
	row := []string{"9", "D2", ModelAutoRickshaw, "Hebbal", StatusOutForDelivery, "Beta",
		"", "2025-03-01 07:30", "2025-03-01 07:45", "", "", "2025-02-28 13:00", ""}

	table, err := FromRows(header, [][]string{row}, ist)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)

	rec := table.Records[0]
	assert.Equal(t, "D2", rec.DriverVehicle)
	assert.Nil(t, rec.DeliveredOn)
	require.NotNil(t, rec.LatestOutForDeliveryOn)
	assert.Equal(t, 45, rec.LatestOutForDeliveryOn.Minute())
	assert.Equal(t, 0, table.Unparsed)

	t.Run("short rows are padded with no value", func(t *testing.T) {
		table, err := FromRows(header, [][]string{{"1", "D3"}}, ist)
		require.NoError(t, err)
		assert.Nil(t, table.Records[0].PickedOn)
		assert.Equal(t, "", table.Records[0].Status)
	})

	t.Run("round trip through Rows", func(t *testing.T) {
		again, err := FromRows(Header(), table.Rows(ist), ist)
		require.NoError(t, err)
		assert.True(t, table.Records[0].LatestOutForDeliveryOn.Equal(*again.Records[0].LatestOutForDeliveryOn))
	})
}

func TestRequire(t *testing.T) {
	table := &Table{Columns: []string{ColDriverVehicle}}
	assert.NoError(t, table.Require(ColDriverVehicle))

	err := table.Require(ColDriverVehicle, ColDeliveryHub)
	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{ColDeliveryHub}, missing.Missing)
	assert.Equal(t, []string{ColDriverVehicle}, missing.Available)
}
