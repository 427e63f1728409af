package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-analysis/internal/orders"
	"order-analysis/internal/report"
)

const csvHeader = "Order ID,Driver Vehicle,Vehicle Model,Delivery Hub,Status,Customer,Delivered on," +
	"First Out-For-Delivery on,Latest Out-For-Delivery on,Last Delivery Unable-To,Returned Datetime on,Picked on,Last Attempted on\n"

func TestReadCSV(t *testing.T) {
	t.Run("decodes rows", func(t *testing.T) {
		data := csvHeader +
			"1,KA01,Bike,Kudlu [ BH Micro warehouse ],Delivered,Amazon,2025-03-01 10:00:00,2025-03-01 08:00:00,2025-03-01 08:00:00,,,2025-02-28 17:00:00,2025-03-01 10:00:00\n" +
			"2,KA02,Auto Rickshaw,Kudlu [ BH Micro warehouse ],Out-For-Delivery,Myntra,,2025-03-01 09:00:00,2025-03-01 09:00:00,,,2025-03-01 06:00:00\n"

		table, err := ReadCSV(strings.NewReader(data), "", ist)
		require.NoError(t, err)
		require.Equal(t, 2, table.Len())
		assert.Equal(t, "KA02", table.Records[1].DriverVehicle)
		assert.Nil(t, table.Records[1].LastAttemptedOn)
		assert.Equal(t, 10, table.Records[0].DeliveredOn.In(ist).Hour())
	})

	t.Run("semicolon delimiter", func(t *testing.T) {
		data := strings.ReplaceAll(csvHeader, ",", ";")
		table, err := ReadCSV(strings.NewReader(data), ";", ist)
		require.NoError(t, err)
		assert.Equal(t, 0, table.Len())
	})

	t.Run("empty file", func(t *testing.T) {
		table, err := ReadCSV(strings.NewReader(""), "", ist)
		require.NoError(t, err)
		assert.NoError(t, table.Require(orders.RequiredColumns...))
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("Driver Vehicle,Status\nKA01,Delivered\n"), "", ist)
		var missing *orders.MissingColumnError
		require.True(t, errors.As(err, &missing))
		assert.Contains(t, missing.Missing, orders.ColDeliveryHub)
	})
}

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvHeader), 0o644))

	src, err := NewCSVSource(CSVConfig{Path: path}, ist, nil)
	require.NoError(t, err)
	assert.Equal(t, "csv:orders.csv", src.Name())

	table, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	missing, err := NewCSVSource(CSVConfig{Path: filepath.Join(t.TempDir(), "absent.csv")}, ist, nil)
	require.NoError(t, err)
	_, err = missing.Fetch(context.Background())
	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))

	_, err = NewCSVSource(CSVConfig{}, ist, nil)
	assert.Error(t, err)
	_, err = NewCSVSource(CSVConfig{Path: path, Delimiter: "||"}, ist, nil)
	assert.Error(t, err)
}

func TestSampleSource(t *testing.T) {
	date := orders.Date{Year: 2025, Month: 3, Day: 1}
	cfg := SampleConfig{Seed: 7, Orders: 300, Date: date}

	first, err := NewSampleSource(cfg, ist).Fetch(context.Background())
	require.NoError(t, err)
	second, err := NewSampleSource(cfg, ist).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 300, first.Len())
	assert.Equal(t, first.Records, second.Records)

	hubs := make(map[string]bool)
	for _, rec := range first.Records {
		hubs[rec.DeliveryHub] = true
		if rec.Status == orders.StatusDelivered {
			require.NotNil(t, rec.DeliveredOn)
			assert.True(t, rec.DeliveredOn.After(*rec.LatestOutForDeliveryOn))
		}
	}
	for _, hub := range report.DefaultHubs {
		assert.True(t, hubs[hub], hub)
	}

	rcfg := report.DefaultConfig()
	rcfg.Location = ist
	rep, err := report.Build(first, report.Params{Date: date, Hub: report.DefaultHubs[0]}, rcfg)
	require.NoError(t, err)
	assert.NotEmpty(t, rep.Drivers.Rows)
	assert.Positive(t, rep.Hubs.GrandTotal.Delivered)
}

func TestSheetsSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/spreadsheets/sheet-1/values/")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"Orders!A1:M3","majorDimension":"ROWS","values":[
			["Order ID","Driver Vehicle","Vehicle Model","Delivery Hub","Status","Customer","Delivered on","First Out-For-Delivery on","Latest Out-For-Delivery on","Last Delivery Unable-To","Returned Datetime on","Picked on","Last Attempted on"],
			["1","KA01","Bike","Kudlu [ BH Micro warehouse ]","Delivered","Amazon","2025-03-01 10:00:00","2025-03-01 08:00:00","2025-03-01 08:00:00","","","2025-02-28 17:00:00","2025-03-01 10:00:00"],
			["2","KA02","Bike","Kudlu [ BH Micro warehouse ]","Picked","Ajio"]
		]}`))
	}))
	defer server.Close()

	src, err := NewSheetsSource(context.Background(), SheetsConfig{
		SpreadsheetID: "sheet-1",
		Range:         "Orders",
		Endpoint:      server.URL + "/",
		HTTPClient:    server.Client(),
	}, ist, nil)
	require.NoError(t, err)
	assert.Equal(t, "sheets:sheet-1!Orders", src.Name())

	table, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "Ajio", table.Records[1].Customer)
	assert.Nil(t, table.Records[1].PickedOn)
}

func TestNewSheetsSourceRequiresCredentials(t *testing.T) {
	_, err := NewSheetsSource(context.Background(), SheetsConfig{SpreadsheetID: "x"}, ist, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh token")
}

func TestNew(t *testing.T) {
	src, err := New(context.Background(), Config{Kind: KindSample, Location: ist}, nil)
	require.NoError(t, err)
	assert.Equal(t, "sample:seed-0", src.Name())

	_, err = New(context.Background(), Config{Kind: "ftp"}, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = New(context.Background(), Config{Kind: KindPostgres}, nil)
	assert.Error(t, err)
}
