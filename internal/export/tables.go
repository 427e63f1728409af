// Package export renders computed reports as tables and writes them out in
// the formats the operations team shares: CSV, JSON, HTML, PNG and Parquet.
package export

import (
	"errors"
	"fmt"
	"strconv"

	"order-analysis/internal/report"
)

// Table names.
const (
	TableDrivers        = "drivers"
	TableHubs           = "hubs"
	TableVehicles       = "vehicles"
	TableHubTimes       = "hub-times"
	TableCustomerTimes  = "customer-times"
	TableCustomerShares = "customer-shares"
	TablePeakTimes      = "peak-times"
)

// TableNames lists every exportable table in display order.
var TableNames = []string{
	TableDrivers,
	TableHubs,
	TableVehicles,
	TableHubTimes,
	TableCustomerTimes,
	TableCustomerShares,
	TablePeakTimes,
}

// ErrUnknownTable is returned for a table name outside TableNames.
var ErrUnknownTable = errors.New("unknown table")

// Tabular is a report table ready for rendering. Rows hold display strings;
// records holds the same rows as typed structs for columnar formats.
type Tabular struct {
	Name   string     `json:"name"`
	Title  string     `json:"title"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`

	records []interface{}
	schema  interface{}
}

// Table builds the named table from rep.
func Table(rep *report.Report, name string) (Tabular, error) {
	switch name {
	case TableDrivers:
		return DriverTable(rep.Drivers), nil
	case TableHubs:
		return HubTable(rep.Hubs), nil
	case TableVehicles:
		return VehicleTable(rep.Vehicles), nil
	case TableHubTimes:
		return HubTimeTable(rep.HubTimes), nil
	case TableCustomerTimes:
		return CustomerTimeTable(rep.Customers), nil
	case TableCustomerShares:
		return CustomerShareTable(rep.Customers), nil
	case TablePeakTimes:
		return PeakTimeTable(rep.Customers), nil
	}
	return Tabular{}, fmt.Errorf("%w: %q", ErrUnknownTable, name)
}

// Tables builds every table of rep.
func Tables(rep *report.Report) []Tabular {
	out := make([]Tabular, 0, len(TableNames))
	for _, name := range TableNames {
		t, _ := Table(rep, name)
		out = append(out, t)
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// DriverTable renders the driver summary with its grand total.
func DriverTable(s *report.DriverSummary) Tabular {
	t := Tabular{
		Name:  TableDrivers,
		Title: fmt.Sprintf("Driver-wise Summary: %s, %s", s.Hub, s.Date),
		Header: []string{
			"Delivery Associate Name", "Vehicle Model", "Delivered", "Unable to delivery",
			"Returned", "Out on road", "Total order count", "Delivered %",
		},
		schema: new(driverRecord),
	}
	for _, r := range s.AllRows() {
		t.Rows = append(t.Rows, []string{
			r.Driver, r.VehicleModel, itoa(r.Delivered), itoa(r.UnableToDeliver),
			itoa(r.Returned), itoa(r.OutOnRoad), itoa(r.Total), r.DeliveredPercent,
		})
		t.records = append(t.records, newDriverRecord(s, r))
	}
	return t
}

// HubTable renders the hub summary with its grand total.
func HubTable(s *report.HubSummary) Tabular {
	t := Tabular{
		Name:  TableHubs,
		Title: fmt.Sprintf("Hub-wise Summary: %s", s.Date),
		Header: []string{
			"Hub Name", "Number of Vehicle", "Total_order_count", "Delivered", "Unable to Delivery",
			"Returned", "Out on Road", "Attempt %", "Delivered %", "Backlogs",
		},
		schema: new(hubRecord),
	}
	for _, r := range s.AllRows() {
		t.Rows = append(t.Rows, []string{
			r.Hub, itoa(r.Vehicles), itoa(r.Total), itoa(r.Delivered), itoa(r.UnableToDeliver),
			itoa(r.Returned), itoa(r.OutOnRoad), r.AttemptPercent, r.DeliveredPercent, itoa(r.Backlog),
		})
		t.records = append(t.records, newHubRecord(s, r))
	}
	return t
}

// VehicleTable renders the fleet composition per hub.
func VehicleTable(v *report.VehicleUtilization) Tabular {
	t := Tabular{
		Name:  TableVehicles,
		Title: fmt.Sprintf("Vehicle Utilization: %s", v.Date),
		Header: []string{
			"Hub Name", "Count of Bikes", "Count of Autos", "Total_count",
			"Ratio-Bikes", "Ratio-Auto Rickshaw", "Avg Productivity / Driver",
		},
		schema: new(vehicleRecord),
	}
	for _, r := range v.Rows {
		t.Rows = append(t.Rows, []string{
			r.Hub, itoa(r.Bikes), itoa(r.Autos), itoa(r.Total),
			r.BikeRatio, r.AutoRatio, strconv.FormatFloat(r.AvgProductivity, 'f', 2, 64),
		})
		t.records = append(t.records, newVehicleRecord(v, r))
	}
	return t
}

func pivotTable(name, title, group string, buckets []string, pivot []report.PivotRow) Tabular {
	t := Tabular{
		Name:   name,
		Title:  title,
		Header: append(append([]string{group}, buckets...), "Total"),
		schema: new(bucketRecord),
	}
	for _, p := range pivot {
		row := make([]string, 0, len(buckets)+2)
		row = append(row, p.Group)
		for j, n := range p.Counts {
			row = append(row, itoa(n))
			t.records = append(t.records, &bucketRecord{Group: p.Group, Bucket: buckets[j], Count: int32(n)})
		}
		row = append(row, itoa(p.Total))
		t.Rows = append(t.Rows, row)
	}
	return t
}

// HubTimeTable renders first dispatches per hub and time bucket.
func HubTimeTable(d *report.HubTimeDistribution) Tabular {
	return pivotTable(TableHubTimes, fmt.Sprintf("First Out-For-Delivery by Hub: %s", d.Date), "Hub Name", d.Buckets, d.Pivot)
}

// CustomerTimeTable renders pickups per customer and time bucket.
func CustomerTimeTable(d *report.CustomerTimeDistribution) Tabular {
	return pivotTable(TableCustomerTimes, fmt.Sprintf("Pickups by Customer: %s", d.Date), "Customer", d.Buckets, d.Pivot)
}

// CustomerShareTable renders each customer's share of the day's pickups.
func CustomerShareTable(d *report.CustomerTimeDistribution) Tabular {
	t := Tabular{
		Name:   TableCustomerShares,
		Title:  fmt.Sprintf("Customer Share of Pickups: %s", d.Date),
		Header: []string{"Customer", "Orders", "Share"},
		schema: new(shareRecord),
	}
	for _, c := range d.Customers {
		t.Rows = append(t.Rows, []string{c.Customer, itoa(c.Orders), c.Share})
		t.records = append(t.records, &shareRecord{Customer: c.Customer, Orders: int32(c.Orders), Share: c.Share})
	}
	return t
}

// PeakTimeTable ranks time buckets by pickup volume.
func PeakTimeTable(d *report.CustomerTimeDistribution) Tabular {
	t := Tabular{
		Name:   TablePeakTimes,
		Title:  fmt.Sprintf("Peak Pickup Times: %s", d.Date),
		Header: []string{"Rank", "Time Bucket", "Orders"},
		schema: new(peakRecord),
	}
	for i, b := range d.Peaks {
		t.Rows = append(t.Rows, []string{itoa(i + 1), b.Bucket, itoa(b.Orders)})
		t.records = append(t.records, &peakRecord{Rank: int32(i + 1), Bucket: b.Bucket, Orders: int32(b.Orders)})
	}
	return t
}
