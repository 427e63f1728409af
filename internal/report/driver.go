package report

import (
	"sort"

	"order-analysis/internal/orders"
)

// GrandTotalLabel names the synthetic aggregate row.
const GrandTotalLabel = "Grand Total"

// DriverSummaryRow is one (driver, vehicle model) line of the driver summary.
type DriverSummaryRow struct {
	Driver           string `json:"driver"`
	VehicleModel     string `json:"vehicle_model"`
	Delivered        int    `json:"delivered"`
	UnableToDeliver  int    `json:"unable_to_deliver"`
	Returned         int    `json:"returned"`
	OutOnRoad        int    `json:"out_on_road"`
	Total            int    `json:"total_order_count"`
	DeliveredPercent string `json:"delivered_percent"`
}

// DriverSummary is the per-driver breakdown for one hub.
type DriverSummary struct {
	Date       orders.Date        `json:"date"`
	Hub        string             `json:"hub"`
	Rows       []DriverSummaryRow `json:"rows"`
	GrandTotal DriverSummaryRow   `json:"grand_total"`
}

// AllRows returns the per-driver rows followed by the grand total.
func (s *DriverSummary) AllRows() []DriverSummaryRow {
	return append(append([]DriverSummaryRow(nil), s.Rows...), s.GrandTotal)
}

var driverColumns = []string{
	orders.ColDriverVehicle,
	orders.ColVehicleModel,
	orders.ColDeliveryHub,
	orders.ColStatus,
	orders.ColDeliveredOn,
	orders.ColLastDeliveryUnableTo,
	orders.ColReturnedOn,
	orders.ColLatestOutForDeliveryOn,
}

type driverKey struct {
	driver string
	model  string
}

// BuildDriverSummary counts delivery outcomes per driver and vehicle model for
// the selected hub.
func BuildDriverSummary(table *orders.Table, params Params, cfg *Config) (*DriverSummary, error) {
	if err := table.Require(driverColumns...); err != nil {
		return nil, err
	}
	if err := params.Validate(cfg); err != nil {
		return nil, err
	}

	loc := cfg.Location
	counts := make(map[driverKey]*DriverSummaryRow)
	outOnRoad := make(map[string]int)

	for i := range table.Records {
		rec := &table.Records[i]
		if rec.DeliveryHub != params.Hub {
			continue
		}

		key := driverKey{driver: rec.DriverVehicle, model: rec.VehicleModel}
		row, ok := counts[key]
		if !ok {
			row = &DriverSummaryRow{Driver: key.driver, VehicleModel: key.model}
			counts[key] = row
		}

		if rec.Status == orders.StatusDelivered && orders.OnDate(rec.DeliveredOn, params.Date, loc) {
			row.Delivered++
		}
		if cfg.DateFilterDriverExceptions {
			if orders.OnDate(rec.LastDeliveryUnableTo, params.Date, loc) {
				row.UnableToDeliver++
			}
			if orders.OnDate(rec.ReturnedOn, params.Date, loc) {
				row.Returned++
			}
		} else {
			if rec.LastDeliveryUnableTo != nil {
				row.UnableToDeliver++
			}
			if rec.ReturnedOn != nil {
				row.Returned++
			}
		}

		// Out-on-road is grouped by driver alone and joined back onto every
		// vehicle-model row of that driver.
		if rec.Status == orders.StatusOutForDelivery && orders.OnDate(rec.LatestOutForDeliveryOn, params.Date, loc) {
			outOnRoad[rec.DriverVehicle]++
		}
	}

	keys := make([]driverKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].driver != keys[j].driver {
			return keys[i].driver < keys[j].driver
		}
		return keys[i].model < keys[j].model
	})

	summary := &DriverSummary{Date: params.Date, Hub: params.Hub, Rows: make([]DriverSummaryRow, 0, len(keys))}
	for _, k := range keys {
		row := *counts[k]
		row.OutOnRoad = outOnRoad[k.driver]
		row.finish()
		summary.Rows = append(summary.Rows, row)
	}
	summary.GrandTotal = driverGrandTotal(summary.Rows)
	return summary, nil
}

func (r *DriverSummaryRow) finish() {
	r.Total = r.Delivered + r.UnableToDeliver + r.Returned + r.OutOnRoad
	r.DeliveredPercent = floorPercent(r.Delivered, r.Total)
}

func driverGrandTotal(rows []DriverSummaryRow) DriverSummaryRow {
	total := DriverSummaryRow{Driver: GrandTotalLabel}
	for _, r := range rows {
		total.Delivered += r.Delivered
		total.UnableToDeliver += r.UnableToDeliver
		total.Returned += r.Returned
		total.OutOnRoad += r.OutOnRoad
		total.Total += r.Total
	}
	total.DeliveredPercent = floorPercent(total.Delivered, total.Total)
	return total
}
